package artifact

import "errors"

var (
	// ErrBaseDirRequired is returned when a store is created without a base directory.
	ErrBaseDirRequired = errors.New("artifact base directory required")

	// ErrCollectionRequired is returned when an operation is missing the collection name.
	ErrCollectionRequired = errors.New("collection name required")

	// ErrKindRequired is returned when an operation is missing the artifact kind.
	ErrKindRequired = errors.New("artifact kind required")

	// ErrMetadataNotFound indicates that no metadata sidecar exists for the artifact.
	ErrMetadataNotFound = errors.New("artifact metadata not found")
)
