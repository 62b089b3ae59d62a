package extract

import "errors"

var (
	// ErrSchemaInvalid is returned when a source file's fields do not
	// satisfy the collection's schema mapping.
	ErrSchemaInvalid = errors.New("schema validation failed")

	// ErrFileNotProcessable is returned when a processor is asked to
	// handle a file it cannot process.
	ErrFileNotProcessable = errors.New("file not processable")

	// ErrEmptyFile is returned when a source file contains no records.
	ErrEmptyFile = errors.New("source file contains no records")
)
