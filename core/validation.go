// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Collection must not be empty
//   - Content must not be empty
//   - ContentType must be one of the known values
//
// NOT validated (populated later by stages):
//   - Vector (can be empty until the embedding stage runs)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidDocument)
	}

	if doc.Collection == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyCollectionName)
	}

	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if err := ValidateContentType(doc.ContentType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

// ValidateContentType validates that a ContentType has a known value.
func ValidateContentType(ct ContentType) error {
	switch ct {
	case ContentTypeText, ContentTypeTable, ContentTypeImage, ContentTypeMixed:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidContentType, ct)
}

// ValidateCollectionStatus validates that a CollectionStatus has a known value.
func ValidateCollectionStatus(s CollectionStatus) error {
	switch s {
	case CollectionStatusPending, CollectionStatusProcessing,
		CollectionStatusCompleted, CollectionStatusFailed, CollectionStatusPartial:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ValidateCollectionConfig validates a CollectionConfig according to
// domain rules. Source file existence is not checked here; that is the
// config loader's concern.
func ValidateCollectionConfig(cfg *CollectionConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidCollection)
	}

	if len(cfg.SourceFiles) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCollection, ErrNoSourceFiles)
	}

	if len(cfg.SchemaMapping.Content) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCollection, ErrMissingContentMapping)
	}

	return nil
}
