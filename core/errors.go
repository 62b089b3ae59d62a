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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidCollection indicates a Collection failed validation.
	ErrInvalidCollection = errors.New("invalid collection")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyCollectionName indicates the collection name is empty.
	ErrEmptyCollectionName = errors.New("collection name cannot be empty")

	// ErrInvalidContentType indicates an unknown ContentType value.
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrInvalidStatus indicates an unknown CollectionStatus value.
	ErrInvalidStatus = errors.New("invalid collection status")

	// ErrNoSourceFiles indicates a config with no source files.
	ErrNoSourceFiles = errors.New("at least one source file required")

	// ErrMissingContentMapping indicates a schema mapping without a content key.
	ErrMissingContentMapping = errors.New("schema mapping must include a content field")
)
