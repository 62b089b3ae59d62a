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


package pipeline

import "errors"

var (
	// ErrManagerRequired is returned when an orchestrator is created
	// without a collection manager.
	ErrManagerRequired = errors.New("collection manager is required")

	// ErrArtifactsRequired is returned when an orchestrator is created
	// without an artifact store.
	ErrArtifactsRequired = errors.New("artifact store is required")

	// ErrNoStages is returned when an orchestrator is created with an
	// empty stage list.
	ErrNoStages = errors.New("at least one stage is required")

	// ErrRegistryRequired is returned when the ingestion stage is
	// created without a processor registry.
	ErrRegistryRequired = errors.New("processor registry is required")

	// ErrEmbedderRequired is returned when the embedding stage is
	// created without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrUnknownStage is returned when a stage name does not match any
	// configured stage.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrInvalidStageRange is returned when the requested start stage
	// comes after the requested end stage.
	ErrInvalidStageRange = errors.New("invalid stage range")

	// ErrCollectionDisabled is returned when a run is requested for a
	// collection whose config disables it.
	ErrCollectionDisabled = errors.New("collection is disabled")

	// ErrInvalidMaxAttempts is returned when RetryWithBackoff is called
	// with a non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
