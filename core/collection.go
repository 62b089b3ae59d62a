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

import "time"

// CollectionStatus tracks where a collection is in its processing lifecycle.
type CollectionStatus string

const (
	CollectionStatusPending    CollectionStatus = "pending"
	CollectionStatusProcessing CollectionStatus = "processing"
	CollectionStatusCompleted  CollectionStatus = "completed"
	CollectionStatusFailed     CollectionStatus = "failed"
	CollectionStatusPartial    CollectionStatus = "partial"
)

// SchemaMapping maps logical document fields to source columns.
// Content lists the source column(s) whose values are concatenated into
// the document content. Metadata maps source columns to metadata keys.
type SchemaMapping struct {
	Content  []string          `json:"content" yaml:"content"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// CollectionConfig is the immutable processing configuration for a
// collection. It is set at creation time and never mutated by a run.
type CollectionConfig struct {
	SourceFiles    []string          `json:"source_files"`
	Processor      string            `json:"processor"` // format tag: csv, jsonl, text...
	SchemaMapping  SchemaMapping     `json:"schema_mapping"`
	EmbeddingModel string            `json:"embedding_model"`
	ChunkSize      int               `json:"chunk_size,omitempty"`
	ChunkOverlap   int               `json:"chunk_overlap,omitempty"`
	Delimiter      string            `json:"delimiter,omitempty"` // csv only
	Encoding       string            `json:"encoding,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Enabled        bool              `json:"enabled"`
}

// Collection is a named, independently configured unit of source documents.
// Status, DocumentCount, ErrorMessage and UpdatedAt are mutated only by the
// pipeline orchestrator; everything else is fixed at creation.
type Collection struct {
	Name          string           `json:"name"`
	Config        CollectionConfig `json:"config"`
	Status        CollectionStatus `json:"status"`
	DocumentCount int              `json:"document_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	ErrorMessage  string           `json:"error_message,omitempty"`
}
