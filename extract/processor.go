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


package extract

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/corpora/core"
)

// MinContentLength is the minimum cleaned-content length for a record to
// become a document. Shorter records are skipped, not treated as errors.
const MinContentLength = 3

// SchemaReport is the outcome of validating a source file's fields
// against a collection's schema mapping.
type SchemaReport struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Processor extracts documents from source files of one format family.
// Implementations must be safe for concurrent use: the ingestion stage
// fans out over source files with a worker pool.
type Processor interface {
	// Name returns the processor's format tag (e.g. "csv").
	Name() string

	// SupportedFormats returns the file extensions this processor
	// handles, lowercase and including the leading dot.
	SupportedFormats() []string

	// CanProcess reports whether the processor can handle the file:
	// the extension must be supported and the file must exist.
	CanProcess(path string) bool

	// ValidateSchema checks the fields available in a source file
	// against the schema mapping. A report with Valid=false means the
	// file cannot be processed with this mapping.
	ValidateSchema(fields []string, mapping core.SchemaMapping) SchemaReport

	// Process extracts documents from the file. Individual records that
	// fail to parse or produce too little content are skipped; a non-nil
	// error means the whole file could not be processed.
	Process(ctx context.Context, path, collection string, cfg core.CollectionConfig) ([]*core.Document, error)
}

// buildContent assembles the document content for one record using the
// schema mapping: a single mapped field, several mapped fields joined, or
// all non-empty fields joined by sorted key when nothing maps.
func buildContent(record map[string]string, mapping core.SchemaMapping) string {
	parts := make([]string, 0, len(mapping.Content))
	for _, field := range mapping.Content {
		if v, ok := record[field]; ok && v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}

	// Nothing mapped: fall back to every non-empty field in key order so
	// the result is deterministic.
	keys := make([]string, 0, len(record))
	for k, v := range record {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, record[k])
	}
	return strings.Join(parts, "\n")
}

// recordMetadata assembles the metadata for one record: the configured
// metadata columns plus provenance fields supplied by the processor.
func recordMetadata(record map[string]string, mapping core.SchemaMapping, provenance map[string]string) map[string]string {
	meta := make(map[string]string, len(mapping.Metadata)+len(provenance))
	for source, target := range mapping.Metadata {
		if v, ok := record[source]; ok && v != "" {
			meta[target] = v
		}
	}
	for k, v := range provenance {
		meta[k] = v
	}
	return meta
}

// newDocument builds a document with a deterministic ID from the record's
// collection, local index and metadata.
func newDocument(collection string, index int, content string, meta map[string]string, ct core.ContentType) *core.Document {
	now := time.Now().UTC()
	return &core.Document{
		ID:          core.NewDocumentID(collection, index, meta),
		Collection:  collection,
		Content:     content,
		Metadata:    meta,
		ContentType: ct,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// validateMappedFields is the shared schema check for tabular formats:
// every content column must exist; missing metadata columns only warn.
func validateMappedFields(fields []string, mapping core.SchemaMapping) SchemaReport {
	report := SchemaReport{Valid: true}

	available := make(map[string]bool, len(fields))
	for _, f := range fields {
		available[f] = true
	}

	if len(mapping.Content) == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, "schema mapping has no content field")
		return report
	}

	for _, field := range mapping.Content {
		if !available[field] {
			report.Valid = false
			report.Errors = append(report.Errors, "content field not found in source: "+field)
		}
	}

	for source := range mapping.Metadata {
		if !available[source] {
			report.Warnings = append(report.Warnings, "metadata field not found in source: "+source)
		}
	}

	return report
}
