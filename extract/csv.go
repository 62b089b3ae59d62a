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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/poiesic/corpora/core"
)

// CSVProcessor extracts one document per row from delimited text files.
// The collection's schema mapping selects which columns become content
// and metadata. The delimiter defaults to comma and can be overridden via
// CollectionConfig.Delimiter.
type CSVProcessor struct {
	logger *slog.Logger
}

// NewCSVProcessor creates a CSV processor. A nil logger falls back to
// slog.Default().
func NewCSVProcessor(logger *slog.Logger) *CSVProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVProcessor{logger: logger.With("processor", "csv")}
}

func (p *CSVProcessor) Name() string { return "csv" }

func (p *CSVProcessor) SupportedFormats() []string { return []string{".csv", ".tsv"} }

func (p *CSVProcessor) CanProcess(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".tsv" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (p *CSVProcessor) ValidateSchema(fields []string, mapping core.SchemaMapping) SchemaReport {
	return validateMappedFields(fields, mapping)
}

// Process reads the file row by row. Rows with the wrong field count are
// skipped with a warning; rows whose cleaned content is empty or shorter
// than MinContentLength are skipped silently.
func (p *CSVProcessor) Process(ctx context.Context, path, collection string, cfg core.CollectionConfig) ([]*core.Document, error) {
	if !p.CanProcess(path) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotProcessable, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // row length checked against the header below
	reader.Comma = delimiterFor(path, cfg)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
	}

	report := p.ValidateSchema(header, cfg.SchemaMapping)
	if !report.Valid {
		return nil, fmt.Errorf("%w: %s: %s", ErrSchemaInvalid, path, strings.Join(report.Errors, "; "))
	}
	for _, w := range report.Warnings {
		p.logger.Warn("schema warning", "file", path, "warning", w)
	}

	var docs []*core.Document
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			p.logger.Warn("skipping malformed row", "file", path, "row", row, "err", err)
			continue
		}
		if len(fields) != len(header) {
			p.logger.Warn("skipping row with wrong field count",
				"file", path, "row", row, "want", len(header), "got", len(fields))
			continue
		}

		record := make(map[string]string, len(header))
		for i, col := range header {
			record[col] = fields[i]
		}

		content := CleanText(buildContent(record, cfg.SchemaMapping))
		if len(content) < MinContentLength {
			p.logger.Debug("skipping row with too little content", "file", path, "row", row)
			continue
		}

		meta := recordMetadata(record, cfg.SchemaMapping, map[string]string{
			"source_file": path,
			"row_index":   strconv.Itoa(row),
		})
		docs = append(docs, newDocument(collection, row, content, meta, core.ContentTypeText))
	}

	return docs, nil
}

// delimiterFor resolves the field delimiter: explicit config first, then
// tab for .tsv files, then comma.
func delimiterFor(path string, cfg core.CollectionConfig) rune {
	if cfg.Delimiter != "" {
		return []rune(cfg.Delimiter)[0]
	}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}
