package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/poiesic/corpora/core"
)

// JSONLProcessor extracts one document per line from JSON-lines files.
// Each line must be a flat JSON object; nested values are rendered with
// their JSON encoding.
type JSONLProcessor struct {
	logger *slog.Logger
}

// NewJSONLProcessor creates a JSON-lines processor. A nil logger falls
// back to slog.Default().
func NewJSONLProcessor(logger *slog.Logger) *JSONLProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLProcessor{logger: logger.With("processor", "jsonl")}
}

func (p *JSONLProcessor) Name() string { return "jsonl" }

func (p *JSONLProcessor) SupportedFormats() []string { return []string{".jsonl", ".ndjson"} }

func (p *JSONLProcessor) CanProcess(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jsonl" && ext != ".ndjson" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (p *JSONLProcessor) ValidateSchema(fields []string, mapping core.SchemaMapping) SchemaReport {
	return validateMappedFields(fields, mapping)
}

// Process reads the file line by line. Lines that are not valid JSON
// objects are skipped with a warning. The schema is validated against the
// keys of the first parseable object.
func (p *JSONLProcessor) Process(ctx context.Context, path, collection string, cfg core.CollectionConfig) ([]*core.Document, error) {
	if !p.CanProcess(path) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotProcessable, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var docs []*core.Document
	line := 0
	validated := false
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			p.logger.Warn("skipping malformed line", "file", path, "line", line, "err", err)
			continue
		}

		record := make(map[string]string, len(obj))
		fields := make([]string, 0, len(obj))
		for k, v := range obj {
			fields = append(fields, k)
			record[k] = decodeScalar(v)
		}

		if !validated {
			report := p.ValidateSchema(fields, cfg.SchemaMapping)
			if !report.Valid {
				return nil, fmt.Errorf("%w: %s: %s", ErrSchemaInvalid, path, strings.Join(report.Errors, "; "))
			}
			for _, w := range report.Warnings {
				p.logger.Warn("schema warning", "file", path, "warning", w)
			}
			validated = true
		}

		content := CleanText(buildContent(record, cfg.SchemaMapping))
		if len(content) < MinContentLength {
			p.logger.Debug("skipping line with too little content", "file", path, "line", line)
			continue
		}

		meta := recordMetadata(record, cfg.SchemaMapping, map[string]string{
			"source_file": path,
			"row_index":   strconv.Itoa(line),
		})
		docs = append(docs, newDocument(collection, line, content, meta, core.ContentTypeText))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if line == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	return docs, nil
}

// decodeScalar renders a JSON value as a string: quoted strings are
// unwrapped, null becomes empty, everything else keeps its JSON encoding.
func decodeScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}
