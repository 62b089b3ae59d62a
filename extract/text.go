package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/poiesic/corpora/core"
)

// TextProcessor extracts documents from plain text and markdown files.
// Without chunking configuration the whole file becomes one document;
// with ChunkSize set, the file is split into word chunks with optional
// overlap. Fenced code blocks in markdown are captured as structured
// sub-records.
type TextProcessor struct {
	logger *slog.Logger
}

// NewTextProcessor creates a plain-text processor. A nil logger falls
// back to slog.Default().
func NewTextProcessor(logger *slog.Logger) *TextProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextProcessor{logger: logger.With("processor", "text")}
}

func (p *TextProcessor) Name() string { return "text" }

func (p *TextProcessor) SupportedFormats() []string { return []string{".txt", ".md"} }

func (p *TextProcessor) CanProcess(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".txt" && ext != ".md" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ValidateSchema always passes for free text: there are no columns to map.
func (p *TextProcessor) ValidateSchema(fields []string, mapping core.SchemaMapping) SchemaReport {
	return SchemaReport{Valid: true}
}

func (p *TextProcessor) Process(ctx context.Context, path, collection string, cfg core.CollectionConfig) ([]*core.Document, error) {
	if !p.CanProcess(path) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotProcessable, path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text, blocks := splitCodeBlocks(string(raw))
	text = CleanText(text)
	if len(text) < MinContentLength && len(blocks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	contentType := core.ContentTypeText
	if len(blocks) > 0 {
		contentType = core.ContentTypeMixed
	}

	chunks := chunkWords(text, cfg.ChunkSize, cfg.ChunkOverlap)
	docs := make([]*core.Document, 0, len(chunks))
	for i, chunk := range chunks {
		if len(chunk) < MinContentLength {
			continue
		}
		meta := map[string]string{
			"source_file": path,
			"chunk_index": strconv.Itoa(i),
		}
		doc := newDocument(collection, i, chunk, meta, contentType)
		if i == 0 {
			// Code blocks are attached to the first chunk only; they are
			// not duplicated across overlapping chunks.
			doc.Structured = blocks
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// splitCodeBlocks removes fenced code blocks from markdown text and
// returns them as structured sub-records alongside the remaining prose.
func splitCodeBlocks(text string) (string, []core.StructuredBlock) {
	if !strings.Contains(text, "```") {
		return text, nil
	}

	var blocks []core.StructuredBlock
	var prose strings.Builder
	inBlock := false
	var lang string
	var code strings.Builder

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inBlock {
				blocks = append(blocks, core.StructuredBlock{
					Kind: "code",
					Text: strings.TrimRight(code.String(), "\n"),
					Data: map[string]string{"language": lang},
				})
				code.Reset()
				inBlock = false
			} else {
				inBlock = true
				lang = strings.TrimPrefix(trimmed, "```")
			}
			continue
		}
		if inBlock {
			code.WriteString(line)
			code.WriteString("\n")
		} else {
			prose.WriteString(line)
			prose.WriteString("\n")
		}
	}

	// Unterminated fence: keep the partial block rather than dropping it.
	if inBlock && code.Len() > 0 {
		blocks = append(blocks, core.StructuredBlock{
			Kind: "code",
			Text: strings.TrimRight(code.String(), "\n"),
			Data: map[string]string{"language": lang},
		})
	}

	return prose.String(), blocks
}

// chunkWords splits text into chunks of at most size words, with overlap
// words repeated between consecutive chunks. size <= 0 disables chunking.
func chunkWords(text string, size, overlap int) []string {
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	words := strings.Fields(text)
	if len(words) <= size {
		return []string{text}
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
