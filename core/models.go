package core

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// DocumentID is a deterministic identifier for an extracted document.
// It is derived from the document's collection, its position within the
// source file, and the document's metadata values, so identical inputs
// produce identical IDs across runs.
type DocumentID string

// NewDocumentID derives a DocumentID from the collection name, the
// document's local index within its source file, and its metadata values
// sorted by key. The full 128-bit BLAKE2b digest is kept rather than a
// truncated prefix so that large collections do not risk silent ID
// collisions.
func NewDocumentID(collection string, index int, metadata map[string]string) DocumentID {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(collection))
	h.Write([]byte{0})
	h.Write([]byte{byte(index >> 24), byte(index >> 16), byte(index >> 8), byte(index)})
	h.Write([]byte{0})

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(metadata[k]))
		h.Write([]byte{0})
	}

	return DocumentID(hex.EncodeToString(h.Sum(nil)))
}

// ContentType classifies the dominant content of a document.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeTable ContentType = "table"
	ContentTypeImage ContentType = "image"
	ContentTypeMixed ContentType = "mixed"
)

// StructuredBlock holds a sub-record extracted from a rich source format,
// such as a table, an image reference, or a code block.
type StructuredBlock struct {
	Kind string            // "table", "image" or "code"
	Text string            // textual rendering of the block
	Data map[string]string // format-specific attributes
}

// Document is the canonical record produced by extraction.
// It may be enriched with an embedding vector during processing.
type Document struct {
	ID          DocumentID
	Collection  string
	Content     string            // cleaned text
	Structured  []StructuredBlock // optional sub-records for rich formats
	Metadata    map[string]string // open schema; always includes source_file
	ContentType ContentType
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Vector      []float32 // embedding, populated by the embedding stage
}

// SimilarityMatch represents a document match from vector similarity search.
type SimilarityMatch struct {
	DocumentID DocumentID
	Score      float32
}
