package pipeline

import (
	"log/slog"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/extract"
	"github.com/poiesic/corpora/store"
)

// DefaultStages builds the standard five-stage sequence: ingestion,
// validation, cleaning, embedding, indexing. documents may be nil to
// skip the document table.
func DefaultStages(registry *extract.Registry, embedder ai.Embedder, documents store.DocumentStore, logger *slog.Logger, embedOpts ...EmbeddingOption) ([]Stage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ingestion, err := NewIngestionStage(registry, WithIngestionLogger(logger))
	if err != nil {
		return nil, err
	}

	opts := append([]EmbeddingOption{WithEmbedLogger(logger)}, embedOpts...)
	embedding, err := NewEmbeddingStage(embedder, opts...)
	if err != nil {
		ingestion.Release()
		return nil, err
	}

	return []Stage{
		ingestion,
		NewValidationStage(logger),
		NewCleaningStage(logger),
		embedding,
		NewIndexingStage(documents, logger),
	}, nil
}
