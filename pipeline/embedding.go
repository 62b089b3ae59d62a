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

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/index"
	"github.com/poiesic/corpora/store"
)

const (
	defaultEmbedBatchSize   = 32
	defaultEmbedMaxAttempts = 3
	defaultEmbedBaseDelay   = 500 * time.Millisecond
	progressReportInterval  = 100
)

// EmbeddingStage attaches embedding vectors to cleaned documents and
// persists the vector matrix as an artifact. Requests go to the embedder
// in batches with retry; a batch that still fails after retries drops
// its documents with an error recorded.
type EmbeddingStage struct {
	embedder    ai.Embedder
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	progress    io.Writer
	logger      *slog.Logger
}

// EmbeddingOption configures an EmbeddingStage.
type EmbeddingOption func(*EmbeddingStage)

// WithEmbedBatchSize sets how many documents are embedded per request.
func WithEmbedBatchSize(size int) EmbeddingOption {
	return func(s *EmbeddingStage) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithEmbedRetry sets the retry policy for embedding requests.
func WithEmbedRetry(maxAttempts int, baseDelay time.Duration) EmbeddingOption {
	return func(s *EmbeddingStage) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			s.baseDelay = baseDelay
		}
	}
}

// WithEmbedProgress writes progress output to w, typically os.Stderr.
func WithEmbedProgress(w io.Writer) EmbeddingOption {
	return func(s *EmbeddingStage) {
		s.progress = w
	}
}

// WithEmbedLogger sets a custom logger.
func WithEmbedLogger(logger *slog.Logger) EmbeddingOption {
	return func(s *EmbeddingStage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewEmbeddingStage creates the embedding stage.
func NewEmbeddingStage(embedder ai.Embedder, opts ...EmbeddingOption) (*EmbeddingStage, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &EmbeddingStage{
		embedder:    embedder,
		batchSize:   defaultEmbedBatchSize,
		maxAttempts: defaultEmbedMaxAttempts,
		baseDelay:   defaultEmbedBaseDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *EmbeddingStage) Name() string { return "embedding" }

func (s *EmbeddingStage) Description() string {
	return "generates embedding vectors for cleaned documents"
}

func (s *EmbeddingStage) ValidateInput(input core.Batch) bool {
	_, ok := input.(*core.CleanedBatch)
	return ok
}

func (s *EmbeddingStage) Execute(ctx context.Context, coll *core.Collection, input core.Batch, run *Context) *core.StageResult {
	cleaned := input.(*core.CleanedBatch)
	res := &core.StageResult{
		Status:   core.StageStatusCompleted,
		Metadata: make(map[string]string),
	}

	var tracker *ProgressTracker
	if s.progress != nil {
		tracker = NewProgressTracker(s.progress, len(cleaned.Documents), progressReportInterval)
		tracker.Start()
	}

	dim := 0
	embedded := make([]*core.Document, 0, len(cleaned.Documents))
	for start := 0; start < len(cleaned.Documents); start += s.batchSize {
		end := start + s.batchSize
		if end > len(cleaned.Documents) {
			end = len(cleaned.Documents)
		}
		chunk := cleaned.Documents[start:end]

		texts := make([]string, len(chunk))
		for i, doc := range chunk {
			texts[i] = doc.Content
		}

		var vectors [][]float32
		err := RetryWithBackoff(ctx, "embed documents", func() error {
			var embErr error
			vectors, embErr = s.embedder.EmbedTexts(ctx, texts)
			return embErr
		}, s.maxAttempts, s.baseDelay)

		if err != nil {
			if ctx.Err() != nil {
				res.Status = core.StageStatusFailed
				res.Errors = append(res.Errors, fmt.Sprintf("embedding cancelled: %v", err))
				return res
			}
			res.Errors = append(res.Errors, fmt.Sprintf("embedding documents %d-%d: %v", start, end-1, err))
			continue
		}
		if len(vectors) != len(chunk) {
			res.Errors = append(res.Errors, fmt.Sprintf("embedder returned %d vectors for %d documents", len(vectors), len(chunk)))
			continue
		}

		for i, doc := range chunk {
			v := index.NormalizeVector(vectors[i])
			if dim == 0 {
				dim = len(v)
			}
			if len(v) != dim {
				res.Errors = append(res.Errors, fmt.Sprintf("document %s: vector dimension %d, want %d", doc.ID, len(v), dim))
				continue
			}
			doc.Vector = v
			embedded = append(embedded, doc)
		}

		if tracker != nil {
			tracker.Increment(len(chunk))
		}
	}

	if tracker != nil {
		tracker.Finish()
	}

	if len(embedded) == 0 {
		res.Status = core.StageStatusFailed
		if len(res.Errors) == 0 {
			res.Errors = append(res.Errors, "no documents were embedded")
		}
		return res
	}

	if err := s.persistMatrix(coll, embedded, dim, run, res); err != nil {
		res.Status = core.StageStatusFailed
		res.Errors = append(res.Errors, fmt.Sprintf("persisting embeddings: %v", err))
		return res
	}

	s.logger.Info("embedding complete",
		"collection", coll.Name,
		"documents", len(embedded),
		"dimension", dim,
		"errors", len(res.Errors))

	res.OutputCount = len(embedded)
	res.Output = &core.EmbeddedBatch{Documents: embedded, Dimension: dim}
	return res
}

// persistMatrix writes the embedding matrix artifact with its checksum
// sidecar.
func (s *EmbeddingStage) persistMatrix(coll *core.Collection, docs []*core.Document, dim int, run *Context, res *core.StageResult) error {
	vectors := make([][]float32, len(docs))
	for i, doc := range docs {
		vectors[i] = doc.Vector
	}

	data, err := store.MarshalVectorMatrix(vectors)
	if err != nil {
		return err
	}

	path, err := run.Artifacts.PathFor(coll.Name, artifact.KindEmbeddings, ".mus")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	extra := map[string]string{
		"model":     coll.Config.EmbeddingModel,
		"dimension": strconv.Itoa(dim),
	}
	if err := run.Artifacts.SaveMetadata(coll.Name, artifact.KindEmbeddings, path, extra); err != nil {
		return err
	}

	res.Metadata[artifactMetaPrefix+artifact.KindEmbeddings] = path
	return nil
}
