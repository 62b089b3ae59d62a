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
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/extract"
)

// IngestionStage reads a collection's source files through the processor
// registry and produces the initial raw batch. Files are processed
// concurrently on a worker pool; document order follows source file
// order regardless of completion order.
type IngestionStage struct {
	registry *extract.Registry
	pool     *ants.Pool
	logger   *slog.Logger
}

// IngestionOption configures an IngestionStage.
type IngestionOption func(*IngestionStage) error

// WithIngestionPoolSize sets the worker pool size for concurrent file
// processing. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithIngestionPoolSize(size int) IngestionOption {
	return func(s *IngestionStage) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithIngestionLogger sets a custom logger.
func WithIngestionLogger(logger *slog.Logger) IngestionOption {
	return func(s *IngestionStage) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewIngestionStage creates the ingestion stage.
func NewIngestionStage(registry *extract.Registry, opts ...IngestionOption) (*IngestionStage, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &IngestionStage{
		registry: registry,
		pool:     pool,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}
	return s, nil
}

// Release releases the worker pool. The stage should not be used after
// calling Release.
func (s *IngestionStage) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

func (s *IngestionStage) Name() string { return "ingestion" }

func (s *IngestionStage) Description() string {
	return "reads source files and extracts raw documents"
}

// ValidateInput accepts only a nil batch: ingestion produces the first
// batch of the run.
func (s *IngestionStage) ValidateInput(input core.Batch) bool {
	return input == nil
}

func (s *IngestionStage) Execute(ctx context.Context, coll *core.Collection, _ core.Batch, run *Context) *core.StageResult {
	res := &core.StageResult{
		Status:   core.StageStatusCompleted,
		Metadata: make(map[string]string),
	}

	files := coll.Config.SourceFiles
	perFile := make([][]*core.Document, len(files))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	// Workers run while later files are still being dispatched, so every
	// append to the shared error list goes through the mutex.
	appendError := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
	}

	filesProcessed := 0
	for i, file := range files {
		if _, err := os.Stat(file); err != nil {
			appendError("source file %s: %v", file, err)
			continue
		}

		proc, ok := s.lookupProcessor(coll.Config.Processor, file)
		if !ok {
			appendError("no processor for source file %s", file)
			continue
		}

		i, file, proc := i, file, proc
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()

			docs, err := proc.Process(ctx, file, coll.Name, coll.Config)
			if err != nil {
				appendError("processing %s: %v", file, err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			perFile[i] = docs
			filesProcessed++
		})
		if err != nil {
			wg.Done()
			appendError("submitting %s: %v", file, err)
		}
	}
	wg.Wait()

	// Flatten in source order and drop duplicate ids. A duplicate means
	// two rows produced identical identity inputs.
	seen := make(map[core.DocumentID]bool)
	var documents []*core.Document
	for _, docs := range perFile {
		for _, doc := range docs {
			if seen[doc.ID] {
				res.Errors = append(res.Errors, fmt.Sprintf("duplicate document id %s dropped", doc.ID))
				continue
			}
			seen[doc.ID] = true
			documents = append(documents, doc)
		}
	}

	if len(documents) == 0 {
		res.Status = core.StageStatusFailed
		if len(res.Errors) == 0 {
			res.Errors = append(res.Errors, "no documents extracted from source files")
		}
		return res
	}

	s.logger.Info("ingestion complete",
		"collection", coll.Name,
		"files", filesProcessed,
		"documents", len(documents),
		"errors", len(res.Errors))

	res.OutputCount = len(documents)
	res.Output = &core.RawBatch{Documents: documents}
	res.Metadata["files_processed"] = strconv.Itoa(filesProcessed)
	return res
}

// lookupProcessor resolves the processor for a file: an explicit format
// tag on the collection wins, otherwise the registry picks by path.
func (s *IngestionStage) lookupProcessor(tag, file string) (extract.Processor, bool) {
	if tag != "" {
		return s.registry.Lookup(tag)
	}
	return s.registry.Get(file)
}
