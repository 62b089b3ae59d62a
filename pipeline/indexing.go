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

	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/index"
	"github.com/poiesic/corpora/store"
)

// IndexingStage builds the similarity and keyword indexes from the
// embedded batch and writes the documents to the document store. Both
// index artifacts must be written for the stage to complete.
type IndexingStage struct {
	documents store.DocumentStore // optional; nil skips the document table
	logger    *slog.Logger
}

// NewIndexingStage creates the indexing stage. documents may be nil, in
// which case no document table is written.
func NewIndexingStage(documents store.DocumentStore, logger *slog.Logger) *IndexingStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexingStage{documents: documents, logger: logger}
}

func (s *IndexingStage) Name() string { return "indexing" }

func (s *IndexingStage) Description() string {
	return "builds similarity and keyword indexes"
}

func (s *IndexingStage) ValidateInput(input core.Batch) bool {
	_, ok := input.(*core.EmbeddedBatch)
	return ok
}

func (s *IndexingStage) Execute(ctx context.Context, coll *core.Collection, input core.Batch, run *Context) *core.StageResult {
	embedded := input.(*core.EmbeddedBatch)
	res := &core.StageResult{
		Status:   core.StageStatusCompleted,
		Metadata: make(map[string]string),
	}

	ids := make([]core.DocumentID, len(embedded.Documents))
	vectors := make([][]float32, len(embedded.Documents))
	texts := make([]string, len(embedded.Documents))
	for i, doc := range embedded.Documents {
		ids[i] = doc.ID
		vectors[i] = doc.Vector
		texts[i] = doc.Content
	}

	indexPaths := make(map[string]string, 2)

	simPath, err := s.buildSimilarityIndex(coll.Name, ids, vectors, run)
	if err != nil {
		res.Status = core.StageStatusFailed
		res.Errors = append(res.Errors, fmt.Sprintf("similarity index: %v", err))
		return res
	}
	indexPaths[artifact.KindSimilarityIndex] = simPath
	res.Metadata[artifactMetaPrefix+artifact.KindSimilarityIndex] = simPath

	kwPath, err := s.buildKeywordIndex(coll.Name, ids, texts, run)
	if err != nil {
		res.Status = core.StageStatusFailed
		res.Errors = append(res.Errors, fmt.Sprintf("keyword index: %v", err))
		return res
	}
	indexPaths[artifact.KindKeywordIndex] = kwPath
	res.Metadata[artifactMetaPrefix+artifact.KindKeywordIndex] = kwPath

	if s.documents != nil {
		if err := s.documents.PutDocuments(ctx, embedded.Documents...); err != nil {
			res.Status = core.StageStatusFailed
			res.Errors = append(res.Errors, fmt.Sprintf("writing document table: %v", err))
			return res
		}
	}

	s.logger.Info("indexing complete",
		"collection", coll.Name,
		"documents", len(embedded.Documents),
		"dimension", embedded.Dimension)

	res.OutputCount = len(embedded.Documents)
	res.Output = &core.IndexedCollection{
		CollectionName: coll.Name,
		DocumentCount:  len(embedded.Documents),
		IndexPaths:     indexPaths,
	}
	return res
}

func (s *IndexingStage) buildSimilarityIndex(collection string, ids []core.DocumentID, vectors [][]float32, run *Context) (string, error) {
	idx := index.NewFlatIndex()
	if err := idx.Build(ids, vectors); err != nil {
		return "", err
	}

	path, err := run.Artifacts.PathFor(collection, artifact.KindSimilarityIndex, ".mus")
	if err != nil {
		return "", err
	}
	if err := idx.Save(path); err != nil {
		return "", err
	}
	if err := run.Artifacts.SaveMetadata(collection, artifact.KindSimilarityIndex, path, nil); err != nil {
		return "", err
	}
	return path, nil
}

func (s *IndexingStage) buildKeywordIndex(collection string, ids []core.DocumentID, texts []string, run *Context) (string, error) {
	idx := index.NewKeywordIndex()
	if err := idx.Build(ids, texts); err != nil {
		return "", err
	}

	path, err := run.Artifacts.PathFor(collection, artifact.KindKeywordIndex, ".json")
	if err != nil {
		return "", err
	}
	if err := idx.Save(path); err != nil {
		return "", err
	}
	if err := run.Artifacts.SaveMetadata(collection, artifact.KindKeywordIndex, path, nil); err != nil {
		return "", err
	}
	return path, nil
}
