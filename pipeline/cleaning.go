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
	"time"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/extract"
)

// CleaningStage normalizes document text: line endings, zero-width
// characters, and runs of whitespace. Documents whose content falls
// below the minimum length after cleaning are dropped with a warning.
type CleaningStage struct {
	logger *slog.Logger
}

// NewCleaningStage creates the cleaning stage.
func NewCleaningStage(logger *slog.Logger) *CleaningStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleaningStage{logger: logger}
}

func (s *CleaningStage) Name() string { return "cleaning" }

func (s *CleaningStage) Description() string {
	return "normalizes document text"
}

func (s *CleaningStage) ValidateInput(input core.Batch) bool {
	_, ok := input.(*core.RawBatch)
	return ok
}

func (s *CleaningStage) Execute(ctx context.Context, coll *core.Collection, input core.Batch, run *Context) *core.StageResult {
	raw := input.(*core.RawBatch)
	res := &core.StageResult{Status: core.StageStatusCompleted}

	now := time.Now().UTC()
	cleaned := make([]*core.Document, 0, len(raw.Documents))
	for _, doc := range raw.Documents {
		doc.Content = extract.CleanText(doc.Content)
		for i := range doc.Structured {
			doc.Structured[i].Text = extract.CleanText(doc.Structured[i].Text)
		}

		if len(doc.Content) < extract.MinContentLength {
			res.Warnings = append(res.Warnings, fmt.Sprintf("document %s dropped: content too short after cleaning", doc.ID))
			continue
		}

		doc.UpdatedAt = now
		cleaned = append(cleaned, doc)
	}

	if len(raw.Documents) > 0 && len(cleaned) == 0 {
		res.Status = core.StageStatusFailed
		res.Errors = append(res.Errors, "all documents were emptied by cleaning")
		return res
	}

	res.OutputCount = len(cleaned)
	res.Output = &core.CleanedBatch{Documents: cleaned}
	return res
}
