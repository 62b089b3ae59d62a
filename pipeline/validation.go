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

	"github.com/poiesic/corpora/core"
)

// ValidationStage checks every raw document against the core document
// rules and drops the ones that fail. Dropped documents are recorded as
// warnings; the stage only fails when nothing survives.
type ValidationStage struct {
	logger *slog.Logger
}

// NewValidationStage creates the validation stage.
func NewValidationStage(logger *slog.Logger) *ValidationStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationStage{logger: logger}
}

func (s *ValidationStage) Name() string { return "validation" }

func (s *ValidationStage) Description() string {
	return "drops documents that fail structural validation"
}

func (s *ValidationStage) ValidateInput(input core.Batch) bool {
	_, ok := input.(*core.RawBatch)
	return ok
}

func (s *ValidationStage) Execute(ctx context.Context, coll *core.Collection, input core.Batch, run *Context) *core.StageResult {
	raw := input.(*core.RawBatch)
	res := &core.StageResult{Status: core.StageStatusCompleted}

	valid := make([]*core.Document, 0, len(raw.Documents))
	for _, doc := range raw.Documents {
		if err := core.ValidateDocument(doc); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("document %s dropped: %v", doc.ID, err))
			continue
		}
		valid = append(valid, doc)
	}

	if len(raw.Documents) > 0 && len(valid) == 0 {
		res.Status = core.StageStatusFailed
		res.Errors = append(res.Errors, "all documents failed validation")
		return res
	}

	if dropped := len(raw.Documents) - len(valid); dropped > 0 {
		s.logger.Warn("validation dropped documents",
			"collection", coll.Name, "dropped", dropped, "kept", len(valid))
	}

	res.OutputCount = len(valid)
	res.Output = &core.RawBatch{Documents: valid}
	return res
}
