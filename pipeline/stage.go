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

	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/core"
)

// Stage is one step of the processing pipeline. Execute reports failure
// through the returned StageResult, never through a Go error: the
// orchestrator reads the result's Status to decide whether to continue.
type Stage interface {
	// Name is the stable identifier used for stage selection and
	// manifests.
	Name() string

	// Description is a one-line human-readable summary.
	Description() string

	// ValidateInput reports whether the stage can run on the given
	// batch. Stages that produce the first batch accept a nil input.
	ValidateInput(input core.Batch) bool

	// Execute runs the stage. The returned result must carry the output
	// batch when the stage completes.
	Execute(ctx context.Context, coll *core.Collection, input core.Batch, run *Context) *core.StageResult
}

// FailureHandler is an optional stage interface invoked by the
// orchestrator after the stage's result comes back failed.
type FailureHandler interface {
	OnFailure(run *Context, res *core.StageResult)
}

// SuccessHandler is an optional stage interface invoked by the
// orchestrator after the stage's result comes back completed.
type SuccessHandler interface {
	OnSuccess(run *Context, res *core.StageResult)
}

// Context carries run-scoped resources shared by all stages of one
// pipeline execution.
type Context struct {
	// Artifacts is where stages persist their durable outputs.
	Artifacts *artifact.Store

	// TempDir holds intermediate batch snapshots for this run.
	TempDir string

	// StageResults accumulates the results of stages that already ran.
	StageResults map[string]*core.StageResult

	// Logger is the run-scoped logger.
	Logger *slog.Logger
}

// artifactMetaPrefix marks StageResult metadata entries that name
// produced artifacts; the orchestrator collects them into the run result.
const artifactMetaPrefix = "artifact:"

// runStage executes one stage with the shared lifecycle: cancellation
// check, input validation, timing, panic recovery, and hook dispatch.
func runStage(ctx context.Context, stage Stage, coll *core.Collection, input core.Batch, run *Context) (res *core.StageResult) {
	start := time.Now()

	inputCount := 0
	if input != nil {
		inputCount = input.Len()
	}

	finish := func(r *core.StageResult) *core.StageResult {
		r.StageName = stage.Name()
		r.InputCount = inputCount
		r.ExecutionTime = time.Since(start)
		return r
	}

	if err := ctx.Err(); err != nil {
		return finish(&core.StageResult{
			Status: core.StageStatusFailed,
			Errors: []string{fmt.Sprintf("run cancelled: %v", err)},
		})
	}

	if !stage.ValidateInput(input) {
		return finish(&core.StageResult{
			Status: core.StageStatusFailed,
			Errors: []string{fmt.Sprintf("input batch is not valid for stage %q", stage.Name())},
		})
	}

	defer func() {
		if r := recover(); r != nil {
			run.Logger.Error("stage panicked", "stage", stage.Name(), "panic", r)
			res = finish(&core.StageResult{
				Status: core.StageStatusFailed,
				Errors: []string{fmt.Sprintf("stage panicked: %v", r)},
			})
		}

		switch res.Status {
		case core.StageStatusFailed:
			if h, ok := stage.(FailureHandler); ok {
				h.OnFailure(run, res)
			}
		case core.StageStatusCompleted:
			if h, ok := stage.(SuccessHandler); ok {
				h.OnSuccess(run, res)
			}
		}
	}()

	res = stage.Execute(ctx, coll, input, run)
	if res == nil {
		res = &core.StageResult{
			Status: core.StageStatusFailed,
			Errors: []string{fmt.Sprintf("stage %q returned no result", stage.Name())},
		}
	}
	return finish(res)
}
