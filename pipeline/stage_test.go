package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRunContext() *Context {
	return &Context{
		StageResults: make(map[string]*core.StageResult),
		Logger:       testLogger(),
	}
}

// fakeStage is a configurable stage for exercising the runStage
// lifecycle.
type fakeStage struct {
	name        string
	acceptInput bool
	execute     func(ctx context.Context, coll *core.Collection, input core.Batch, run *Context) *core.StageResult

	failures  int
	successes int
}

func (s *fakeStage) Name() string                      { return s.name }
func (s *fakeStage) Description() string               { return "fake stage" }
func (s *fakeStage) ValidateInput(input core.Batch) bool { return s.acceptInput }

func (s *fakeStage) Execute(ctx context.Context, coll *core.Collection, input core.Batch, run *Context) *core.StageResult {
	return s.execute(ctx, coll, input, run)
}

func (s *fakeStage) OnFailure(run *Context, res *core.StageResult) { s.failures++ }
func (s *fakeStage) OnSuccess(run *Context, res *core.StageResult) { s.successes++ }

func TestRunStage_Completed(t *testing.T) {
	stage := &fakeStage{
		name:        "fake",
		acceptInput: true,
		execute: func(context.Context, *core.Collection, core.Batch, *Context) *core.StageResult {
			return &core.StageResult{Status: core.StageStatusCompleted, OutputCount: 2}
		},
	}

	input := &core.RawBatch{Documents: []*core.Document{{}, {}, {}}}
	res := runStage(context.Background(), stage, &core.Collection{Name: "c"}, input, testRunContext())

	assert.Equal(t, "fake", res.StageName)
	assert.Equal(t, core.StageStatusCompleted, res.Status)
	assert.Equal(t, 3, res.InputCount)
	assert.Equal(t, 2, res.OutputCount)
	assert.GreaterOrEqual(t, res.ExecutionTime.Nanoseconds(), int64(0))
	assert.Equal(t, 1, stage.successes)
	assert.Zero(t, stage.failures)
}

func TestRunStage_InvalidInputShortCircuits(t *testing.T) {
	executed := false
	stage := &fakeStage{
		name:        "fake",
		acceptInput: false,
		execute: func(context.Context, *core.Collection, core.Batch, *Context) *core.StageResult {
			executed = true
			return &core.StageResult{Status: core.StageStatusCompleted}
		},
	}

	res := runStage(context.Background(), stage, &core.Collection{Name: "c"}, nil, testRunContext())

	assert.False(t, executed)
	assert.Equal(t, core.StageStatusFailed, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "not valid")
	assert.Equal(t, 1, stage.failures)
}

func TestRunStage_PanicRecovered(t *testing.T) {
	stage := &fakeStage{
		name:        "fake",
		acceptInput: true,
		execute: func(context.Context, *core.Collection, core.Batch, *Context) *core.StageResult {
			panic("boom")
		},
	}

	res := runStage(context.Background(), stage, &core.Collection{Name: "c"}, nil, testRunContext())

	assert.Equal(t, core.StageStatusFailed, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "boom")
	assert.Equal(t, 1, stage.failures)
}

func TestRunStage_NilResult(t *testing.T) {
	stage := &fakeStage{
		name:        "fake",
		acceptInput: true,
		execute: func(context.Context, *core.Collection, core.Batch, *Context) *core.StageResult {
			return nil
		},
	}

	res := runStage(context.Background(), stage, &core.Collection{Name: "c"}, nil, testRunContext())

	assert.Equal(t, core.StageStatusFailed, res.Status)
	assert.Contains(t, res.Errors[0], "no result")
}

func TestRunStage_CancelledContext(t *testing.T) {
	executed := false
	stage := &fakeStage{
		name:        "fake",
		acceptInput: true,
		execute: func(context.Context, *core.Collection, core.Batch, *Context) *core.StageResult {
			executed = true
			return &core.StageResult{Status: core.StageStatusCompleted}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := runStage(ctx, stage, &core.Collection{Name: "c"}, nil, testRunContext())

	assert.False(t, executed)
	assert.Equal(t, core.StageStatusFailed, res.Status)
	assert.Contains(t, res.Errors[0], "cancelled")
}
