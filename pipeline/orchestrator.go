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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/collection"
	"github.com/poiesic/corpora/core"
)

// Orchestrator runs the configured stage sequence over collections. Runs
// for the same collection are serialized; different collections may run
// concurrently.
type Orchestrator struct {
	manager   *collection.Manager
	artifacts *artifact.Store
	stages    []Stage
	tempDir   string
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTempDir sets where intermediate batch snapshots are written.
// Default is <artifact base>/.intermediate.
func WithTempDir(dir string) OrchestratorOption {
	return func(o *Orchestrator) {
		if dir != "" {
			o.tempDir = dir
		}
	}
}

// WithOrchestratorLogger sets a custom logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an orchestrator over the given stage sequence.
func NewOrchestrator(manager *collection.Manager, artifacts *artifact.Store, stages []Stage, opts ...OrchestratorOption) (*Orchestrator, error) {
	if manager == nil {
		return nil, ErrManagerRequired
	}
	if artifacts == nil {
		return nil, ErrArtifactsRequired
	}
	if len(stages) == 0 {
		return nil, ErrNoStages
	}

	o := &Orchestrator{
		manager:   manager,
		artifacts: artifacts,
		stages:    stages,
		tempDir:   filepath.Join(artifacts.BaseDir(), ".intermediate"),
		logger:    slog.Default().With("component", "orchestrator"),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Close releases resources held by stages, such as worker pools.
func (o *Orchestrator) Close() {
	for _, stage := range o.stages {
		if r, ok := stage.(interface{ Release() }); ok {
			r.Release()
		}
	}
}

// StageInfo describes one configured stage.
type StageInfo struct {
	Name        string
	Description string
}

// ListStages returns the configured stages in execution order.
func (o *Orchestrator) ListStages() []StageInfo {
	infos := make([]StageInfo, len(o.stages))
	for i, stage := range o.stages {
		infos[i] = StageInfo{Name: stage.Name(), Description: stage.Description()}
	}
	return infos
}

// ExecuteOption narrows an Execute call to a stage range.
type ExecuteOption func(*runOptions)

type runOptions struct {
	startStage string
	endStage   string
}

// WithStartStage starts the run at the named stage instead of the first.
// The preceding stage's snapshot from an earlier run supplies the input.
func WithStartStage(name string) ExecuteOption {
	return func(r *runOptions) {
		r.startStage = name
	}
}

// WithEndStage stops the run after the named stage.
func WithEndStage(name string) ExecuteOption {
	return func(r *runOptions) {
		r.endStage = name
	}
}

// Execute runs the stage sequence for the named collection and returns
// the run result. Stage failures are reported in the result, not as a
// Go error; an error is returned only when the run cannot start at all.
func (o *Orchestrator) Execute(ctx context.Context, name string, opts ...ExecuteOption) (*core.PipelineResult, error) {
	coll, err := o.manager.Get(name)
	if err != nil {
		return nil, err
	}
	if !coll.Config.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrCollectionDisabled, name)
	}

	var options runOptions
	for _, opt := range opts {
		opt(&options)
	}

	lock := o.collectionLock(name)
	lock.Lock()
	defer lock.Unlock()

	res := &core.PipelineResult{
		CollectionName:  name,
		StagesCompleted: []string{},
		StagesFailed:    []string{},
		Artifacts:       make(map[string]string),
		StartedAt:       time.Now().UTC(),
	}

	startIdx, endIdx, boundsErr := o.stageBounds(options)
	if boundsErr != nil {
		res.Status = core.PipelineStatusFailed
		res.Errors = append(res.Errors, boundsErr.Error())
		o.finalize(res)
		return res, nil
	}

	if err := o.manager.UpdateStatus(name, core.CollectionStatusProcessing, ""); err != nil {
		return nil, err
	}

	run := &Context{
		Artifacts:    o.artifacts,
		TempDir:      o.tempDir,
		StageResults: make(map[string]*core.StageResult),
		Logger:       o.logger.With("collection", name),
	}

	var data core.Batch
	if startIdx > 0 {
		prev := o.stages[startIdx-1].Name()
		data, err = o.loadSnapshot(name, prev)
		if err != nil {
			res.Status = core.PipelineStatusFailed
			res.Errors = append(res.Errors, fmt.Sprintf("no intermediate data from stage %q: %v", prev, err))
			o.finalize(res)
			o.recordOutcome(res, run)
			return res, nil
		}
	}

	for i := startIdx; i <= endIdx; i++ {
		stage := o.stages[i]
		o.logger.Info("running stage", "collection", name, "stage", stage.Name())

		sres := runStage(ctx, stage, coll, data, run)
		run.StageResults[stage.Name()] = sres
		o.collectArtifacts(res, sres)

		// Warnings surface in the run's error list without being fatal.
		for _, w := range sres.Warnings {
			res.Errors = append(res.Errors, fmt.Sprintf("%s (warning): %s", stage.Name(), w))
		}

		if sres.Status == core.StageStatusFailed {
			res.StagesFailed = append(res.StagesFailed, stage.Name())
			for _, e := range sres.Errors {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", stage.Name(), e))
			}
			break
		}

		if sres.Status == core.StageStatusCompleted {
			res.StagesCompleted = append(res.StagesCompleted, stage.Name())
		}
		if sres.Output != nil {
			data = sres.Output
			if err := o.saveSnapshot(name, stage.Name(), data); err != nil {
				o.logger.Warn("failed to write stage snapshot", "stage", stage.Name(), "err", err)
			}
		}
	}

	if data != nil {
		res.DocumentsProcessed = data.Len()
	}

	selected := endIdx - startIdx + 1
	switch {
	case len(res.StagesFailed) > 0:
		res.Status = core.PipelineStatusFailed
	case len(res.StagesCompleted) == selected:
		res.Status = core.PipelineStatusSuccess
	default:
		res.Status = core.PipelineStatusPartial
	}

	o.finalize(res)
	o.recordOutcome(res, run)
	return res, nil
}

// ExecuteStage runs one named stage with the given input batch, outside
// the normal sequence. The collection's registered state is not mutated.
func (o *Orchestrator) ExecuteStage(ctx context.Context, collectionName, stageName string, input core.Batch) (*core.StageResult, error) {
	coll, err := o.manager.Get(collectionName)
	if err != nil {
		return nil, err
	}

	idx := o.stageIndex(stageName)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, stageName)
	}

	lock := o.collectionLock(collectionName)
	lock.Lock()
	defer lock.Unlock()

	run := &Context{
		Artifacts:    o.artifacts,
		TempDir:      o.tempDir,
		StageResults: make(map[string]*core.StageResult),
		Logger:       o.logger.With("collection", collectionName),
	}
	return runStage(ctx, o.stages[idx], coll, input, run), nil
}

func (o *Orchestrator) finalize(res *core.PipelineResult) {
	res.CompletedAt = time.Now().UTC()
	res.ExecutionTime = res.CompletedAt.Sub(res.StartedAt)
}

// recordOutcome updates the collection's registered state and writes the
// run manifest. Bookkeeping failures are logged, not propagated: the run
// result already exists.
func (o *Orchestrator) recordOutcome(res *core.PipelineResult, run *Context) {
	status := core.CollectionStatusCompleted
	errMsg := ""
	switch res.Status {
	case core.PipelineStatusPartial:
		status = core.CollectionStatusPartial
	case core.PipelineStatusFailed:
		status = core.CollectionStatusFailed
	}
	if res.Status != core.PipelineStatusSuccess && len(res.Errors) > 0 {
		head := res.Errors
		if len(head) > 3 {
			head = head[:3]
		}
		errMsg = strings.Join(head, "; ")
	}

	if err := o.manager.UpdateStatus(res.CollectionName, status, errMsg); err != nil {
		o.logger.Error("failed to update collection status", "collection", res.CollectionName, "err", err)
	}
	if res.Status != core.PipelineStatusFailed && res.DocumentsProcessed > 0 {
		if err := o.manager.SetDocumentCount(res.CollectionName, res.DocumentsProcessed); err != nil {
			o.logger.Error("failed to update document count", "collection", res.CollectionName, "err", err)
		}
	}

	if err := o.writeManifest(res, run); err != nil {
		o.logger.Error("failed to write run manifest", "collection", res.CollectionName, "err", err)
	}
}

func (o *Orchestrator) writeManifest(res *core.PipelineResult, run *Context) error {
	manifest := core.NewRunManifest(res, run.StageResults)
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}

	path, err := o.artifacts.PathFor(res.CollectionName, artifact.KindRunManifest, ".json")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (o *Orchestrator) collectArtifacts(res *core.PipelineResult, sres *core.StageResult) {
	for key, path := range sres.Metadata {
		if kind, ok := strings.CutPrefix(key, artifactMetaPrefix); ok {
			res.Artifacts[kind] = path
		}
	}
}

func (o *Orchestrator) stageBounds(options runOptions) (startIdx, endIdx int, err error) {
	startIdx, endIdx = 0, len(o.stages)-1

	if options.startStage != "" {
		startIdx = o.stageIndex(options.startStage)
		if startIdx < 0 {
			return 0, 0, fmt.Errorf("%w: start stage %q", ErrUnknownStage, options.startStage)
		}
	}
	if options.endStage != "" {
		endIdx = o.stageIndex(options.endStage)
		if endIdx < 0 {
			return 0, 0, fmt.Errorf("%w: end stage %q", ErrUnknownStage, options.endStage)
		}
	}
	if startIdx > endIdx {
		return 0, 0, fmt.Errorf("%w: start stage %q is after end stage %q", ErrInvalidStageRange, o.stages[startIdx].Name(), o.stages[endIdx].Name())
	}
	return startIdx, endIdx, nil
}

func (o *Orchestrator) stageIndex(name string) int {
	for i, stage := range o.stages {
		if stage.Name() == name {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) collectionLock(name string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[name] = lock
	}
	return lock
}
