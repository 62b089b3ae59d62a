package core

import "time"

// StageManifest is the persisted summary of one stage execution inside a
// run manifest.
type StageManifest struct {
	Status        string   `json:"status"`
	InputCount    int      `json:"input_count"`
	OutputCount   int      `json:"output_count"`
	ExecutionTime float64  `json:"execution_time"` // seconds
	Errors        []string `json:"errors,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// RunManifest is the persisted JSON record of one complete pipeline run.
// It is written to <artifactDir>/<collection>/manifest.json.
type RunManifest struct {
	CollectionName     string                   `json:"collection_name"`
	Status             string                   `json:"status"`
	StartedAt          time.Time                `json:"started_at"`
	CompletedAt        time.Time                `json:"completed_at"`
	ExecutionTime      float64                  `json:"execution_time"` // seconds
	DocumentsProcessed int                      `json:"documents_processed"`
	Stages             RunManifestStages        `json:"stages"`
	StageResults       map[string]StageManifest `json:"stage_results"`
	Artifacts          map[string]string        `json:"artifacts,omitempty"`
	Errors             []string                 `json:"errors,omitempty"`
}

// RunManifestStages lists stage names by outcome.
type RunManifestStages struct {
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// NewRunManifest summarizes a pipeline result and its per-stage results
// into the persistable manifest form. Large payloads (the batches) are
// deliberately left out.
func NewRunManifest(res *PipelineResult, stageResults map[string]*StageResult) *RunManifest {
	m := &RunManifest{
		CollectionName:     res.CollectionName,
		Status:             string(res.Status),
		StartedAt:          res.StartedAt,
		CompletedAt:        res.CompletedAt,
		ExecutionTime:      res.ExecutionTime.Seconds(),
		DocumentsProcessed: res.DocumentsProcessed,
		Stages: RunManifestStages{
			Completed: res.StagesCompleted,
			Failed:    res.StagesFailed,
		},
		StageResults: make(map[string]StageManifest, len(stageResults)),
		Artifacts:    res.Artifacts,
		Errors:       res.Errors,
	}
	if m.Stages.Completed == nil {
		m.Stages.Completed = []string{}
	}
	if m.Stages.Failed == nil {
		m.Stages.Failed = []string{}
	}
	for name, sr := range stageResults {
		m.StageResults[name] = StageManifest{
			Status:        string(sr.Status),
			InputCount:    sr.InputCount,
			OutputCount:   sr.OutputCount,
			ExecutionTime: sr.ExecutionTime.Seconds(),
			Errors:        sr.Errors,
			Warnings:      sr.Warnings,
		}
	}
	return m
}
