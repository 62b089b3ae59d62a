package core

import "time"

// StageStatus is the outcome of a single stage execution.
type StageStatus string

const (
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// Batch is the payload that flows between pipeline stages. Each stage
// produces exactly one Batch variant, so a stage's input validation is a
// plain type assertion rather than runtime introspection.
type Batch interface {
	// Len reports the number of documents carried by the batch.
	Len() int

	batch()
}

// RawBatch carries documents as extracted by the ingestion stage,
// before validation and cleaning.
type RawBatch struct {
	Documents []*Document
}

func (b *RawBatch) Len() int { return len(b.Documents) }
func (b *RawBatch) batch()   {}

// CleanedBatch carries documents whose text has been normalized by the
// cleaning stage.
type CleanedBatch struct {
	Documents []*Document
}

func (b *CleanedBatch) Len() int { return len(b.Documents) }
func (b *CleanedBatch) batch()   {}

// EmbeddedBatch carries documents with embedding vectors attached.
type EmbeddedBatch struct {
	Documents []*Document
	Dimension int // length of each vector
}

func (b *EmbeddedBatch) Len() int { return len(b.Documents) }
func (b *EmbeddedBatch) batch()   {}

// IndexedCollection is the terminal payload produced by the indexing
// stage. It carries no documents, only the locations of the indices built
// from them.
type IndexedCollection struct {
	CollectionName string
	DocumentCount  int
	IndexPaths     map[string]string // index name -> artifact path
}

func (b *IndexedCollection) Len() int { return b.DocumentCount }
func (b *IndexedCollection) batch()   {}

// StageResult is the structured outcome of running one stage.
type StageResult struct {
	StageName     string
	Status        StageStatus
	InputCount    int
	OutputCount   int
	ExecutionTime time.Duration
	Errors        []string
	Warnings      []string
	Output        Batch             // payload handed to the next stage
	Metadata      map[string]string // free-form, records artifact paths
}

// PipelineStatus is the overall outcome of one orchestrator run.
type PipelineStatus string

const (
	PipelineStatusSuccess PipelineStatus = "success"
	PipelineStatusPartial PipelineStatus = "partial"
	PipelineStatusFailed  PipelineStatus = "failed"
)

// PipelineResult summarizes one orchestrator run over a collection.
// It is derived state: the run manifest is its persisted form.
type PipelineResult struct {
	CollectionName     string
	Status             PipelineStatus
	StagesCompleted    []string
	StagesFailed       []string
	DocumentsProcessed int
	ExecutionTime      time.Duration
	Errors             []string
	Artifacts          map[string]string // artifact name -> path
	StartedAt          time.Time
	CompletedAt        time.Time
}
