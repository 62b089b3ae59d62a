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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/corpora/core"
)

// Batch type tags used in snapshot files.
const (
	snapshotRaw      = "raw"
	snapshotCleaned  = "cleaned"
	snapshotEmbedded = "embedded"
	snapshotIndexed  = "indexed"
)

// batchSnapshot is the persisted form of a stage's output batch. It lets
// a later run start mid-sequence from a previous run's intermediate data.
type batchSnapshot struct {
	Stage     string                  `json:"stage"`
	BatchType string                  `json:"batch_type"`
	Documents []*core.Document        `json:"documents,omitempty"`
	Dimension int                     `json:"dimension,omitempty"`
	Indexed   *core.IndexedCollection `json:"indexed,omitempty"`
}

func (o *Orchestrator) snapshotPath(collection, stageName string) string {
	return filepath.Join(o.tempDir, collection, "intermediate", stageName+".json")
}

func (o *Orchestrator) saveSnapshot(collection, stageName string, batch core.Batch) error {
	snap := batchSnapshot{Stage: stageName}

	switch b := batch.(type) {
	case *core.RawBatch:
		snap.BatchType = snapshotRaw
		snap.Documents = b.Documents
	case *core.CleanedBatch:
		snap.BatchType = snapshotCleaned
		snap.Documents = b.Documents
	case *core.EmbeddedBatch:
		snap.BatchType = snapshotEmbedded
		snap.Documents = b.Documents
		snap.Dimension = b.Dimension
	case *core.IndexedCollection:
		snap.BatchType = snapshotIndexed
		snap.Indexed = b
	default:
		return fmt.Errorf("unsupported batch type %T", batch)
	}

	path := o.snapshotPath(collection, stageName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (o *Orchestrator) loadSnapshot(collection, stageName string) (core.Batch, error) {
	data, err := os.ReadFile(o.snapshotPath(collection, stageName))
	if err != nil {
		return nil, err
	}

	var snap batchSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	switch snap.BatchType {
	case snapshotRaw:
		return &core.RawBatch{Documents: snap.Documents}, nil
	case snapshotCleaned:
		return &core.CleanedBatch{Documents: snap.Documents}, nil
	case snapshotEmbedded:
		return &core.EmbeddedBatch{Documents: snap.Documents, Dimension: snap.Dimension}, nil
	case snapshotIndexed:
		return snap.Indexed, nil
	default:
		return nil, fmt.Errorf("unknown batch type %q in snapshot", snap.BatchType)
	}
}
