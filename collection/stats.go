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


package collection

import (
	"encoding/json"
	"io"
	"os"

	"github.com/poiesic/corpora/artifact"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/store"
)

// Stats summarizes a collection's registered state together with what its
// artifacts on disk actually contain.
type Stats struct {
	Name               string
	Status             core.CollectionStatus
	DocumentCount      int
	VectorCount        int
	VectorDimension    int
	HasSimilarityIndex bool
	HasKeywordIndex    bool
	ArtifactCount      int
	StorageBytes       int64
	LastRun            *core.RunManifest
}

// Stats derives statistics for the named collection. Missing artifacts
// are reported as zero values, not errors; a collection that has never
// been processed still has stats.
func (m *Manager) Stats(name string) (*Stats, error) {
	coll, err := m.Get(name)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Name:          coll.Name,
		Status:        coll.Status,
		DocumentCount: coll.DocumentCount,
	}
	if m.artifacts == nil {
		return stats, nil
	}

	if bytes, count, err := m.artifacts.StorageUsage(name); err == nil {
		stats.StorageBytes = bytes
		stats.ArtifactCount = count
	} else {
		m.logger.Warn("failed to compute storage usage", "collection", name, "err", err)
	}

	if path, err := m.artifacts.PathFor(name, artifact.KindEmbeddings, ".mus"); err == nil {
		if rows, dim, err := readMatrixHeader(path); err == nil {
			stats.VectorCount = rows
			stats.VectorDimension = dim
		}
	}

	stats.HasSimilarityIndex = m.artifactExists(name, artifact.KindSimilarityIndex, ".mus")
	stats.HasKeywordIndex = m.artifactExists(name, artifact.KindKeywordIndex, ".json")
	stats.LastRun = m.readRunManifest(name)

	return stats, nil
}

func (m *Manager) artifactExists(name, kind, ext string) bool {
	path, err := m.artifacts.PathFor(name, kind, ext)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (m *Manager) readRunManifest(name string) *core.RunManifest {
	path, err := m.artifacts.PathFor(name, artifact.KindRunManifest, ".json")
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest core.RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		m.logger.Warn("malformed run manifest", "collection", name, "err", err)
		return nil
	}
	return &manifest
}

// readMatrixHeader reads just enough of an embeddings artifact to decode
// its row count and dimension.
func readMatrixHeader(path string) (rows, dim int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	// Two varints fit comfortably in 32 bytes.
	header := make([]byte, 32)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return 0, 0, err
	}
	return store.MatrixDimensions(header[:n])
}
