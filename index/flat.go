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


package index

import (
	"fmt"
	"os"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/store"
)

// FlatIndex is a brute-force cosine similarity index. Vectors are
// normalized at build time so similarity reduces to a dot product.
type FlatIndex struct {
	ids     []core.DocumentID
	vectors [][]float32
	dim     int
}

// NewFlatIndex creates an empty flat index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// Build replaces the index contents with the given documents. All
// vectors must share one dimension and line up with ids by position.
func (idx *FlatIndex) Build(ids []core.DocumentID, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("%w: %d ids, %d vectors", ErrCountMismatch, len(ids), len(vectors))
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		normalized[i] = NormalizeVector(v)
	}

	idx.ids = slices.Clone(ids)
	idx.vectors = normalized
	idx.dim = dim
	return nil
}

// Len returns the number of indexed documents.
func (idx *FlatIndex) Len() int { return len(idx.ids) }

// Dimension returns the vector dimension, or 0 for an empty index.
func (idx *FlatIndex) Dimension() int { return idx.dim }

// Search returns up to limit documents ranked by cosine similarity to
// the query vector.
func (idx *FlatIndex) Search(query []float32, limit int) ([]core.SimilarityMatch, error) {
	if len(idx.ids) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", ErrDimensionMismatch, len(query), idx.dim)
	}

	q := NormalizeVector(query)
	matches := make([]core.SimilarityMatch, 0, len(idx.ids))
	for i, v := range idx.vectors {
		matches = append(matches, core.SimilarityMatch{
			DocumentID: idx.ids[i],
			Score:      dotProduct(q, v),
		})
	}

	slices.SortFunc(matches, func(a, b core.SimilarityMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Save writes the index to path: a length-prefixed id list followed by
// the vector matrix.
func (idx *FlatIndex) Save(path string) error {
	idsSize := varint.Int.Size(len(idx.ids))
	for _, id := range idx.ids {
		idsSize += ord.String.Size(string(id))
	}

	matrix, err := store.MarshalVectorMatrix(idx.vectors)
	if err != nil {
		return err
	}

	bs := make([]byte, idsSize+len(matrix))
	n := varint.Int.Marshal(len(idx.ids), bs)
	for _, id := range idx.ids {
		n += ord.String.Marshal(string(id), bs[n:])
	}
	copy(bs[n:], matrix)

	return os.WriteFile(path, bs, 0o644)
}

// LoadFlatIndex reads an index previously written by Save.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, fmt.Errorf("decoding id count: %w", err)
	}

	ids := make([]core.DocumentID, count)
	for i := 0; i < count; i++ {
		s, n1, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("decoding id %d: %w", i, err)
		}
		n += n1
		ids[i] = core.DocumentID(s)
	}

	vectors, err := store.UnmarshalVectorMatrix(bs[n:])
	if err != nil {
		return nil, err
	}
	if len(vectors) != count {
		return nil, fmt.Errorf("%w: %d ids, %d vectors", ErrCountMismatch, count, len(vectors))
	}

	idx := &FlatIndex{ids: ids, vectors: vectors}
	if len(vectors) > 0 {
		idx.dim = len(vectors[0])
	}
	return idx, nil
}
