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
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/poiesic/corpora/core"
)

// KeywordIndex is an inverted token index over document content. Tokens
// map to the positions of the documents that contain them; scores are
// the fraction of query tokens a document matches.
type KeywordIndex struct {
	ids      []core.DocumentID
	postings map[string][]int
}

// keywordIndexFile is the persisted JSON form of a KeywordIndex.
type keywordIndexFile struct {
	IDs      []core.DocumentID `json:"ids"`
	Postings map[string][]int  `json:"postings"`
}

// NewKeywordIndex creates an empty keyword index.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{postings: make(map[string][]int)}
}

// Build replaces the index contents with the given documents. Texts line
// up with ids by position.
func (idx *KeywordIndex) Build(ids []core.DocumentID, texts []string) error {
	if len(ids) != len(texts) {
		return fmt.Errorf("%w: %d ids, %d texts", ErrCountMismatch, len(ids), len(texts))
	}

	idx.ids = slices.Clone(ids)
	idx.postings = make(map[string][]int)

	for pos, text := range texts {
		seen := make(map[string]bool)
		for _, token := range Tokenize(text) {
			if seen[token] {
				continue
			}
			seen[token] = true
			idx.postings[token] = append(idx.postings[token], pos)
		}
	}
	return nil
}

// Len returns the number of indexed documents.
func (idx *KeywordIndex) Len() int { return len(idx.ids) }

// Tokens returns the number of distinct tokens in the index.
func (idx *KeywordIndex) Tokens() int { return len(idx.postings) }

// Search returns up to limit documents ranked by the fraction of query
// tokens they contain. Documents matching no token are omitted.
func (idx *KeywordIndex) Search(query string, limit int) ([]core.SimilarityMatch, error) {
	if len(idx.ids) == 0 {
		return nil, ErrEmptyIndex
	}

	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	hits := make(map[int]int)
	for _, token := range tokens {
		for _, pos := range idx.postings[token] {
			hits[pos]++
		}
	}

	matches := make([]core.SimilarityMatch, 0, len(hits))
	for pos, count := range hits {
		matches = append(matches, core.SimilarityMatch{
			DocumentID: idx.ids[pos],
			Score:      float32(count) / float32(len(tokens)),
		})
	}

	slices.SortFunc(matches, func(a, b core.SimilarityMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		// Deterministic order for equal scores.
		if a.DocumentID < b.DocumentID {
			return -1
		}
		if a.DocumentID > b.DocumentID {
			return 1
		}
		return 0
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Save writes the index to path as JSON.
func (idx *KeywordIndex) Save(path string) error {
	data, err := json.Marshal(keywordIndexFile{
		IDs:      idx.ids,
		Postings: idx.postings,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadKeywordIndex reads an index previously written by Save.
func LoadKeywordIndex(path string) (*KeywordIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file keywordIndexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding keyword index: %w", err)
	}

	idx := &KeywordIndex{ids: file.IDs, postings: file.Postings}
	if idx.postings == nil {
		idx.postings = make(map[string][]int)
	}
	return idx, nil
}
