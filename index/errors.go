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

import "errors"

var (
	// ErrCountMismatch is returned when Build receives id and payload
	// slices of different lengths.
	ErrCountMismatch = errors.New("id and payload counts do not match")

	// ErrDimensionMismatch is returned when vectors of different
	// dimensions are mixed in one index, or a query has the wrong
	// dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyIndex is returned when searching an index with no entries.
	ErrEmptyIndex = errors.New("index is empty")
)
