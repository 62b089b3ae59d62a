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


package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/corpora/core"
)

// MarshalDocument serializes a document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, DocumentMUS.Size(*doc))
	DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// DocumentMUS is the MUS serializer for core.Document. Timestamps are
// stored as Unix microseconds; metadata keys are written in sorted order
// so the encoding is deterministic.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (documentMUS) Marshal(d core.Document, bs []byte) (n int) {
	n = ord.String.Marshal(string(d.ID), bs)
	n += ord.String.Marshal(d.Collection, bs[n:])
	n += ord.String.Marshal(d.Content, bs[n:])
	n += marshalBlocks(d.Structured, bs[n:])
	n += marshalStringMap(d.Metadata, bs[n:])
	n += ord.String.Marshal(string(d.ContentType), bs[n:])
	n += varint.Int64.Marshal(d.CreatedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(d.UpdatedAt.UnixMicro(), bs[n:])
	n += marshalVector(d.Vector, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d core.Document, n int, err error) {
	var (
		s  string
		n1 int
	)
	if s, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	d.ID = core.DocumentID(s)

	if d.Collection, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1

	if d.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1

	if d.Structured, n1, err = unmarshalBlocks(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1

	if d.Metadata, n1, err = unmarshalStringMap(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1

	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	d.ContentType = core.ContentType(s)

	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	d.CreatedAt = time.UnixMicro(micros).UTC()

	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	d.UpdatedAt = time.UnixMicro(micros).UTC()

	if d.Vector, n1, err = unmarshalVector(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1

	return d, n, nil
}

func (documentMUS) Size(d core.Document) (size int) {
	size = ord.String.Size(string(d.ID))
	size += ord.String.Size(d.Collection)
	size += ord.String.Size(d.Content)
	size += sizeBlocks(d.Structured)
	size += sizeStringMap(d.Metadata)
	size += ord.String.Size(string(d.ContentType))
	size += varint.Int64.Size(d.CreatedAt.UnixMicro())
	size += varint.Int64.Size(d.UpdatedAt.UnixMicro())
	size += sizeVector(d.Vector)
	return size
}

func marshalStringMap(m map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(m), bs)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return n
}

func unmarshalStringMap(bs []byte) (m map[string]string, n int, err error) {
	var length int
	if length, n, err = varint.Int.Unmarshal(bs); err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	m = make(map[string]string, length)
	var k, v string
	var n1 int
	for i := 0; i < length; i++ {
		if k, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
		if v, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
		m[k] = v
	}
	return m, n, nil
}

func sizeStringMap(m map[string]string) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k)
		size += ord.String.Size(v)
	}
	return size
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	var length int
	if length, n, err = varint.Int.Unmarshal(bs); err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	var n1 int
	for i := 0; i < length; i++ {
		if v[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
	}
	return v, n, nil
}

func sizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalBlocks(blocks []core.StructuredBlock, bs []byte) (n int) {
	n = varint.Int.Marshal(len(blocks), bs)
	for _, b := range blocks {
		n += ord.String.Marshal(b.Kind, bs[n:])
		n += ord.String.Marshal(b.Text, bs[n:])
		n += marshalStringMap(b.Data, bs[n:])
	}
	return n
}

func unmarshalBlocks(bs []byte) (blocks []core.StructuredBlock, n int, err error) {
	var length int
	if length, n, err = varint.Int.Unmarshal(bs); err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	blocks = make([]core.StructuredBlock, length)
	var n1 int
	for i := 0; i < length; i++ {
		if blocks[i].Kind, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
		if blocks[i].Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
		if blocks[i].Data, n1, err = unmarshalStringMap(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
	}
	return blocks, n, nil
}

func sizeBlocks(blocks []core.StructuredBlock) (size int) {
	size = varint.Int.Size(len(blocks))
	for _, b := range blocks {
		size += ord.String.Size(b.Kind)
		size += ord.String.Size(b.Text)
		size += sizeStringMap(b.Data)
	}
	return size
}

// MarshalVectorMatrix serializes an embedding matrix: row count,
// dimension, then row-major float32 values. All rows must share one
// dimension.
func MarshalVectorMatrix(vectors [][]float32) ([]byte, error) {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) != dim {
			return nil, ErrRaggedMatrix
		}
	}

	size := varint.Int.Size(len(vectors)) + varint.Int.Size(dim)
	for _, v := range vectors {
		for _, f := range v {
			size += raw.Float32.Size(f)
		}
	}

	bs := make([]byte, size)
	n := varint.Int.Marshal(len(vectors), bs)
	n += varint.Int.Marshal(dim, bs[n:])
	for _, v := range vectors {
		for _, f := range v {
			n += raw.Float32.Marshal(f, bs[n:])
		}
	}
	return bs, nil
}

// UnmarshalVectorMatrix deserializes an embedding matrix.
func UnmarshalVectorMatrix(bs []byte) ([][]float32, error) {
	rows, dim, n, err := matrixHeader(bs)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		v := make([]float32, dim)
		for j := 0; j < dim; j++ {
			var n1 int
			if v[j], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
			}
			n += n1
		}
		vectors[i] = v
	}
	return vectors, nil
}

// MatrixDimensions reads only the header of a serialized embedding
// matrix, so callers can learn row count and dimension without decoding
// the values.
func MatrixDimensions(bs []byte) (rows, dim int, err error) {
	rows, dim, _, err = matrixHeader(bs)
	return rows, dim, err
}

func matrixHeader(bs []byte) (rows, dim, n int, err error) {
	var n1 int
	if rows, n, err = varint.Int.Unmarshal(bs); err != nil {
		return 0, 0, n, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if dim, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return 0, 0, n + n1, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return rows, dim, n + n1, nil
}
