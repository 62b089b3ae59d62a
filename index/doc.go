// Package index provides the per-collection search indexes built by the
// indexing stage: a flat vector index for cosine similarity search and an
// inverted keyword index for token lookup. Both are built in memory and
// persisted to the collection's artifact directory.
package index
