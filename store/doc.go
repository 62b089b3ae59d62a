// Package store persists the flat document table produced by a pipeline
// run, together with the binary serialization used for document records
// and embedding matrices.
package store
