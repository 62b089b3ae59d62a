// Package core defines the domain model shared across the corpora
// pipeline: documents, collections, the batch payloads that flow between
// stages, and the structured results produced by stage and pipeline runs.
package core
