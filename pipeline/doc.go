// Package pipeline orchestrates the staged processing of document
// collections: ingestion, validation, cleaning, embedding, and indexing.
// Stages communicate through typed batches and report structured results;
// a stage failure is recorded in its result, never returned as a Go error.
package pipeline
