// Package ai defines the narrow embedding-service contract the pipeline
// depends on, plus configuration shared by its implementations. The
// pipeline core never talks to a vendor SDK directly; it only sees the
// Embedder interface.
package ai
