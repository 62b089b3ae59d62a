// Package extract turns source files into documents.
//
// A Processor implements extraction for one file format (CSV, JSON lines,
// plain text). The Registry dispatches a source file to the right
// processor by extension, falling back to asking each processor in
// registration order. The registry is built once at startup and is
// read-only afterwards, so concurrent pipeline runs can share it safely.
package extract
