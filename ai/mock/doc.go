// Package mock provides a deterministic test double for the ai.Embedder
// interface, for use in tests that must not depend on a live embedding
// service.
package mock
