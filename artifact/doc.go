// Package artifact stores the persisted byproducts of pipeline runs:
// embeddings, indices and document tables, organized per collection with
// checksummed JSON sidecars for integrity verification.
package artifact
