package badger

import "github.com/poiesic/corpora/core"

// Key prefix for document records. Document IDs are fixed-width hex, so
// plain string concatenation yields stable key ordering.
const documentPrefix = "docrec"

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.DocumentID) []byte {
	return []byte(documentPrefix + ":" + string(id))
}

// documentKeyPrefix returns the iteration prefix covering all documents.
func documentKeyPrefix() []byte {
	return []byte(documentPrefix + ":")
}
