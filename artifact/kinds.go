package artifact

// Canonical artifact kinds produced by pipeline runs. The kind is the
// file basename; the extension is chosen by the producer.
const (
	KindEmbeddings      = "embeddings"
	KindSimilarityIndex = "similarity_index"
	KindKeywordIndex    = "keyword_index"
	KindRunManifest     = "manifest"
)
