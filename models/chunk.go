package models

// Chunk is a bounded text window cut from a source document. It is the
// unit of indexing: one chunk maps to exactly one stored vector.
type Chunk struct {
	ChunkID  string            `json:"chunk_id" bson:"chunk_id"`
	Source   string            `json:"source" bson:"source"`
	Index    int               `json:"index" bson:"index"`
	Text     string            `json:"text" bson:"text"`
	Metadata map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// IndexedChunk is the persisted form of a chunk inside a vector
// collection. Text may be stored compressed for large chunks; Vector is
// always unit-normalized before storage so dot product equals cosine
// similarity.
type IndexedChunk struct {
	ChunkID     string            `bson:"chunk_id"`
	Source      string            `bson:"source"`
	Index       int               `bson:"index"`
	Text        string            `bson:"text,omitempty"`
	Compressed  []byte            `bson:"compressed,omitempty"`
	Compression string            `bson:"compression,omitempty"`
	Vector      []float64         `bson:"vector"`
	Metadata    map[string]string `bson:"metadata,omitempty"`
	Seq         int64             `bson:"seq"`
}

// CollectionMeta records per-collection settings, most importantly the
// vector dimensionality fixed by the first upsert.
type CollectionMeta struct {
	Name      string `bson:"name"`
	Dimension int    `bson:"dimension"`
}
