package models

// RetrievalMatch is one ranked hit from a similarity query. Matches are
// transient: they exist only in the response path and are never persisted.
type RetrievalMatch struct {
	Score   float64 `json:"score"`
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Index   int     `json:"index"`
	Text    string  `json:"text"`
}
