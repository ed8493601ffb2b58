package models

import "time"

type Document struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Chunks    int       `json:"chunks,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Label returns the title, or the URL when the source had none.
func (d Document) Label() string {
	if d.Title != "" {
		return d.Title
	}
	return d.URL
}

type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	Index      int       `json:"chunk_index"`
}

// RetrievalMatch is one ranked row returned by similarity search.
type RetrievalMatch struct {
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

type Citation struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Answer is the body returned by the query endpoint.
type Answer struct {
	Answer    string     `json:"answer"`
	Safe      bool       `json:"safe"`
	Citations []Citation `json:"citations"`
	FollowUps []string   `json:"followUps"`
}
