package api

import "time"

// ErrorResponse is the envelope every failed request gets.
type ErrorResponse struct {
	Id    string         `json:"id" example:"4f5c1d2e-trace"`
	Error *OutgoingError `json:"error"`
}

type OutgoingError struct {
	Code    int    `json:"code" example:"403"`
	Message string `json:"message" example:"Your daily limit for gemini-2.5-flash (10/10) is reached."`
	Retry   bool   `json:"can_retry" example:"false"`
}

type SourceResponse struct {
	DocumentId string  `json:"document_id"`
	DocName    string  `json:"doc_name"`
	ChunkOrder int     `json:"chunk_order"`
	Score      float32 `json:"score"`
}

type AskResponse struct {
	Answer  string           `json:"answer" example:"Revenue grew 12% in Q3."`
	Model   string           `json:"model" example:"gemini-2.5-flash"`
	Sources []SourceResponse `json:"sources"`
}

type UploadResponse struct {
	DocumentId      string `json:"document_id"`
	DocName         string `json:"doc_name"`
	ChunksProcessed int    `json:"chunks_processed" example:"6"`
	TotalChunks     int    `json:"total_chunks" example:"6"`
	Warning         string `json:"warning,omitempty"`
}

type CollectionResponse struct {
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerId    string    `json:"owner_id"`
	IsFeatured bool      `json:"is_featured"`
	CreatedAt  time.Time `json:"created_at"`
}

type DocumentResponse struct {
	Id         string    `json:"document_id"`
	Name       string    `json:"doc_name"`
	Format     string    `json:"format" example:"PDF"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type MessageResponse struct {
	Id        string    `json:"id"`
	Role      string    `json:"role" example:"assistant"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type UsageResponse struct {
	Plan             string `json:"plan" example:"FREE"`
	QuestionsToday   int    `json:"questions_today"`
	QuestionsLimit   int    `json:"questions_limit"`
	CollectionsCount int    `json:"collections_count"`
	CollectionsLimit int    `json:"collections_limit"`
	DocumentsCount   int    `json:"documents_count"`
	DocumentsLimit   int    `json:"documents_limit"`
}

// requests---------------------

type AskRequest struct {
	Question     string `json:"question" validate:"required" example:"What was Q3 revenue?"`
	CollectionId string `json:"collection_id" validate:"required"`
	DocumentId   string `json:"document_id,omitempty"`
	Model        string `json:"model,omitempty" example:"gemini-2.5-flash"`
}

type CreateCollectionRequest struct {
	Name string `json:"name" validate:"required" example:"Tax returns"`
}
