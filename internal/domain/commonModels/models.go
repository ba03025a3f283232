package commonModels

import "time"

// Document is the relational record of an uploaded file. Its text lives only
// in the vector index, split into DocChunks.
type Document struct {
	Id           string    `json:"document_id"`
	Name         string    `json:"doc_name"`
	MediaType    string    `json:"media_type"`
	Format       DocType   `json:"format"`
	CollectionId string    `json:"collection_id"`
	OwnerId      string    `json:"owner_id"`
	ChunkCount   int       `json:"chunk_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocChunk is one vector index record.
type DocChunk struct {
	Doc          Document  `json:"-"`
	ChunkId      string    `json:"chunk_id"`
	Chunk        string    `json:"content"`
	ChunkOrder   int       `json:"chunk_order"`
	ChunkTotal   int       `json:"chunk_total"`
	CollectionId string    `json:"collection_id"`
	OwnerId      string    `json:"owner_id"`
	Vector       []float32 `json:"-"`
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	DocChunk
	Score float32 `json:"score"`
}

type DocType string

const (
	PDF     DocType = "PDF"
	DOCX    DocType = "DOCX"
	DOC     DocType = "DOC"
	XLSX    DocType = "XLSX"
	XLS     DocType = "XLS"
	CSV     DocType = "CSV"
	TXT     DocType = "TXT"
	UNKNOWN DocType = "UNKNOWN"
)
