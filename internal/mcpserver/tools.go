package mcpserver

import (
	"context"
	"errors"

	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/rag"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultSearchLimit = 5

type SearchInput struct {
	CollectionId string `json:"collection_id" jsonschema:"the filebook to search"`
	Query        string `json:"query" jsonschema:"what to look for"`
	DocumentId   string `json:"document_id,omitempty" jsonschema:"restrict the search to one document"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

type SearchOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

type ChunkOutput struct {
	DocumentId string  `json:"document_id"`
	DocName    string  `json:"doc_name"`
	ChunkOrder int     `json:"chunk_order"`
	Score      float32 `json:"score"`
	Content    string  `json:"content"`
}

type AskInput struct {
	CollectionId string `json:"collection_id" jsonschema:"the filebook to ask about"`
	Question     string `json:"question" jsonschema:"the question"`
	DocumentId   string `json:"document_id,omitempty" jsonschema:"restrict the answer to one document"`
	Model        string `json:"model,omitempty" jsonschema:"chat model id, defaults to the server default"`
}

type AskOutput struct {
	Answer  string       `json:"answer"`
	Model   string       `json:"model"`
	Sources []rag.Source `json:"sources"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_filebook",
		Description: "Semantic search over the chunks of a filebook. Retrieval only, no model call.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_filebook",
		Description: "Answer a question from the documents of a filebook. The turn is recorded in the filebook's transcript.",
	}, s.handleAsk)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	hits, err := s.service.Search(ctx, rag.SearchRequest{
		Session:      s.session,
		CollectionId: input.CollectionId,
		DocumentId:   input.DocumentId,
		Query:        input.Query,
		TopK:         limit,
	})
	if err != nil {
		return nil, SearchOutput{}, s.toolError(ctx, "search_filebook", err)
	}

	out := SearchOutput{Results: make([]ChunkOutput, len(hits)), Count: len(hits)}
	for i, h := range hits {
		out.Results[i] = ChunkOutput{
			DocumentId: h.Doc.Id,
			DocName:    h.Doc.Name,
			ChunkOrder: h.ChunkOrder,
			Score:      h.Score,
			Content:    h.Chunk,
		}
	}
	return nil, out, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.service.Ask(ctx, rag.AskRequest{
		Session:      s.session,
		CollectionId: input.CollectionId,
		DocumentId:   input.DocumentId,
		Question:     input.Question,
		Model:        input.Model,
	})
	if err != nil {
		return nil, AskOutput{}, s.toolError(ctx, "ask_filebook", err)
	}
	sources := answer.Sources
	if sources == nil {
		sources = []rag.Source{}
	}
	return nil, AskOutput{Answer: answer.Text, Model: string(answer.Model), Sources: sources}, nil
}

// toolError keeps internal causes in the log and hands the client the safe message.
func (s *Server) toolError(ctx context.Context, tool string, err error) error {
	fe := filebookModel.AsError(err)
	s.logger.WithContext(ctx).Warn("tool call failed", "tool", tool, "kind", fe.Kind, "error", err)
	return errors.New(fe.Message)
}
