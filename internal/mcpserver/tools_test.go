package mcpserver

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/rag"
	"github.com/akolanti/filebook/internal/rag/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	OnAsk    func(ctx context.Context, req rag.AskRequest) (rag.Answer, error)
	OnSearch func(ctx context.Context, req rag.SearchRequest) ([]commonModels.ScoredChunk, error)
}

func (m *MockService) Ask(ctx context.Context, req rag.AskRequest) (rag.Answer, error) {
	return m.OnAsk(ctx, req)
}

func (m *MockService) AskStream(ctx context.Context, req rag.AskRequest, w io.Writer) (rag.Answer, error) {
	return rag.Answer{}, errors.New("not used over MCP")
}

func (m *MockService) Search(ctx context.Context, req rag.SearchRequest) ([]commonModels.ScoredChunk, error) {
	return m.OnSearch(ctx, req)
}

func TestHandleSearch(t *testing.T) {
	var got rag.SearchRequest
	s := NewServer(&MockService{OnSearch: func(ctx context.Context, req rag.SearchRequest) ([]commonModels.ScoredChunk, error) {
		got = req
		return []commonModels.ScoredChunk{{
			DocChunk: commonModels.DocChunk{Doc: commonModels.Document{Id: "d1", Name: "report.pdf"}, Chunk: "Revenue grew", ChunkOrder: 2},
			Score:    0.87,
		}}, nil
	}})

	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{CollectionId: "c1", Query: "revenue"})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "report.pdf", out.Results[0].DocName)
	assert.Equal(t, "Revenue grew", out.Results[0].Content)
	assert.Equal(t, defaultSearchLimit, got.TopK)
	assert.True(t, got.Session.IsAdmin(), "operators run with an admin session")
}

func TestHandleAsk(t *testing.T) {
	s := NewServer(&MockService{OnAsk: func(ctx context.Context, req rag.AskRequest) (rag.Answer, error) {
		return rag.Answer{Text: "Hello!", Model: llm.ModelGeminiFlash, Canned: true}, nil
	}})

	_, out, err := s.handleAsk(context.Background(), nil, AskInput{CollectionId: "c1", Question: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", out.Answer)
	assert.NotNil(t, out.Sources)
}

func TestToolErrorsAreSafe(t *testing.T) {
	s := NewServer(&MockService{OnAsk: func(ctx context.Context, req rag.AskRequest) (rag.Answer, error) {
		return rag.Answer{}, filebookModel.Internal(errors.New("qdrant: connection refused at 10.1.2.3"))
	}})

	_, _, err := s.handleAsk(context.Background(), nil, AskInput{CollectionId: "c1", Question: "q"})
	require.Error(t, err)
	assert.Equal(t, "Something went wrong. Please try again later.", err.Error())
}
