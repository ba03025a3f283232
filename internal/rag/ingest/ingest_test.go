package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/data/store"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/quota"
	"github.com/akolanti/filebook/internal/rag/embedding"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/akolanti/filebook/internal/rag/vectorDB/memoryDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockEmbedder struct {
	OnEmbed func(text string) ([]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, text string, intent embedding.Intent) ([]float32, error) {
	return m.OnEmbed(text)
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, texts []string, intent embedding.Intent) []embedding.Result {
	out := make([]embedding.Result, len(texts))
	for i, text := range texts {
		v, err := m.OnEmbed(text)
		out[i] = embedding.Result{Index: i, Vector: v, Err: err}
	}
	return out
}

type failingIndex struct {
	*memoryDB.Index
	OnUpsert func(chunks []commonModels.DocChunk) error

	mu            sync.Mutex
	deletedDocIds []string
}

func (f *failingIndex) Upsert(ctx context.Context, chunks []commonModels.DocChunk) error {
	if f.OnUpsert != nil {
		return f.OnUpsert(chunks)
	}
	return f.Index.Upsert(ctx, chunks)
}

func (f *failingIndex) DeleteByDocument(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deletedDocIds = append(f.deletedDocIds, id)
	f.mu.Unlock()
	return f.Index.DeleteByDocument(ctx, id)
}

type inlineOffloader struct {
	calls int
}

func (o *inlineOffloader) Do(ctx context.Context, fn func()) error {
	o.calls++
	fn()
	return nil
}

// --- Fixtures ---

var owner = filebookModel.Session{UserId: "alice", Role: filebookModel.RoleUser, Plan: filebookModel.PlanFree}

func okEmbedder() *mockEmbedder {
	return &mockEmbedder{OnEmbed: func(text string) ([]float32, error) {
		return []float32{1, float32(len(text)), 0.5}, nil
	}}
}

type fixture struct {
	store     *store.InMemoryFilebookStore
	index     *failingIndex
	offloader *inlineOffloader
	ingestor  *Ingestor
}

func newFixture(t *testing.T, e embedding.Embedder) *fixture {
	t.Helper()
	return newFixtureWith(t, e, config.IngestSettings{ChunkSize: 1000, ChunkOverlap: 100, MaxUploadSize: config.MaxUploadSize})
}

func newFixtureWith(t *testing.T, e embedding.Embedder, settings config.IngestSettings) *fixture {
	t.Helper()
	s := store.InitInMemoryFilebookStore()
	require.NoError(t, s.CreateCollection(context.Background(), filebookModel.Collection{
		Id: "c1", Name: "notes", OwnerId: owner.UserId, OwnerPlan: filebookModel.PlanFree,
	}))
	index := &failingIndex{Index: memoryDB.NewIndex(3)}
	offloader := &inlineOffloader{}
	gate := quota.NewGovernor(s, config.DefaultQuota())
	return &fixture{
		store:     s,
		index:     index,
		offloader: offloader,
		ingestor:  NewIngestor(s, gate, e, index, offloader, settings),
	}
}

func textUpload(body string) Upload {
	return Upload{
		Session:      owner,
		CollectionId: "c1",
		FileName:     "notes.txt",
		MediaType:    "text/plain",
		Data:         []byte(body),
	}
}

func documentsIn(t *testing.T, f *fixture) []commonModels.Document {
	t.Helper()
	docs, err := f.store.ListDocuments(context.Background(), "c1")
	require.NoError(t, err)
	return docs
}

func kindOf(err error) filebookModel.ErrorKind {
	if e := filebookModel.AsError(err); e != nil {
		return e.Kind
	}
	return ""
}

// --- Tests ---

func TestIngest_HappyPath(t *testing.T) {
	f := newFixture(t, okEmbedder())
	body := strings.Repeat("abcdefghij", 500)

	res, err := f.ingestor.Ingest(context.Background(), textUpload(body))
	require.NoError(t, err)

	assert.Equal(t, 6, res.TotalChunks)
	assert.Equal(t, 6, res.ChunksProcessed)
	assert.Equal(t, 6, res.Document.ChunkCount)
	assert.Equal(t, commonModels.TXT, res.Document.Format)
	assert.Equal(t, owner.UserId, res.Document.OwnerId)
	assert.Equal(t, 6, f.index.Len())
	assert.Equal(t, 1, f.offloader.calls, "parsing runs on the offloader")

	docs := documentsIn(t, f)
	require.Len(t, docs, 1)
	assert.Equal(t, res.Document.Id, docs[0].Id)

	hits, err := f.index.Query(context.Background(), []float32{1, 1000, 0.5}, 10, vectorDB.Filter{CollectionID: "c1", DocumentID: res.Document.Id})
	require.NoError(t, err)
	require.Len(t, hits, 6)
	for _, h := range hits {
		assert.Equal(t, 6, h.ChunkTotal)
		assert.Equal(t, "notes.txt", h.Doc.Name)
	}
}

func TestIngest_PartialEmbeddingFailure(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	e := &mockEmbedder{OnEmbed: func(text string) ([]float32, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if len([]rune(text)) < 1000 {
			return nil, errors.New("RESOURCE_EXHAUSTED")
		}
		return []float32{1, 2, 3}, nil
	}}
	f := newFixture(t, e)

	// 6 windows, only the last one is shorter than the chunk size
	body := strings.Repeat("abcdefghij", 500)
	res, err := f.ingestor.Ingest(context.Background(), textUpload(body))
	require.NoError(t, err)

	assert.Equal(t, 6, res.TotalChunks)
	assert.Greater(t, res.ChunksProcessed, 0)
	assert.Less(t, res.ChunksProcessed, res.TotalChunks)
	assert.Equal(t, res.ChunksProcessed, f.index.Len())
	assert.Len(t, documentsIn(t, f), 1)
}

func TestIngest_TotalEmbeddingFailure(t *testing.T) {
	e := &mockEmbedder{OnEmbed: func(string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}}
	f := newFixture(t, e)

	_, err := f.ingestor.Ingest(context.Background(), textUpload(strings.Repeat("abcdefghij", 500)))
	require.Error(t, err)
	assert.Equal(t, filebookModel.KindInternal, kindOf(err))
	assert.Empty(t, documentsIn(t, f))
	assert.Zero(t, f.index.Len())
}

func TestIngest_UpsertFailureCompensates(t *testing.T) {
	f := newFixture(t, okEmbedder())
	f.index.OnUpsert = func([]commonModels.DocChunk) error {
		return errors.New("qdrant unavailable")
	}

	_, err := f.ingestor.Ingest(context.Background(), textUpload("some useful text"))
	require.Error(t, err)
	assert.Equal(t, filebookModel.KindInternal, kindOf(err))
	assert.Empty(t, documentsIn(t, f), "document row must be rolled back")
	assert.Len(t, f.index.deletedDocIds, 1)
}

func TestIngest_ParseFailureCreatesNothing(t *testing.T) {
	f := newFixture(t, okEmbedder())

	_, err := f.ingestor.Ingest(context.Background(), textUpload("   \n  "))
	require.Error(t, err)
	assert.Equal(t, filebookModel.KindParse, kindOf(err))
	assert.Equal(t, 400, filebookModel.AsError(err).HTTPStatus())
	assert.Equal(t, "Text file appears to be empty", filebookModel.AsError(err).Message)
	assert.Empty(t, documentsIn(t, f))
}

func TestIngest_Validation(t *testing.T) {
	f := newFixture(t, okEmbedder())

	tests := []struct {
		name   string
		upload Upload
		want   filebookModel.ErrorKind
	}{
		{"no data", Upload{Session: owner, CollectionId: "c1", FileName: "a.txt"}, filebookModel.KindValidation},
		{"too large", Upload{Session: owner, CollectionId: "c1", FileName: "a.txt", Data: make([]byte, config.MaxUploadSize+1)}, filebookModel.KindValidation},
		{"no collection id", Upload{Session: owner, FileName: "a.txt", Data: []byte("x")}, filebookModel.KindValidation},
		{"unknown collection", Upload{Session: owner, CollectionId: "ghost", FileName: "a.txt", Data: []byte("x")}, filebookModel.KindNotFound},
		{"not the owner", Upload{Session: filebookModel.Session{UserId: "mallory"}, CollectionId: "c1", FileName: "a.txt", Data: []byte("x")}, filebookModel.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ingestor.Ingest(context.Background(), tt.upload)
			assert.Equal(t, tt.want, kindOf(err))
		})
	}
	assert.Zero(t, f.offloader.calls, "nothing was parsed")
}

func TestIngest_AdminMayUploadAnywhere(t *testing.T) {
	f := newFixture(t, okEmbedder())
	up := textUpload("admin notes")
	up.Session = filebookModel.Session{UserId: "root", Role: filebookModel.RoleAdmin}

	res, err := f.ingestor.Ingest(context.Background(), up)
	require.NoError(t, err)
	assert.Equal(t, owner.UserId, res.Document.OwnerId, "documents belong to the collection owner")
}

func TestIngest_DocumentLimit(t *testing.T) {
	f := newFixture(t, okEmbedder())
	ctx := context.Background()
	for i := range config.FreeMaxDocuments {
		require.NoError(t, f.store.CreateDocument(ctx, commonModels.Document{
			Id: "existing-" + string(rune('a'+i)), CollectionId: "c1", OwnerId: owner.UserId,
		}))
	}

	_, err := f.ingestor.Ingest(ctx, textUpload("one too many"))
	assert.Equal(t, filebookModel.KindQuota, kindOf(err))
}

func TestIngest_LargeChunkSizeKeepsEveryWord(t *testing.T) {
	f := newFixtureWith(t, okEmbedder(), config.IngestSettings{ChunkSize: 5000, ChunkOverlap: 500, MaxUploadSize: config.MaxUploadSize})
	var indexed []commonModels.DocChunk
	f.index.OnUpsert = func(chunks []commonModels.DocChunk) error {
		indexed = append(indexed, chunks...)
		return nil
	}

	var b strings.Builder
	words := 0
	for b.Len() < 12000 {
		fmt.Fprintf(&b, "w%05d ", words)
		words++
	}

	res, err := f.ingestor.Ingest(context.Background(), textUpload(b.String()))
	require.NoError(t, err)
	assert.Equal(t, len(SplitText(b.String(), 5000, 500)), res.TotalChunks)
	require.Len(t, indexed, res.TotalChunks)

	for i := range words {
		word := fmt.Sprintf("w%05d ", i)
		found := false
		for _, c := range indexed {
			if strings.Contains(c.Chunk, word) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("%q is missing from every chunk", word)
		}
	}
	for _, c := range indexed {
		assert.LessOrEqual(t, len([]rune(c.Chunk)), 5000)
	}
}

func TestIngest_TooLargeMessageFollowsSetting(t *testing.T) {
	f := newFixtureWith(t, okEmbedder(), config.IngestSettings{ChunkSize: 1000, ChunkOverlap: 100, MaxUploadSize: 512 << 10})
	up := textUpload(strings.Repeat("a", 512<<10+1))

	_, err := f.ingestor.Ingest(context.Background(), up)
	require.Error(t, err)
	assert.Equal(t, filebookModel.KindValidation, kindOf(err))
	assert.Equal(t, "File is too large. Maximum size is 512KB", filebookModel.AsError(err).Message)
}

func TestTooLargeMessage(t *testing.T) {
	tests := []struct {
		max  int64
		want string
	}{
		{config.MaxUploadSize, "File is too large. Maximum size is 2MB"},
		{1024, "File is too large. Maximum size is 1KB"},
		{1500, "File is too large. Maximum size is 1500 bytes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TooLargeMessage(tt.max))
	}
}
