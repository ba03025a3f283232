package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/filebook/internal/adapter/utils"
	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/metrics"
	"github.com/akolanti/filebook/internal/quota"
	"github.com/akolanti/filebook/internal/rag/embedding"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/akolanti/filebook/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Ingestion")

const compensationTimeout = 15 * time.Second

// Offloader runs CPU bound work away from the request goroutine and waits
// for it. *worker.Pool satisfies it.
type Offloader interface {
	Do(ctx context.Context, fn func()) error
}

type DocumentGate interface {
	CanAddDocument(ctx context.Context, ownerId string, plan filebookModel.Plan) (quota.Decision, error)
}

type Store interface {
	GetCollection(ctx context.Context, id string) (filebookModel.Collection, error)
	CreateDocument(ctx context.Context, d commonModels.Document) error
	DeleteDocument(ctx context.Context, id string) error
}

type Upload struct {
	Session      filebookModel.Session
	CollectionId string
	FileName     string
	MediaType    string
	Data         []byte
}

type Result struct {
	Document        commonModels.Document
	ChunksProcessed int
	TotalChunks     int
	Warning         string
}

type Ingestor struct {
	store     Store
	gate      DocumentGate
	embedder  embedding.Embedder
	index     vectorDB.DataProcessor
	offloader Offloader

	chunkSize     int
	chunkOverlap  int
	chunkBytes    int
	maxUploadSize int64
}

func NewIngestor(store Store, gate DocumentGate, embedder embedding.Embedder, index vectorDB.DataProcessor, offloader Offloader, settings config.IngestSettings) *Ingestor {
	return &Ingestor{
		store:         store,
		gate:          gate,
		embedder:      embedder,
		index:         index,
		offloader:     offloader,
		chunkSize:     settings.ChunkSize,
		chunkOverlap:  settings.ChunkOverlap,
		chunkBytes:    maxChunkBytes(settings.ChunkSize),
		maxUploadSize: settings.MaxUploadSize,
	}
}

// Ingest parses, chunks, embeds and indexes one uploaded file. The Document
// record only survives when every vector batch was written.
func (in *Ingestor) Ingest(ctx context.Context, up Upload) (res Result, err error) {
	log := logger.WithContext(ctx).With("collectionId", up.CollectionId, "fileName", up.FileName)
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("ingest", time.Since(start))
		metrics.IncrementUploads(uploadOutcome(res, err))
	}()

	if len(up.Data) == 0 {
		return Result{}, filebookModel.Validation("No file provided")
	}
	if in.maxUploadSize > 0 && int64(len(up.Data)) > in.maxUploadSize {
		return Result{}, filebookModel.Validation(TooLargeMessage(in.maxUploadSize))
	}
	if up.CollectionId == "" {
		return Result{}, filebookModel.Validation("Filebook ID is required")
	}

	collection, err := in.store.GetCollection(ctx, up.CollectionId)
	if errors.Is(err, filebookModel.ErrNotFound) {
		return Result{}, filebookModel.NotFound("Filebook not found")
	}
	if err != nil {
		return Result{}, filebookModel.Internal(err)
	}
	if !collection.CanWrite(up.Session) {
		return Result{}, filebookModel.Forbidden("You do not have access to this filebook")
	}

	decision, err := in.gate.CanAddDocument(ctx, collection.OwnerId, collection.OwnerPlan)
	if err != nil {
		return Result{}, filebookModel.Internal(err)
	}
	if !decision.Allowed {
		return Result{}, decision.Error()
	}

	parsed, err := in.parse(ctx, up)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return Result{}, filebookModel.NewError(filebookModel.KindParse, perr.Error(), perr)
		}
		return Result{}, filebookModel.Internal(err)
	}

	texts := capChunkBytes(SplitText(parsed.Text, in.chunkSize, in.chunkOverlap), in.chunkBytes)
	if len(texts) == 0 {
		return Result{}, filebookModel.NewError(filebookModel.KindParse, reasonMessages[emptyReason(parsed.Format)], nil)
	}
	log.Debug("document chunked", "format", parsed.Format, "chunks", len(texts))

	doc := commonModels.Document{
		Id:           utils.GetNewUUID(),
		Name:         up.FileName,
		MediaType:    up.MediaType,
		Format:       parsed.Format,
		CollectionId: collection.Id,
		OwnerId:      collection.OwnerId,
		CreatedAt:    time.Now(),
	}
	log = log.With("documentId", doc.Id)

	chunks := in.embedChunks(ctx, log, doc, texts)
	if len(chunks) == 0 {
		log.Error("every chunk failed to embed", "chunks", len(texts))
		return Result{}, filebookModel.NewError(filebookModel.KindInternal,
			"Failed to process document. Please try again later.", nil)
	}

	doc.ChunkCount = len(chunks)
	if err := in.store.CreateDocument(ctx, doc); err != nil {
		return Result{}, filebookModel.Internal(err)
	}

	if err := in.index.Upsert(ctx, chunks); err != nil {
		log.Error("vector upsert failed, removing document", "error", err)
		in.compensate(ctx, log, doc.Id)
		return Result{}, filebookModel.Internal(err)
	}

	log.Info("document ingested", "chunksProcessed", len(chunks), "totalChunks", len(texts))
	return Result{
		Document:        doc,
		ChunksProcessed: len(chunks),
		TotalChunks:     len(texts),
		Warning:         parsed.Warning,
	}, nil
}

func (in *Ingestor) parse(ctx context.Context, up Upload) (ParsedFile, error) {
	if in.offloader == nil {
		return ParseFile(up.Data, up.FileName, up.MediaType)
	}
	var (
		parsed   ParsedFile
		parseErr error
	)
	err := in.offloader.Do(ctx, func() {
		parsed, parseErr = ParseFile(up.Data, up.FileName, up.MediaType)
	})
	if err != nil {
		return ParsedFile{}, err
	}
	return parsed, parseErr
}

// embedChunks keeps the chunks that embedded and drops the rest. Ordinals
// refer to the position in the full document so gaps stay visible.
func (in *Ingestor) embedChunks(ctx context.Context, log *logger_i.Logger, doc commonModels.Document, texts []string) []commonModels.DocChunk {
	results := embedding.EmbedAll(ctx, in.embedder, texts, embedding.IntentDocument,
		config.EmbeddingBatchSize, config.EmbeddingConcurrency)

	chunks := make([]commonModels.DocChunk, 0, len(results))
	for _, r := range results {
		if !r.Ok() {
			log.Warn("chunk embedding failed", "chunk", r.Index, "error", r.Err)
			continue
		}
		chunks = append(chunks, commonModels.DocChunk{
			Doc:          doc,
			ChunkId:      utils.GetNewUUID(),
			Chunk:        texts[r.Index],
			ChunkOrder:   r.Index,
			ChunkTotal:   len(texts),
			CollectionId: doc.CollectionId,
			OwnerId:      doc.OwnerId,
			Vector:       r.Vector,
		})
	}
	metrics.AddChunks(len(chunks), len(texts)-len(chunks))
	return chunks
}

// compensate undoes a half written document. It runs detached from the
// request so a disconnecting client cannot leave the row behind.
func (in *Ingestor) compensate(ctx context.Context, log *logger_i.Logger, documentId string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := in.index.DeleteByDocument(cctx, documentId); err != nil {
		log.Error("could not purge partial vectors", "error", err)
	}
	if err := in.store.DeleteDocument(cctx, documentId); err != nil {
		// the document stays with no vectors; retrieval treats it as empty context
		log.Error("compensating delete failed, document left without vectors", "error", err)
	}
}

func uploadOutcome(res Result, err error) string {
	switch {
	case err != nil:
		if e := filebookModel.AsError(err); e != nil {
			return string(e.Kind)
		}
		return "error"
	case res.ChunksProcessed < res.TotalChunks:
		return "partial"
	default:
		return "ok"
	}
}

// TooLargeMessage is the rejection shown for uploads above maxBytes.
func TooLargeMessage(maxBytes int64) string {
	return "File is too large. Maximum size is " + formatSize(maxBytes)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
