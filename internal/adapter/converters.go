package adapter

import (
	"github.com/akolanti/filebook/internal/api"
	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/quota"
	"github.com/akolanti/filebook/internal/rag"
	"github.com/akolanti/filebook/internal/rag/ingest"
)

func ToAskResponse(answer rag.Answer) api.AskResponse {
	sources := make([]api.SourceResponse, len(answer.Sources))
	for i, s := range answer.Sources {
		sources[i] = api.SourceResponse{
			DocumentId: s.DocumentId,
			DocName:    s.DocName,
			ChunkOrder: s.ChunkOrder,
			Score:      s.Score,
		}
	}
	return api.AskResponse{
		Answer:  answer.Text,
		Model:   string(answer.Model),
		Sources: sources,
	}
}

func ToUploadResponse(result ingest.Result) api.UploadResponse {
	return api.UploadResponse{
		DocumentId:      result.Document.Id,
		DocName:         result.Document.Name,
		ChunksProcessed: result.ChunksProcessed,
		TotalChunks:     result.TotalChunks,
		Warning:         result.Warning,
	}
}

func ToCollectionResponse(c filebookModel.Collection) api.CollectionResponse {
	return api.CollectionResponse{
		Id:         c.Id,
		Name:       c.Name,
		OwnerId:    c.OwnerId,
		IsFeatured: c.IsFeatured,
		CreatedAt:  c.CreatedAt,
	}
}

func ToCollectionResponses(collections []filebookModel.Collection) []api.CollectionResponse {
	out := make([]api.CollectionResponse, len(collections))
	for i, c := range collections {
		out[i] = ToCollectionResponse(c)
	}
	return out
}

func ToDocumentResponses(docs []commonModels.Document) []api.DocumentResponse {
	out := make([]api.DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = api.DocumentResponse{
			Id:         d.Id,
			Name:       d.Name,
			Format:     string(d.Format),
			ChunkCount: d.ChunkCount,
			CreatedAt:  d.CreatedAt,
		}
	}
	return out
}

func ToMessageResponses(msgs []filebookModel.ChatMessage) []api.MessageResponse {
	out := make([]api.MessageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = api.MessageResponse{
			Id:        m.Id,
			Role:      string(m.Role),
			Content:   m.Content,
			Model:     m.Model,
			CreatedAt: m.CreatedAt,
		}
	}
	return out
}

func ToUsageResponse(u quota.Usage) api.UsageResponse {
	return api.UsageResponse{
		Plan:             string(u.Plan),
		QuestionsToday:   u.QuestionsToday,
		QuestionsLimit:   u.QuestionsLimit,
		CollectionsCount: u.CollectionsCount,
		CollectionsLimit: u.CollectionsLimit,
		DocumentsCount:   u.DocumentsCount,
		DocumentsLimit:   u.DocumentsLimit,
	}
}

// ToErrorResponse builds the envelope for err. Only the client facing message
// of a typed error is exposed; anything else becomes a generic 500.
func ToErrorResponse(id string, err error) (int, api.ErrorResponse) {
	fe := filebookModel.AsError(err)
	code := fe.HTTPStatus()
	return code, api.ErrorResponse{
		Id: id,
		Error: &api.OutgoingError{
			Code:    code,
			Message: fe.Message,
			Retry:   fe.Retryable(),
		},
	}
}

func BadRequest(id string, message string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Id: id,
		Error: &api.OutgoingError{
			Code:    code,
			Message: message,
			Retry:   false,
		},
	}
}
