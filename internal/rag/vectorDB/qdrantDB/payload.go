package qdrantDB

import (
	"time"

	"github.com/akolanti/filebook/internal/domain/commonModels"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/qdrant/go-client/qdrant"
)

func toPoint(chunk commonModels.DocChunk) *qdrant.PointStruct {
	ingestedAt := chunk.Doc.CreatedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now()
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(chunk.ChunkId),
		Vectors: qdrant.NewVectors(chunk.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			vectorDB.FieldContent:      chunk.Chunk,
			vectorDB.FieldDocumentID:   chunk.Doc.Id,
			vectorDB.FieldDocName:      chunk.Doc.Name,
			vectorDB.FieldCollectionID: chunk.CollectionId,
			vectorDB.FieldOwnerID:      chunk.OwnerId,
			vectorDB.FieldChunkOrder:   chunk.ChunkOrder,
			vectorDB.FieldChunkTotal:   chunk.ChunkTotal,
			vectorDB.FieldIngestedAt:   ingestedAt.Unix(),
		}),
	}
}

func fromPoint(hit *qdrant.ScoredPoint) commonModels.ScoredChunk {
	p := hit.GetPayload()
	return commonModels.ScoredChunk{
		DocChunk: commonModels.DocChunk{
			Doc: commonModels.Document{
				Id:           p[vectorDB.FieldDocumentID].GetStringValue(),
				Name:         p[vectorDB.FieldDocName].GetStringValue(),
				CollectionId: p[vectorDB.FieldCollectionID].GetStringValue(),
				OwnerId:      p[vectorDB.FieldOwnerID].GetStringValue(),
				CreatedAt:    time.Unix(p[vectorDB.FieldIngestedAt].GetIntegerValue(), 0),
			},
			ChunkId:      hit.GetId().GetUuid(),
			Chunk:        p[vectorDB.FieldContent].GetStringValue(),
			ChunkOrder:   int(p[vectorDB.FieldChunkOrder].GetIntegerValue()),
			ChunkTotal:   int(p[vectorDB.FieldChunkTotal].GetIntegerValue()),
			CollectionId: p[vectorDB.FieldCollectionID].GetStringValue(),
			OwnerId:      p[vectorDB.FieldOwnerID].GetStringValue(),
		},
		Score: hit.GetScore(),
	}
}

func toQdrantFilter(f vectorDB.Filter) *qdrant.Filter {
	must := []*qdrant.Condition{qdrant.NewMatch(vectorDB.FieldCollectionID, f.CollectionID)}
	if f.OwnerID != "" {
		must = append(must, qdrant.NewMatch(vectorDB.FieldOwnerID, f.OwnerID))
	}
	if f.DocumentID != "" {
		must = append(must, qdrant.NewMatch(vectorDB.FieldDocumentID, f.DocumentID))
	}
	return &qdrant.Filter{Must: must}
}
