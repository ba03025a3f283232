package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/filebook/internal/adapter/utils"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
)

var (
	_ filebookModel.Store = (*RedisFilebookStore)(nil)
	_ filebookModel.Store = (*GormFilebookStore)(nil)
	_ filebookModel.Store = (*InMemoryFilebookStore)(nil)
)

// redis key layout
func collectionKey(id string) string         { return "collection:" + id }
func collectionDocsKey(id string) string     { return "collection:" + id + ":documents" }
func collectionMessagesKey(id string) string { return "collection:" + id + ":messages" }
func ownerCollectionsKey(id string) string   { return "owner:" + id + ":collections" }
func ownerDocsKey(id string) string          { return "owner:" + id + ":documents" }
func documentKey(id string) string           { return "document:" + id }

const usageAssistantKey = "usage:assistant"

func usageAssistantModelKey(model string) string { return usageAssistantKey + ":" + model }

// an empty model addresses the all-models index
func usageUserKey(userId, model string) string {
	if model == "" {
		return "usage:user:" + userId
	}
	return "usage:user:" + userId + ":" + model
}

func decode[T any](raw string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}

// countsTowardUsage reports whether a message consumed a model call. Greeting
// and canned replies are stored without a model.
func countsTowardUsage(m filebookModel.ChatMessage) bool {
	return m.Model != ""
}

func prepareMessage(m filebookModel.ChatMessage, collectionId string) filebookModel.ChatMessage {
	if m.Id == "" {
		m.Id = utils.GetNewUUID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.CollectionId = collectionId
	return m
}
