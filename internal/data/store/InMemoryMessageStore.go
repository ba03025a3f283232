package store

import (
	"context"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
)

func (store *InMemoryFilebookStore) AppendMessages(ctx context.Context, collectionId string, retain int, msgs ...filebookModel.ChatMessage) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	transcript := store.messages[collectionId]
	for _, m := range msgs {
		m = prepareMessage(m, collectionId)
		transcript = append(transcript, m)
		if countsTowardUsage(m) {
			store.usage = append(store.usage, m)
		}
	}
	if retain > 0 && len(transcript) > retain {
		// copy so the evicted messages are not kept alive by the backing array
		transcript = append([]filebookModel.ChatMessage(nil), transcript[len(transcript)-retain:]...)
	}
	store.messages[collectionId] = transcript
	store.pruneUsage(time.Now().Add(-config.UsageIndexRetention))
	return nil
}

func (store *InMemoryFilebookStore) RecentMessages(ctx context.Context, collectionId string, n int) ([]filebookModel.ChatMessage, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	transcript := store.messages[collectionId]
	if n <= 0 {
		return []filebookModel.ChatMessage{}, nil
	}
	if len(transcript) > n {
		transcript = transcript[len(transcript)-n:]
	}
	return append([]filebookModel.ChatMessage(nil), transcript...), nil
}

func (store *InMemoryFilebookStore) CountMessages(ctx context.Context, collectionId string) (int, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.messages[collectionId]), nil
}

func (store *InMemoryFilebookStore) CountAssistantSince(ctx context.Context, since time.Time) (int64, error) {
	return store.countUsage(func(m filebookModel.ChatMessage) bool {
		return m.Role == filebookModel.MessageRoleAssistant && !m.CreatedAt.Before(since)
	}), nil
}

func (store *InMemoryFilebookStore) CountAssistantForModel(ctx context.Context, model string, from, to time.Time) (int64, error) {
	return store.countUsage(func(m filebookModel.ChatMessage) bool {
		return m.Role == filebookModel.MessageRoleAssistant && m.Model == model && inRange(m.CreatedAt, from, to)
	}), nil
}

func (store *InMemoryFilebookStore) CountUserQuestions(ctx context.Context, userId, model string, from, to time.Time) (int64, error) {
	return store.countUsage(func(m filebookModel.ChatMessage) bool {
		return m.Role == filebookModel.MessageRoleUser && m.AuthorId == userId &&
			(model == "" || m.Model == model) && inRange(m.CreatedAt, from, to)
	}), nil
}

func (store *InMemoryFilebookStore) countUsage(match func(filebookModel.ChatMessage) bool) int64 {
	store.mu.RLock()
	defer store.mu.RUnlock()
	var n int64
	for _, m := range store.usage {
		if match(m) {
			n++
		}
	}
	return n
}

func (store *InMemoryFilebookStore) pruneUsage(cutoff time.Time) {
	kept := store.usage[:0]
	for _, m := range store.usage {
		if !m.CreatedAt.Before(cutoff) {
			kept = append(kept, m)
		}
	}
	store.usage = kept
}

// half open [from, to)
func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
