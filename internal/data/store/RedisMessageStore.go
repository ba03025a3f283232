package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/data/redisStore"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/redis/go-redis/v9"
)

// AppendMessages pushes the turn, trims the transcript to retain and indexes
// model backed messages for the quota counters, all in one MULTI/EXEC.
func (s *RedisFilebookStore) AppendMessages(ctx context.Context, collectionId string, retain int, msgs ...filebookModel.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	log := s.logger.WithContext(ctx).With("collectionId", collectionId)

	encoded := make([]any, len(msgs))
	for i := range msgs {
		msgs[i] = prepareMessage(msgs[i], collectionId)
		data, err := json.Marshal(msgs[i])
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		encoded[i] = data
	}

	cutoff := "(" + strconv.FormatInt(time.Now().Add(-config.UsageIndexRetention).UnixMilli(), 10)
	err := s.store.Atomically(ctx, func(tx redis.Pipeliner) error {
		key := collectionMessagesKey(collectionId)
		tx.RPush(ctx, key, encoded...)
		if retain > 0 {
			tx.LTrim(ctx, key, int64(-retain), -1)
		}

		for _, m := range msgs {
			if !countsTowardUsage(m) {
				continue
			}
			z := redis.Z{Score: redisStore.Score(m.CreatedAt), Member: m.Id}
			var usageKeys []string
			switch m.Role {
			case filebookModel.MessageRoleAssistant:
				usageKeys = []string{usageAssistantKey, usageAssistantModelKey(m.Model)}
			case filebookModel.MessageRoleUser:
				usageKeys = []string{usageUserKey(m.AuthorId, m.Model), usageUserKey(m.AuthorId, "")}
			}
			for _, k := range usageKeys {
				tx.ZAdd(ctx, k, z)
				tx.ZRemRangeByScore(ctx, k, "-inf", cutoff)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("error saving chat", "error", err)
		return err
	}
	log.Debug("Saved chat successfully", "messages", len(msgs), "retain", retain)
	return nil
}

func (s *RedisFilebookStore) RecentMessages(ctx context.Context, collectionId string, n int) ([]filebookModel.ChatMessage, error) {
	raws, err := s.store.ListTail(ctx, collectionMessagesKey(collectionId), int64(n))
	if err != nil {
		return nil, err
	}
	out := make([]filebookModel.ChatMessage, 0, len(raws))
	for _, raw := range raws {
		m, err := decode[filebookModel.ChatMessage](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisFilebookStore) CountMessages(ctx context.Context, collectionId string) (int, error) {
	n, err := s.store.ListLength(ctx, collectionMessagesKey(collectionId))
	return int(n), err
}

func (s *RedisFilebookStore) CountAssistantSince(ctx context.Context, since time.Time) (int64, error) {
	return s.store.CountSince(ctx, usageAssistantKey, since)
}

func (s *RedisFilebookStore) CountAssistantForModel(ctx context.Context, model string, from, to time.Time) (int64, error) {
	return s.store.CountBetween(ctx, usageAssistantModelKey(model), from, to)
}

func (s *RedisFilebookStore) CountUserQuestions(ctx context.Context, userId, model string, from, to time.Time) (int64, error) {
	return s.store.CountBetween(ctx, usageUserKey(userId, model), from, to)
}
