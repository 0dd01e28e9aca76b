package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each collection in one Redis hash: field = document id,
// value = JSON-encoded document.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "docs:"}
}

func (s *RedisStore) key(collection string) string {
	return s.prefix + collection
}

func (s *RedisStore) Get(ctx context.Context, collection, id string) (Document, error) {
	raw, err := s.rdb.HGet(ctx, s.key(collection), id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *RedisStore) Set(ctx context.Context, collection, id string, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, id, err)
	}
	if err := s.rdb.HSet(ctx, s.key(collection), id, raw).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.rdb.HDel(ctx, s.key(collection), id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Add(ctx context.Context, collection string, doc Document) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) List(ctx context.Context, collection string) (map[string]Document, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	docs := make(map[string]Document, len(raw))
	for id, v := range raw {
		if id == MetadataID {
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
		}
		docs[id] = doc
	}
	return docs, nil
}

func (s *RedisStore) FindByField(ctx context.Context, collection, field string, value any) ([]string, error) {
	docs, err := s.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, doc := range docs {
		if doc[field] == value {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Ping checks store reachability for health reporting.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
