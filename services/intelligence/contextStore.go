package ai

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"huddle/models"
)

const aiContextPrefix = "ai:ctx:"

// ContextStore keeps per-session chat state.
type ContextStore interface {
	Get(ctx context.Context, sessionID string) (*models.AIContext, error)
	Set(ctx context.Context, sessionID string, aiCtx *models.AIContext) error
	Clear(ctx context.Context, sessionID string) error
}

type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisContextStore(client *redis.Client, ttl time.Duration) *RedisContextStore {
	return &RedisContextStore{client: client, ttl: ttl}
}

func (s *RedisContextStore) Get(ctx context.Context, sessionID string) (*models.AIContext, error) {
	data, err := s.client.Get(ctx, aiContextPrefix+sessionID).Result()
	if err == redis.Nil {
		return &models.AIContext{}, nil
	}
	if err != nil {
		return nil, err
	}
	var aiCtx models.AIContext
	if err := json.Unmarshal([]byte(data), &aiCtx); err != nil {
		return nil, err
	}
	return &aiCtx, nil
}

func (s *RedisContextStore) Set(ctx context.Context, sessionID string, aiCtx *models.AIContext) error {
	b, err := json.Marshal(aiCtx)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, aiContextPrefix+sessionID, b, s.ttl).Err()
}

func (s *RedisContextStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, aiContextPrefix+sessionID).Err()
}

// MemoryContextStore is used when no Redis is configured. Entries never expire.
type MemoryContextStore struct {
	mu   sync.Mutex
	data map[string]models.AIContext
}

func NewMemoryContextStore() *MemoryContextStore {
	return &MemoryContextStore{data: make(map[string]models.AIContext)}
}

func (s *MemoryContextStore) Get(_ context.Context, sessionID string) (*models.AIContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.data[sessionID]
	return &c, nil
}

func (s *MemoryContextStore) Set(_ context.Context, sessionID string, aiCtx *models.AIContext) error {
	s.mu.Lock()
	s.data[sessionID] = *aiCtx
	s.mu.Unlock()
	return nil
}

func (s *MemoryContextStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.data, sessionID)
	s.mu.Unlock()
	return nil
}
