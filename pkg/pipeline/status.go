package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

const (
	StatusIdle   = "idle"
	StatusStaged = "staged"

	DefaultStatusKey = "sigmatch:pipeline:status"
)

// StatusStore keeps the last staged pipeline command.
type StatusStore interface {
	Get(ctx context.Context) (models.PipelineStatus, error)
	Put(ctx context.Context, status models.PipelineStatus) error
}

type MemoryStatusStore struct {
	mu     sync.RWMutex
	status models.PipelineStatus
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{status: models.PipelineStatus{Status: StatusIdle}}
}

func (m *MemoryStatusStore) Get(context.Context) (models.PipelineStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, nil
}

func (m *MemoryStatusStore) Put(_ context.Context, status models.PipelineStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	return nil
}

// RedisStatusStore shares the status between service replicas.
type RedisStatusStore struct {
	client redis.Cmdable
	key    string
}

func NewRedisStatusStore(client redis.Cmdable, key string) *RedisStatusStore {
	if key == "" {
		key = DefaultStatusKey
	}
	return &RedisStatusStore{client: client, key: key}
}

func (r *RedisStatusStore) Get(ctx context.Context) (models.PipelineStatus, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PipelineStatus{Status: StatusIdle}, nil
	}
	if err != nil {
		return models.PipelineStatus{}, fmt.Errorf("reading pipeline status: %w", err)
	}
	var status models.PipelineStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return models.PipelineStatus{}, fmt.Errorf("decoding pipeline status: %w", err)
	}
	return status, nil
}

func (r *RedisStatusStore) Put(ctx context.Context, status models.PipelineStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("writing pipeline status: %w", err)
	}
	return nil
}
