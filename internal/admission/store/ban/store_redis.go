package ban

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dustledger/internal/admission/models"
)

const keyPrefix = "admission:ban:"

// RedisStore shares ban records across replicas so an actor banned on one node
// stays banned everywhere.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, actor string) (*models.BanRecord, error) {
	raw, err := s.client.Get(ctx, keyPrefix+actor).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ban record: %w", err)
	}

	var record models.BanRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode ban record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Save(ctx context.Context, record *models.BanRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode ban record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+record.Actor, raw, 0).Err(); err != nil {
		return fmt.Errorf("save ban record: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, actor string) error {
	if err := s.client.Del(ctx, keyPrefix+actor).Err(); err != nil {
		return fmt.Errorf("delete ban record: %w", err)
	}
	return nil
}
