package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/repository"
)

const statusKey = "catfeeder:status"

// RedisRepository implements the StatusCache interface using Redis as the
// backend. Dashboards read the snapshot and recent outcomes from here so
// status traffic never touches the dispatch pipeline.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(addr, password string, db int) *RedisRepository {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisRepository{client: client}
}

// Ensure RedisRepository implements the StatusCache interface
var _ repository.StatusCache = (*RedisRepository)(nil)

// Ping checks connectivity, used by the health tooling.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) SaveStatus(ctx context.Context, status *model.PipelineStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline status: %w", err)
	}
	return r.client.Set(ctx, statusKey, data, 0).Err()
}

func (r *RedisRepository) GetStatus(ctx context.Context) (*model.PipelineStatus, error) {
	data, err := r.client.Get(ctx, statusKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // no snapshot stored yet
		}
		return nil, err
	}
	var status model.PipelineStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline status: %w", err)
	}
	return &status, nil
}

func (r *RedisRepository) SaveOutcome(ctx context.Context, record *model.DonationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal donation record: %w", err)
	}
	key := fmt.Sprintf("catfeeder:outcome:%s", record.Event.ID)
	return r.client.Set(ctx, key, data, 0).Err()
}

func (r *RedisRepository) GetAllOutcomes(ctx context.Context) ([]*model.DonationRecord, error) {
	keys, err := r.client.Keys(ctx, "catfeeder:outcome:*").Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []*model.DonationRecord{}, nil
	}

	// Fetch all values in a pipeline for efficiency
	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, err
	}

	result := make([]*model.DonationRecord, 0, len(keys))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue // skip failed keys
		}
		var record model.DonationRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue // skip malformed data
		}
		result = append(result, &record)
	}
	return result, nil
}
