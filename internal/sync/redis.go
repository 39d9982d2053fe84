package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariadyuval-maker/TelAvivBusLanes/internal/domain"
)

const (
	remoteDataKey    = "buslanes:reports:data"
	remoteVersionKey = "buslanes:reports:version"
)

// RedisRemote is the Redis-backed store of record for reports. The
// report set lives as one JSON blob alongside a monotonically
// increasing version counter; the counter is watched during writes so
// concurrent writers conflict instead of clobbering each other.
type RedisRemote struct {
	client *redis.Client
}

func NewRedisRemote(addr, password string, db int) (*RedisRemote, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisRemote{client: client}, nil
}

func (r *RedisRemote) Close() error {
	return r.client.Close()
}

func (r *RedisRemote) Fetch(ctx context.Context) ([]*domain.Report, int64, error) {
	version, err := r.client.Get(ctx, remoteVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("fetch remote version: %w", err)
	}

	data, err := r.client.Get(ctx, remoteDataKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("fetch remote reports: %w", err)
	}

	var reports []*domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, 0, fmt.Errorf("decode remote reports: %w", err)
	}
	return reports, version, nil
}

func (r *RedisRemote) Store(ctx context.Context, reports []*domain.Report, expected int64) (int64, error) {
	data, err := json.Marshal(reports)
	if err != nil {
		return 0, fmt.Errorf("encode reports: %w", err)
	}

	var newVersion int64
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, remoteVersionKey).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expected {
			return ErrVersionConflict
		}

		newVersion = current + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, remoteDataKey, data, 0)
			pipe.Set(ctx, remoteVersionKey, newVersion, 0)
			return nil
		})
		return err
	}, remoteVersionKey)

	if errors.Is(err, redis.TxFailedErr) {
		// Another writer raced us between the read and the commit.
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}
