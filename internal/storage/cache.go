// internal/storage/cache.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/redis/go-redis/v9"

	"github.com/pateldhruv64/cow-belt-final/internal/data"
)

const DefaultCacheTTL = 24 * time.Hour

// CachedStore keeps the latest reading of every cow in Redis in front of another Store.
// Redis failures are logged and never fail the underlying operation.
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func NewCachedStore(next Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{Store: next, rdb: rdb, ttl: ttl}
}

// LatestKey is the Redis key holding the newest reading of a cow.
func LatestKey(cowID string) string {
	return "cow:last:" + cowID
}

// InsertReading stores r and moves the cached latest reading forward when r is at
// least as new. An empty cache is left for LatestReading to fill.
func (s *CachedStore) InsertReading(ctx context.Context, r *data.Reading) error {
	if err := s.Store.InsertReading(ctx, r); err != nil {
		return err
	}
	s.cacheLatest(ctx, r, true)
	return nil
}

func (s *CachedStore) LatestReading(ctx context.Context, cowID string) (*data.Reading, error) {
	payload, err := s.rdb.Get(ctx, LatestKey(cowID)).Bytes()
	switch {
	case err == nil:
		var r data.Reading
		if jsonErr := json.Unmarshal(payload, &r); jsonErr == nil {
			return &r, nil
		}
	case !errors.Is(err, redis.Nil):
		slog.Warn("read latest reading cache", slog.String("cowId", cowID), slog.Any("error", xerrors.New(err)))
	}

	r, err := s.Store.LatestReading(ctx, cowID)
	if err != nil {
		return nil, err
	}
	s.cacheLatest(ctx, r, false)
	return r, nil
}

// DeleteReadingsBefore drops every cached latest reading once anything was deleted.
func (s *CachedStore) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.Store.DeleteReadingsBefore(ctx, cutoff)
	if err != nil || deleted == 0 {
		return deleted, err
	}
	s.invalidateLatest(ctx)
	return deleted, nil
}

// cacheLatest writes r unless the cached reading is newer. With onlyUpdate set a
// missing key stays missing.
func (s *CachedStore) cacheLatest(ctx context.Context, r *data.Reading, onlyUpdate bool) {
	key := LatestKey(r.CowID)
	payload, err := json.Marshal(r)
	if err != nil {
		slog.Warn("encode cached reading", slog.Any("error", xerrors.New(err)))
		return
	}

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cached, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if onlyUpdate {
				return nil
			}
		case err != nil:
			return err
		default:
			var current data.Reading
			if json.Unmarshal(cached, &current) == nil && r.Timestamp.Before(current.Timestamp) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// A concurrent writer touched the key; drop it so the next read refills from the store.
		err = s.rdb.Del(ctx, key).Err()
	}
	if err != nil {
		slog.Warn("update latest reading cache", slog.String("cowId", r.CowID), slog.Any("error", xerrors.New(err)))
	}
}

func (s *CachedStore) invalidateLatest(ctx context.Context) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, LatestKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("scan latest reading cache", slog.Any("error", xerrors.New(err)))
	}
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("invalidate latest reading cache", slog.Any("error", xerrors.New(err)))
	}
}

func (s *CachedStore) Close(ctx context.Context) error {
	return errors.Join(s.Store.Close(ctx), s.rdb.Close())
}
