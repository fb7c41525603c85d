package attendance

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"campattend/internal/model"
)

// Cache is the fast local half of the dual-write record store. The read path
// prefers it; after a failed remote write it holds the durable intent.
type Cache interface {
	GetRecord(ctx context.Context, clinicID, date string) (*model.AttendanceRecord, error)
	PutRecord(ctx context.Context, rec *model.AttendanceRecord) error
}

// RedisCache keeps records as JSON keyed by the natural (clinic, date) key.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache over an existing redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func recordKey(clinicID, date string) string {
	return "attendance:record:" + clinicID + ":" + date
}

// GetRecord returns the cached record, or nil when absent.
func (c *RedisCache) GetRecord(ctx context.Context, clinicID, date string) (*model.AttendanceRecord, error) {
	raw, err := c.client.Get(ctx, recordKey(clinicID, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rec model.AttendanceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutRecord stores the record without expiry; records are append-only per day
// and the key space stays small.
func (c *RedisCache) PutRecord(ctx context.Context, rec *model.AttendanceRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, recordKey(rec.ClinicID, rec.Date), raw, 0).Err()
}
