package cache

import (
	"context"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"

	"latiafanny/backend/internal/report"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	snapshotPrefix     = "latiafanny:report:snapshot:"
	snapshotGeneration = "latiafanny:report:generation"
	revokedPrefix      = "latiafanny:auth:revoked:"
)

func snapshotKey(generation int64) string {
	return snapshotPrefix + strconv.FormatInt(generation, 10)
}

func NewRedisClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

type RedisSnapshotCache struct {
	client *redis.Client
}

func NewRedisSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

// Get reads the generation counter and then the snapshot stored under it.
// Snapshots of older generations are left to expire.
func (c *RedisSnapshotCache) Get(ctx context.Context) (*report.Snapshot, int64, bool, error) {
	generation, err := c.client.Get(ctx, snapshotGeneration).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, errors.Wrap(err, "redis get snapshot generation")
	}

	val, err := c.client.Get(ctx, snapshotKey(generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, generation, false, errors.Wrap(err, "redis get snapshot")
	}

	var snap report.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, generation, false, errors.Wrap(err, "decode snapshot")
	}
	return &snap, generation, true, nil
}

func (c *RedisSnapshotCache) Set(ctx context.Context, generation int64, value *report.Snapshot, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	return errors.Wrap(c.client.Set(ctx, snapshotKey(generation), payload, ttl).Err(), "redis set snapshot")
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context) error {
	return errors.Wrap(c.client.Incr(ctx, snapshotGeneration).Err(), "redis bump snapshot generation")
}

type RedisTokenDenylist struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisTokenDenylist(client *redis.Client) *RedisTokenDenylist {
	return &RedisTokenDenylist{client: client, now: time.Now}
}

func (d *RedisTokenDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(d.client.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err(), "redis revoke token")
}

func (d *RedisTokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis check token")
	}
	return n > 0, nil
}
