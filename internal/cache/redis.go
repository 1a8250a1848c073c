package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-backend/internal/config"
)

// Owner-scoped keys. Everything an owner can see lives under owner:<id>: so
// a billing mutation clears that owner's views with one pattern.
const (
	ownerPrefixFmt       = "owner:%d:"
	apartmentStatsKeyFmt = "owner:%d:apartment:%d:stats:%s"
	reportKeyFmt         = "owner:%d:reports:%s"
)

const (
	StatsTTL  = 5 * time.Minute
	ReportTTL = 15 * time.Minute
)

var client *redis.Client

// Init connects to Redis. On failure the client stays nil and every helper
// becomes a no-op, so the API keeps serving straight from Postgres.
func Init(cfg *config.Config) error {
	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	log.Printf("[Redis] Connected to %s:%s", cfg.Redis.Host, cfg.Redis.Port)
	return nil
}

// SetClient swaps the package client; nil disables caching.
func SetClient(c *redis.Client) {
	client = c
}

func GetClient() *redis.Client {
	return client
}

func Close() {
	if client != nil {
		client.Close()
		client = nil
	}
}

func ApartmentStatsKey(ownerID, apartmentID int, month string) string {
	return fmt.Sprintf(apartmentStatsKeyFmt, ownerID, apartmentID, month)
}

// ReportKey builds a key for one report variant, e.g. "monthly:apt=3:2025-01:2025-06".
func ReportKey(ownerID int, variant string) string {
	return fmt.Sprintf(reportKeyFmt, ownerID, variant)
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[Redis] set %s failed: %v", key, err)
	}
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateOwner clears every cached view of one owner.
// Called after tenant assignment, move-out, payments, rent changes and apartment edits.
func InvalidateOwner(ctx context.Context, ownerID int) {
	InvalidatePattern(ctx, fmt.Sprintf(ownerPrefixFmt, ownerID)+"*")
}

// InvalidateAllOwners is used by the batch jobs, which touch every owner at once.
func InvalidateAllOwners(ctx context.Context) {
	InvalidatePattern(ctx, "owner:*")
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
