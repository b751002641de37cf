// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"opportunity-funnel/internal/common/config"
	"opportunity-funnel/internal/common/logger"
	"opportunity-funnel/internal/models"
)

const snapshotTTL = 24 * time.Hour

// SnapshotCache keeps the last-synced opportunity set in Redis so a
// restarted process can render something before its first refresh.
// Misses and write failures are logged, never surfaced.
type SnapshotCache struct {
	client *redis.Client
	logger logger.Logger
}

type snapshot struct {
	Opportunities []models.Opportunity     `json:"opportunities"`
	Metadata      models.DiscoveryMetadata `json:"metadata"`
	SavedAt       time.Time                `json:"saved_at"`
}

func NewSnapshotCache(cfg config.RedisConfig, log logger.Logger) *SnapshotCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	return newSnapshotCache(rdb, log)
}

func newSnapshotCache(client *redis.Client, log logger.Logger) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "snapshot_cache"}),
	}
}

// Ping tests the Redis connection.
func (c *SnapshotCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *SnapshotCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func snapshotKey(profileID string) string {
	return "funnel:snapshot:" + profileID
}

// Save writes the store's current set for the profile.
func (c *SnapshotCache) Save(ctx context.Context, profile models.ProfileContext, s *Store) {
	snap := snapshot{
		Opportunities: s.All(),
		Metadata:      s.DiscoveryMetadata(),
		SavedAt:       time.Now().UTC(),
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		c.logger.WithError(err).Warn("snapshot marshal failed", nil)
		return
	}
	if err := c.client.Set(ctx, snapshotKey(profile.ProfileID), payload, snapshotTTL).Err(); err != nil {
		c.logger.WithError(err).Warn("snapshot write failed", map[string]interface{}{
			"profileId": profile.ProfileID,
		})
	}
}

// Restore loads the last snapshot into the store. Returns false on a
// miss or a decode failure.
func (c *SnapshotCache) Restore(ctx context.Context, profile models.ProfileContext, s *Store) bool {
	payload, err := c.client.Get(ctx, snapshotKey(profile.ProfileID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("snapshot read failed", map[string]interface{}{
				"profileId": profile.ProfileID,
			})
		}
		return false
	}

	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		c.logger.WithError(err).Warn("snapshot decode failed", nil)
		return false
	}

	s.ReplaceAll(snap.Opportunities)
	s.SetDiscoveryMetadata(snap.Metadata)
	return true
}
