package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/phonginreallife/leadtriage/db"
)

// Notifier delivers urgent SLA warnings to the lead owner.
// Notify reports false when the notification was suppressed as a duplicate.
type Notifier interface {
	Notify(ctx context.Context, n db.SLANotification) (bool, error)
}

// Redis key layout
const (
	channelPrefix  = "sla:warnings:"
	dedupKeyPrefix = "sla:notified:"
	unassignedKey  = "unassigned"
)

// Channel returns the pub/sub channel for an owner's warnings
func Channel(ownerID string) string {
	if ownerID == "" {
		ownerID = unassignedKey
	}
	return channelPrefix + ownerID
}

// DedupKey identifies one (lead, rule, activity) notification
func DedupKey(n db.SLANotification) string {
	key := dedupKeyPrefix + n.LeadID + ":" + n.Type
	if n.ActivityID != "" {
		key += ":" + n.ActivityID
	}
	return key
}

// RedisNotifier publishes notifications on Redis pub/sub, at most once per
// DedupTTL for the same warning
type RedisNotifier struct {
	Redis    redis.Cmdable
	DedupTTL time.Duration
}

func NewRedisNotifier(client redis.Cmdable, dedupTTL time.Duration) *RedisNotifier {
	if dedupTTL <= 0 {
		dedupTTL = time.Hour
	}
	return &RedisNotifier{Redis: client, DedupTTL: dedupTTL}
}

func (n *RedisNotifier) Notify(ctx context.Context, note db.SLANotification) (bool, error) {
	key := DedupKey(note)
	fresh, err := n.Redis.SetNX(ctx, key, note.CreatedAt.Unix(), n.DedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim dedup key: %w", err)
	}
	if !fresh {
		return false, nil
	}

	payload, err := json.Marshal(note)
	if err != nil {
		return false, fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := n.Redis.Publish(ctx, Channel(note.OwnerID), payload).Err(); err != nil {
		// Release the key so the next tick retries
		if delErr := n.Redis.Del(ctx, key).Err(); delErr != nil {
			log.Printf("Worker: failed to release dedup key %s, retry suppressed until it expires: %v", key, delErr)
		}
		return false, fmt.Errorf("failed to publish notification: %w", err)
	}
	return true, nil
}
