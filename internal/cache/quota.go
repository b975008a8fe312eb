package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HourlyQuota counts generation requests per user in fixed one-hour windows.
type HourlyQuota struct {
	client *redis.Client
	limit  int
	now    func() time.Time
}

func NewHourlyQuota(client *redis.Client, limit int) *HourlyQuota {
	return &HourlyQuota{client: client, limit: limit, now: time.Now}
}

// Allow consumes cost units for userID and reports whether the window still
// had room. A non-positive limit disables the quota.
func (q *HourlyQuota) Allow(ctx context.Context, userID string, cost int) (bool, error) {
	if q.limit <= 0 {
		return true, nil
	}
	if cost <= 0 {
		cost = 1
	}

	key := quotaKey(userID, q.now())
	pipe := q.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(cost))
	pipe.Expire(ctx, key, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("quota incr: %w", err)
	}

	if incr.Val() > int64(q.limit) {
		// Give the units back so a rejected request does not eat the window.
		if err := q.client.DecrBy(ctx, key, int64(cost)).Err(); err != nil {
			return false, fmt.Errorf("quota refund: %w", err)
		}
		return false, nil
	}
	return true, nil
}

func quotaKey(userID string, now time.Time) string {
	return fmt.Sprintf("quota:generate:%s:%s", userID, now.UTC().Format("2006010215"))
}
