package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore remembers request nonces so a signed request cannot be replayed
// inside its validity window.
type NonceStore struct {
	client *redis.Client
}

func NewNonceStore(client *redis.Client) *NonceStore {
	return &NonceStore{client: client}
}

// Claim records nonce for deviceID and reports whether it was unused.
func (s *NonceStore) Claim(ctx context.Context, deviceID, nonce string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, nonceKey(deviceID, nonce), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim nonce: %w", err)
	}
	return ok, nil
}

func nonceKey(deviceID, nonce string) string {
	return fmt.Sprintf("sig:%s:%s", deviceID, nonce)
}
