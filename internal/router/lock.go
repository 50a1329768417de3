package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrConversationBusy means another turn for the same sender is still being
// processed. The caller should have the provider retry delivery.
var ErrConversationBusy = errors.New("router: conversation busy")

// DefaultLockTTL bounds how long a crashed worker can hold a conversation.
const DefaultLockTTL = 30 * time.Second

// Locker serializes turns per (org, sender) with a redis SET NX lease, so
// two rapid-fire messages from the same customer cannot interleave flow
// writes.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker creates a redis-backed conversation locker.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if client == nil {
		panic("router: redis client required")
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{client: client, ttl: ttl}
}

// Acquire takes the lease for the conversation key, returning a release
// function. Release only deletes the lease this call created, so an expired
// lease taken over by another worker is left alone.
func (l *Locker) Acquire(ctx context.Context, orgID, senderPhone string) (func(), error) {
	key := fmt.Sprintf("bookline:conv_lock:%s:%s", orgID, senderPhone)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("router: acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrConversationBusy
	}
	release := func() {
		// Compare-and-delete so an expired lease is not stolen back.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		_ = l.client.Eval(context.Background(), script, []string{key}, token).Err()
	}
	return release, nil
}
