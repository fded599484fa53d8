package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CooldownRepo реализует repository.CooldownRepository поверх Redis.
// SetNX + TTL даёт атомарный захват слота кулдауна на номер телефона,
// корректный при нескольких экземплярах сервера.
type CooldownRepo struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewCooldownRepo создает новый репозиторий кулдаунов
func NewCooldownRepo(client redis.UniversalClient) (*CooldownRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for CooldownRepo")
	}
	return &CooldownRepo{
		client:    client,
		keyPrefix: "cooldown:phone",
	}, nil
}

func (r *CooldownRepo) key(phone string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, phone)
}

// Acquire attempts SetNX on the phone's cooldown key. When the key already
// exists the remaining TTL is returned so callers can report a retry-after.
func (r *CooldownRepo) Acquire(ctx context.Context, phone string, ttl time.Duration) (bool, time.Duration, error) {
	key := r.key(phone)

	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown setnx: %w", err)
	}
	if ok {
		return true, 0, nil
	}

	remaining, err := r.client.TTL(ctx, key).Result()
	if err != nil || remaining < 0 {
		remaining = ttl
	}
	return false, remaining, nil
}
