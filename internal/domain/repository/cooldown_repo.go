package repository

import (
	"context"
	"time"
)

// CooldownRepository enforces the server-side resend cooldown per phone.
type CooldownRepository interface {
	// Acquire attempts to take the cooldown slot for the phone. Returns
	// acquired=false with the remaining wait when a cooldown is already live.
	Acquire(ctx context.Context, phone string, ttl time.Duration) (acquired bool, remaining time.Duration, err error)
}
