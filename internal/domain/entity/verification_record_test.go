package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerificationRecord_Liveness(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		record      VerificationRecord
		wantLive    bool
		wantExpired bool
	}{
		{
			name:     "fresh unused record is live",
			record:   VerificationRecord{IsUsed: false, ExpiresAt: now.Add(5 * time.Minute)},
			wantLive: true,
		},
		{
			name:        "expired record is dead even if unused",
			record:      VerificationRecord{IsUsed: false, ExpiresAt: now.Add(-time.Second)},
			wantLive:    false,
			wantExpired: true,
		},
		{
			name:     "used record is dead even before expiry",
			record:   VerificationRecord{IsUsed: true, ExpiresAt: now.Add(5 * time.Minute)},
			wantLive: false,
		},
		{
			name:        "record dies exactly at expiresAt",
			record:      VerificationRecord{IsUsed: false, ExpiresAt: now},
			wantLive:    false,
			wantExpired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantLive, tt.record.IsLive(now))
			assert.Equal(t, tt.wantExpired, tt.record.IsExpired(now))
		})
	}
}
