package repository

import (
	"time"

	"github.com/yourusername/tutorlink-api/internal/domain/entity"
)

// VerificationRepository persists code challenges and registration tokens.
// Lookups only ever return live records (not used, not expired); expired rows
// are eventually purged but expiry is enforced at read time regardless.
type VerificationRepository interface {
	Create(record *entity.VerificationRecord) error

	// FindLiveByPhoneAndCode returns the most recently created live record
	// matching phone and code. Callers get apperrors.ErrNotFound whether the
	// code is wrong, expired or already used.
	FindLiveByPhoneAndCode(phone, code string) (*entity.VerificationRecord, error)

	// FindLiveByToken has the same liveness semantics, keyed by token.
	FindLiveByToken(token string) (*entity.VerificationRecord, error)

	// MarkUsed atomically flips is_used false->true. Returns true on the first
	// transition, false if the record was already used or does not exist.
	// Two concurrent callers cannot both see true.
	MarkUsed(token string) (bool, error)

	// DeleteCreatedBefore physically purges records past the retention window.
	DeleteCreatedBefore(cutoff time.Time) (int64, error)
}
