package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/tutorlink-api/internal/domain/entity"
	apperrors "github.com/yourusername/tutorlink-api/internal/pkg/errors"
)

// VerificationRepo реализует repository.VerificationRepository
type VerificationRepo struct {
	db *gorm.DB
}

// NewVerificationRepo создает новый репозиторий записей верификации
func NewVerificationRepo(db *gorm.DB) *VerificationRepo {
	return &VerificationRepo{db: db}
}

// Create persists a new record. The token column carries a unique index, so a
// generator collision surfaces as ErrConflict instead of silently reusing a token.
func (r *VerificationRepo) Create(record *entity.VerificationRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("%w: create verification record: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// FindLiveByPhoneAndCode returns the most recent live record for (phone, code).
// Wrong, expired and already used codes are indistinguishable: all ErrNotFound.
func (r *VerificationRepo) FindLiveByPhoneAndCode(phone, code string) (*entity.VerificationRecord, error) {
	var record entity.VerificationRecord
	err := r.db.
		Where("phone = ? AND code = ? AND is_used = ? AND expires_at > ?", phone, code, false, time.Now()).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find by phone and code: %v", apperrors.ErrStoreUnavailable, err)
	}
	return &record, nil
}

// FindLiveByToken returns the live record carrying the token.
func (r *VerificationRepo) FindLiveByToken(token string) (*entity.VerificationRecord, error) {
	var record entity.VerificationRecord
	err := r.db.
		Where("token = ? AND is_used = ? AND expires_at > ?", token, false, time.Now()).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find by token: %v", apperrors.ErrStoreUnavailable, err)
	}
	return &record, nil
}

// MarkUsed flips is_used via a single conditional UPDATE. The WHERE clause is
// the compare-and-set: of two concurrent callers exactly one sees RowsAffected=1.
func (r *VerificationRepo) MarkUsed(token string) (bool, error) {
	result := r.db.Model(&entity.VerificationRecord{}).
		Where("token = ? AND is_used = ?", token, false).
		Update("is_used", true)
	if result.Error != nil {
		return false, fmt.Errorf("%w: mark used: %v", apperrors.ErrStoreUnavailable, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DeleteCreatedBefore purges records past the retention window. Purge timing is
// hygiene only; liveness is checked at read time.
func (r *VerificationRepo) DeleteCreatedBefore(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("created_at < ?", cutoff).
		Delete(&entity.VerificationRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: purge verification records: %v", apperrors.ErrStoreUnavailable, result.Error)
	}
	return result.RowsAffected, nil
}
