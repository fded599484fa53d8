package entity

import "time"

// VerificationRecord is one outstanding or historical code challenge.
// The same schema backs both phases of the flow: the SMS code challenge and
// the registration token issued after a successful code check. A registration
// token inherits the phone/code of the challenge it came from for audit and
// carries its own fresh token and expiry.
type VerificationRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Phone     string    `gorm:"size:20;not null;index:idx_verification_phone_code,priority:1" json:"phone"`
	Code      string    `gorm:"size:6;not null;index:idx_verification_phone_code,priority:2" json:"-"`
	Token     string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	IsUsed    bool      `gorm:"not null;default:false" json:"is_used"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (VerificationRecord) TableName() string {
	return "verification_records"
}

// IsExpired reports whether the record is logically dead at the given instant.
func (v *VerificationRecord) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// IsLive reports whether the record can still be matched: not used and not expired.
// Liveness is always enforced at read time regardless of physical purging.
func (v *VerificationRecord) IsLive(now time.Time) bool {
	return !v.IsUsed && !v.IsExpired(now)
}
