package entity

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Типы пользователей маркетплейса
const (
	UserTypeTutor   = "tutor"
	UserTypeStudent = "student"
)

// User представляет аккаунт пользователя в системе.
// Телефон уникален и всегда берётся из подтверждённого регистрационного токена,
// а не из клиентского ввода.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Phone    string `gorm:"size:20;not null;uniqueIndex" json:"phone"`
	Name     string `gorm:"size:100;not null" json:"name"`
	UserType string `gorm:"size:20;not null" json:"user_type"` // "tutor" или "student"
	Email    string `gorm:"size:100;not null;default:''" json:"email,omitempty"`
	Password string `gorm:"size:100;not null" json:"-"`

	PhoneVerifiedAt *time.Time `gorm:"type:timestamp" json:"phone_verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// BeforeSave хеширует пароль перед сохранением, только если он не является bcrypt-хешем
func (u *User) BeforeSave(tx *gorm.DB) error {
	if len(u.Password) > 0 && !strings.HasPrefix(u.Password, "$2a$") &&
		!strings.HasPrefix(u.Password, "$2b$") && !strings.HasPrefix(u.Password, "$2y$") {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[User.BeforeSave] Ошибка при хешировании пароля для phone=%s: %v", u.Phone, err)
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword проверяет пароль против сохранённого bcrypt-хеша
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
