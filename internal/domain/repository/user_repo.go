package repository

import (
	"github.com/yourusername/tutorlink-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с аккаунтами пользователей
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByPhone(phone string) (*entity.User, error)
	ExistsByPhone(phone string) (bool, error)
}
