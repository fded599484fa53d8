package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/tutorlink-api/internal/domain/entity"
	"github.com/yourusername/tutorlink-api/internal/domain/repository"
	apperrors "github.com/yourusername/tutorlink-api/internal/pkg/errors"
)

// RegistrationInput carries the client-supplied profile fields. The phone is
// never taken from here: it is bound from the consumed registration token.
type RegistrationInput struct {
	Name     string
	Password string
	UserType string
	Email    string
}

// RegistrationService consumes a registration token exactly once and creates
// the durable account. A token is single-shot regardless of downstream
// outcome: if account creation fails the token stays consumed and the caller
// restarts from a fresh code request.
type RegistrationService struct {
	verificationRepo repository.VerificationRepository
	userRepo         repository.UserRepository
	emailService     EmailService
}

func NewRegistrationService(
	verificationRepo repository.VerificationRepository,
	userRepo repository.UserRepository,
	emailService EmailService,
) (*RegistrationService, error) {
	if verificationRepo == nil {
		return nil, fmt.Errorf("verification repository is required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if emailService == nil {
		emailService = &NoopEmailService{}
	}
	return &RegistrationService{
		verificationRepo: verificationRepo,
		userRepo:         userRepo,
		emailService:     emailService,
	}, nil
}

// Register validates and consumes the token, then delegates to account
// creation with the token's bound phone.
func (s *RegistrationService) Register(ctx context.Context, token string, input RegistrationInput) (*entity.User, error) {
	if token == "" {
		return nil, ErrInvalidRegistrationToken
	}

	record, err := s.verificationRepo.FindLiveByToken(token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidRegistrationToken
		}
		return nil, err
	}

	// Consume before creating the account so two concurrent registrations
	// with one token cannot both proceed.
	used, err := s.verificationRepo.MarkUsed(token)
	if err != nil {
		return nil, err
	}
	if !used {
		log.Printf("[RegistrationService] token for phone=%s was consumed concurrently", record.Phone)
		return nil, ErrInvalidRegistrationToken
	}

	if input.UserType != entity.UserTypeTutor && input.UserType != entity.UserTypeStudent {
		return nil, fmt.Errorf("%w: user_type must be tutor or student", apperrors.ErrValidation)
	}

	verifiedAt := time.Now()
	user := &entity.User{
		Phone:           record.Phone, // authoritative, overrides any client-supplied phone
		Name:            input.Name,
		UserType:        input.UserType,
		Email:           input.Email,
		Password:        input.Password,
		PhoneVerifiedAt: &verifiedAt,
	}

	if err := s.userRepo.Create(user); err != nil {
		// Fail-closed: the token is already consumed and is not restored.
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: phone is already registered", apperrors.ErrValidation)
		}
		return nil, err
	}

	log.Printf("[RegistrationService] account created id=%d phone=%s type=%s", user.ID, user.Phone, user.UserType)

	if user.Email != "" {
		go func(email, name string) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := s.emailService.SendWelcome(ctx, email, name); err != nil {
				log.Printf("[RegistrationService] welcome email failed for %s: %v", email, err)
			}
		}(user.Email, user.Name)
	}

	return user, nil
}
