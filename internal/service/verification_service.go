package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/tutorlink-api/internal/domain/entity"
	"github.com/yourusername/tutorlink-api/internal/domain/repository"
	apperrors "github.com/yourusername/tutorlink-api/internal/pkg/errors"
)

// localPhonePattern matches bare 8-digit Hong Kong numbers; they get the
// configured country code prefixed. Full E.164-like input is accepted as is.
var (
	localPhonePattern = regexp.MustCompile(`^[2-9][0-9]{7}$`)
	e164Pattern       = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
)

// CodeChallenge is the outcome of a successful code request. Code is only
// surfaced to clients outside release mode.
type CodeChallenge struct {
	Token         string
	Code          string
	RetryAfterSec int
}

// VerificationService governs the challenge lifecycle: a code record is
// created and dispatched, a matching code consumes that record and issues a
// second record whose token is the registration credential.
type VerificationService struct {
	verificationRepo repository.VerificationRepository
	userRepo         repository.UserRepository
	cooldownRepo     repository.CooldownRepository
	smsService       SMSService
	codeTTL          time.Duration
	tokenTTL         time.Duration
	resendCooldown   time.Duration
	countryCode      string
}

func NewVerificationService(
	verificationRepo repository.VerificationRepository,
	userRepo repository.UserRepository,
	cooldownRepo repository.CooldownRepository,
	smsService SMSService,
	codeTTL time.Duration,
	tokenTTL time.Duration,
	resendCooldown time.Duration,
	countryCode string,
) (*VerificationService, error) {
	if verificationRepo == nil {
		return nil, fmt.Errorf("verification repository is required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if smsService == nil {
		return nil, fmt.Errorf("sms service is required")
	}
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}
	if tokenTTL <= 0 {
		tokenTTL = 5 * time.Minute
	}
	if resendCooldown <= 0 {
		resendCooldown = 90 * time.Second
	}
	if countryCode == "" {
		countryCode = "+852"
	}

	return &VerificationService{
		verificationRepo: verificationRepo,
		userRepo:         userRepo,
		cooldownRepo:     cooldownRepo,
		smsService:       smsService,
		codeTTL:          codeTTL,
		tokenTTL:         tokenTTL,
		resendCooldown:   resendCooldown,
		countryCode:      countryCode,
	}, nil
}

// NormalizePhone validates and normalizes a phone number. Bare local numbers
// are prefixed with the country code; anything else must be E.164-like.
func (s *VerificationService) NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")

	if localPhonePattern.MatchString(phone) {
		return s.countryCode + phone, nil
	}
	if e164Pattern.MatchString(phone) {
		return phone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
}

// RequestCode creates a new challenge for the phone and dispatches the code.
// A new challenge never deletes older ones; matching picks the most recent
// live record and older records simply expire.
func (s *VerificationService) RequestCode(ctx context.Context, rawPhone string) (*CodeChallenge, error) {
	phone, err := s.NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	// Pre-check against durable accounts; no verification state is touched.
	exists, err := s.userRepo.ExistsByPhone(phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrPhoneAlreadyRegistered
	}

	if s.cooldownRepo != nil {
		acquired, remaining, cdErr := s.cooldownRepo.Acquire(ctx, phone, s.resendCooldown)
		if cdErr != nil {
			// Fail-open: cooldown is hardening, verification must not depend
			// on the cooldown store being up.
			log.Printf("[VerificationService] cooldown check failed for phone=%s: %v. Allowing request.", phone, cdErr)
		} else if !acquired {
			return nil, fmt.Errorf("%w: retry in %ds", ErrResendCooldown, int(remaining.Seconds())+1)
		}
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}
	token := generateVerificationToken()

	record := &entity.VerificationRecord{
		Phone:     phone,
		Code:      code,
		Token:     token,
		IsUsed:    false,
		ExpiresAt: time.Now().Add(s.codeTTL),
	}
	if err := s.verificationRepo.Create(record); err != nil {
		return nil, err
	}

	challenge := &CodeChallenge{
		Token:         token,
		Code:          code,
		RetryAfterSec: int(s.resendCooldown.Seconds()),
	}

	if err := s.smsService.SendVerificationCode(ctx, phone, code); err != nil {
		// The record was created before dispatch and stays valid: if the
		// message did arrive the user can still verify with this code.
		log.Printf("[VerificationService] dispatch failed for phone=%s: %v", phone, err)
		return challenge, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	return challenge, nil
}

// VerifyCode matches the code against the most recent live challenge for the
// phone, consumes it and issues the registration token as a second record
// inheriting phone and code. The original challenge row stays immutable apart
// from the is_used flip, preserving the audit trail.
func (s *VerificationService) VerifyCode(ctx context.Context, rawPhone, code string) (string, error) {
	phone, err := s.NormalizePhone(rawPhone)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(code) == "" {
		return "", ErrInvalidOrExpiredCode
	}

	record, err := s.verificationRepo.FindLiveByPhoneAndCode(phone, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", ErrInvalidOrExpiredCode
		}
		return "", err
	}

	// CAS on the store; a concurrent verify of the same code loses here.
	used, err := s.verificationRepo.MarkUsed(record.Token)
	if err != nil {
		return "", err
	}
	if !used {
		log.Printf("[VerificationService] code for phone=%s was consumed concurrently", phone)
		return "", ErrInvalidOrExpiredCode
	}

	registration := &entity.VerificationRecord{
		Phone:     record.Phone,
		Code:      record.Code,
		Token:     generateVerificationToken(),
		IsUsed:    false,
		ExpiresAt: time.Now().Add(s.tokenTTL),
	}
	if err := s.verificationRepo.Create(registration); err != nil {
		return "", err
	}

	log.Printf("[VerificationService] phone=%s verified, registration token issued", phone)
	return registration.Token, nil
}

// CooldownSeconds returns the configured resend cooldown as whole seconds.
func (s *VerificationService) CooldownSeconds() int {
	return int(s.resendCooldown.Seconds())
}

// generateVerificationCode draws a 6-digit code uniformly from
// [100000, 999999] using a cryptographically secure source.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// generateVerificationToken returns an opaque unguessable token. UUIDv4
// carries 122 random bits from crypto/rand, comfortably above the 80-bit floor.
func generateVerificationToken() string {
	return uuid.NewString()
}
