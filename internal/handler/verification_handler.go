package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/tutorlink-api/internal/domain/entity"
	apperrors "github.com/yourusername/tutorlink-api/internal/pkg/errors"
	"github.com/yourusername/tutorlink-api/internal/service"
)

// VerificationFlow is the part of the verification state machine the handler needs.
type VerificationFlow interface {
	RequestCode(ctx context.Context, phone string) (*service.CodeChallenge, error)
	VerifyCode(ctx context.Context, phone, code string) (string, error)
	CooldownSeconds() int
}

// RegistrationFlow consumes a registration token and creates the account.
type RegistrationFlow interface {
	Register(ctx context.Context, token string, input service.RegistrationInput) (*entity.User, error)
}

// VerificationHandler обрабатывает запросы верификации телефона и регистрации
type VerificationHandler struct {
	verificationService VerificationFlow
	registrationService RegistrationFlow
}

// NewVerificationHandler создает новый обработчик верификации
func NewVerificationHandler(verificationService VerificationFlow, registrationService RegistrationFlow) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
		registrationService: registrationService,
	}
}

// RequestCodeRequest представляет запрос на отправку кода подтверждения
type RequestCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyCodeRequest представляет запрос на проверку кода
type VerifyCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// RegisterRequest представляет запрос на регистрацию с регистрационным токеном.
// Клиентский phone здесь намеренно отсутствует: телефон берётся из токена.
type RegisterRequest struct {
	Token    string `json:"token" binding:"required"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Password string `json:"password" binding:"required,min=6,max=50"`
	UserType string `json:"userType" binding:"required,oneof=tutor student"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// RequestCode обрабатывает запрос кода подтверждения
func (h *VerificationHandler) RequestCode(c *gin.Context) {
	var req RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	challenge, err := h.verificationService.RequestCode(c.Request.Context(), req.Phone)
	if err != nil {
		h.handleVerificationError(c, err)
		return
	}

	resp := gin.H{
		"success":    true,
		"token":      challenge.Token,
		"retryAfter": challenge.RetryAfterSec,
	}
	// Диагностика для разработки: plaintext код не возвращается в release режиме
	if gin.Mode() != gin.ReleaseMode {
		resp["code"] = challenge.Code
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyCode обрабатывает проверку кода и выдаёт регистрационный токен
func (h *VerificationHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	token, err := h.verificationService.VerifyCode(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		h.handleVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

// Register обрабатывает создание аккаунта по регистрационному токену
func (h *VerificationHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	user, err := h.registrationService.Register(c.Request.Context(), req.Token, service.RegistrationInput{
		Name:     req.Name,
		Password: req.Password,
		UserType: req.UserType,
		Email:    req.Email,
	})
	if err != nil {
		h.handleVerificationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"user": gin.H{
			"id":        user.ID,
			"phone":     user.Phone,
			"name":      user.Name,
			"user_type": user.UserType,
		},
	})
}

// handleVerificationError переводит ошибки сервисов в HTTP-ответы.
// Внутренние различия (истёк/неверный/уже использован) намеренно схлопнуты.
func (h *VerificationHandler) handleVerificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid phone number",
			"error_type": "invalid_phone",
		})
	case errors.Is(err, service.ErrPhoneAlreadyRegistered):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Phone number is already registered",
			"error_type": "phone_already_registered",
		})
	case errors.Is(err, service.ErrResendCooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Please wait before requesting another code",
			"error_type":  "resend_cooldown",
			"retry_after": h.verificationService.CooldownSeconds(),
		})
	case errors.Is(err, service.ErrInvalidOrExpiredCode):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid or expired verification code",
			"error_type": "invalid_or_expired_code",
		})
	case errors.Is(err, service.ErrInvalidRegistrationToken):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":      "Invalid or expired registration token",
			"error_type": "invalid_registration_token",
		})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      err.Error(),
			"error_type": "validation_failed",
		})
	case errors.Is(err, service.ErrDispatchFailed):
		// Запись с кодом уже создана и остаётся валидной
		log.Printf("[VerificationHandler] SMS dispatch failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to send verification code, please try again",
			"error_type": "sms_dispatch_failed",
		})
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		log.Printf("[VerificationHandler] store unavailable: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":      "Service temporarily unavailable",
			"error_type": "store_unavailable",
		})
	default:
		log.Printf("[VerificationHandler] internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Internal server error",
			"error_type": "internal_error",
		})
	}
}
