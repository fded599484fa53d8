package service

import "errors"

// Verification flow specific errors used by handlers for stable error_type mapping.
// Wrong, expired and already-used codes are deliberately collapsed into one
// error so responses cannot be used as an oracle; server logs keep the detail.
var (
	ErrInvalidPhone             = errors.New("invalid_phone")
	ErrPhoneAlreadyRegistered   = errors.New("phone_already_registered")
	ErrInvalidOrExpiredCode     = errors.New("invalid_or_expired_code")
	ErrInvalidRegistrationToken = errors.New("invalid_registration_token")
	ErrResendCooldown           = errors.New("resend_cooldown")
	ErrDispatchFailed           = errors.New("sms_dispatch_failed")
)
