package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tutorlink-api/internal/domain/entity"
	"github.com/yourusername/tutorlink-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// Моки сервисов верификации/регистрации
// ============================================================================

type MockVerificationFlow struct {
	mock.Mock
}

func (m *MockVerificationFlow) RequestCode(ctx context.Context, phone string) (*service.CodeChallenge, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CodeChallenge), args.Error(1)
}

func (m *MockVerificationFlow) VerifyCode(ctx context.Context, phone, code string) (string, error) {
	args := m.Called(ctx, phone, code)
	return args.String(0), args.Error(1)
}

func (m *MockVerificationFlow) CooldownSeconds() int {
	args := m.Called()
	return args.Int(0)
}

type MockRegistrationFlow struct {
	mock.Mock
}

func (m *MockRegistrationFlow) Register(ctx context.Context, token string, input service.RegistrationInput) (*entity.User, error) {
	args := m.Called(ctx, token, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

// ============================================================================
// Хелперы
// ============================================================================

// newTestGinContext создает *gin.Context для тестов с JSON body
func newTestGinContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

// ============================================================================
// Request validation tests — handler возвращает 400 до вызова сервиса
// ============================================================================

func TestRequestCode_ValidationErrors(t *testing.T) {
	handler := &VerificationHandler{}

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "empty body", body: nil},
		{name: "missing phone", body: map[string]string{}},
		{name: "empty phone", body: map[string]string{"phone": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestGinContext(http.MethodPost, "/api/auth/request-code", tt.body)
			handler.RequestCode(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := parseJSONResponse(t, w)
			assert.Contains(t, resp["error"], "Invalid request data")
		})
	}
}

func TestVerifyCode_ValidationErrors(t *testing.T) {
	handler := &VerificationHandler{}

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "empty body", body: nil},
		{name: "missing code", body: map[string]string{"phone": "98765432"}},
		{name: "missing phone", body: map[string]string{"code": "123456"}},
		{name: "code too short", body: map[string]string{"phone": "98765432", "code": "123"}},
		{name: "code not numeric", body: map[string]string{"phone": "98765432", "code": "12a456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestGinContext(http.MethodPost, "/api/auth/verify-code", tt.body)
			handler.VerifyCode(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	handler := &VerificationHandler{}

	valid := map[string]string{
		"token":    "some-token",
		"name":     "Chan Tai Man",
		"password": "secret123",
		"userType": "student",
	}

	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{name: "missing token", mutate: func(m map[string]string) { delete(m, "token") }},
		{name: "missing name", mutate: func(m map[string]string) { delete(m, "name") }},
		{name: "short password", mutate: func(m map[string]string) { m["password"] = "123" }},
		{name: "bad user type", mutate: func(m map[string]string) { m["userType"] = "admin" }},
		{name: "bad email", mutate: func(m map[string]string) { m["email"] = "not-an-email" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := make(map[string]string, len(valid))
			for k, v := range valid {
				body[k] = v
			}
			tt.mutate(body)

			c, w := newTestGinContext(http.MethodPost, "/api/auth/register", body)
			handler.Register(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// ============================================================================
// Успешные сценарии и маппинг ошибок
// ============================================================================

func TestRequestCode_Success(t *testing.T) {
	flow := new(MockVerificationFlow)
	handler := NewVerificationHandler(flow, nil)

	flow.On("RequestCode", mock.Anything, "98765432").Return(&service.CodeChallenge{
		Token:         "challenge-token",
		Code:          "123456",
		RetryAfterSec: 90,
	}, nil)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/request-code", map[string]string{"phone": "98765432"})
	handler.RequestCode(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "challenge-token", resp["token"])
	assert.Equal(t, float64(90), resp["retryAfter"])
	// В test mode (не release) код возвращается для диагностики
	assert.Equal(t, "123456", resp["code"])
}

func TestRequestCode_PhoneAlreadyRegistered(t *testing.T) {
	flow := new(MockVerificationFlow)
	handler := NewVerificationHandler(flow, nil)

	flow.On("RequestCode", mock.Anything, "98765432").Return(nil, service.ErrPhoneAlreadyRegistered)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/request-code", map[string]string{"phone": "98765432"})
	handler.RequestCode(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "phone_already_registered", resp["error_type"])
}

func TestRequestCode_CooldownReturns429(t *testing.T) {
	flow := new(MockVerificationFlow)
	handler := NewVerificationHandler(flow, nil)

	flow.On("RequestCode", mock.Anything, "98765432").Return(nil, service.ErrResendCooldown)
	flow.On("CooldownSeconds").Return(90)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/request-code", map[string]string{"phone": "98765432"})
	handler.RequestCode(c)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "resend_cooldown", resp["error_type"])
	assert.Equal(t, float64(90), resp["retry_after"])
}

func TestRequestCode_DispatchFailedReturns500(t *testing.T) {
	flow := new(MockVerificationFlow)
	handler := NewVerificationHandler(flow, nil)

	flow.On("RequestCode", mock.Anything, "98765432").Return(nil, service.ErrDispatchFailed)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/request-code", map[string]string{"phone": "98765432"})
	handler.RequestCode(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "sms_dispatch_failed", resp["error_type"])
}

func TestVerifyCode_Success(t *testing.T) {
	flow := new(MockVerificationFlow)
	handler := NewVerificationHandler(flow, nil)

	flow.On("VerifyCode", mock.Anything, "98765432", "123456").Return("registration-token", nil)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/verify-code", map[string]string{
		"phone": "98765432",
		"code":  "123456",
	})
	handler.VerifyCode(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "registration-token", resp["token"])
}

func TestVerifyCode_InvalidCodeReturns400(t *testing.T) {
	flow := new(MockVerificationFlow)
	handler := NewVerificationHandler(flow, nil)

	flow.On("VerifyCode", mock.Anything, "98765432", "000000").Return("", service.ErrInvalidOrExpiredCode)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/verify-code", map[string]string{
		"phone": "98765432",
		"code":  "000000",
	})
	handler.VerifyCode(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "invalid_or_expired_code", resp["error_type"])
}

func TestRegister_Success(t *testing.T) {
	registration := new(MockRegistrationFlow)
	handler := NewVerificationHandler(nil, registration)

	user := &entity.User{
		ID:       7,
		Phone:    "+85298765432",
		Name:     "Chan Tai Man",
		UserType: entity.UserTypeStudent,
	}
	registration.On("Register", mock.Anything, "registration-token", service.RegistrationInput{
		Name:     "Chan Tai Man",
		Password: "secret123",
		UserType: "student",
	}).Return(user, nil)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/register", map[string]string{
		"token":    "registration-token",
		"name":     "Chan Tai Man",
		"password": "secret123",
		"userType": "student",
	})
	handler.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "success", resp["status"])

	userResp, ok := resp["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "+85298765432", userResp["phone"])
	assert.Equal(t, "student", userResp["user_type"])
}

func TestRegister_InvalidTokenReturns401(t *testing.T) {
	registration := new(MockRegistrationFlow)
	handler := NewVerificationHandler(nil, registration)

	registration.On("Register", mock.Anything, "bogus", mock.Anything).
		Return(nil, service.ErrInvalidRegistrationToken)

	c, w := newTestGinContext(http.MethodPost, "/api/auth/register", map[string]string{
		"token":    "bogus",
		"name":     "Chan Tai Man",
		"password": "secret123",
		"userType": "tutor",
	})
	handler.Register(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "invalid_registration_token", resp["error_type"])
}
