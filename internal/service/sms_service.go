package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// SMSService delivers one-time codes to a phone number. Delivery failures are
// reported to the caller but never touch verification store state.
type SMSService interface {
	SendVerificationCode(ctx context.Context, phone, code string) error
}

// NoopSMSService is used in development when no gateway is configured.
type NoopSMSService struct{}

func (s *NoopSMSService) SendVerificationCode(ctx context.Context, phone, code string) error {
	log.Printf("[SMSService] noop send verification code to=%s", phone)
	return nil
}

// GatewaySMSService sends messages through an HTTP SMS gateway.
type GatewaySMSService struct {
	baseURL string
	apiKey  string
	sender  string
	client  *http.Client
}

func NewGatewaySMSService(baseURL, apiKey, sender string) (*GatewaySMSService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("sms gateway base url is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("sms gateway api key is required")
	}
	return &GatewaySMSService{
		baseURL: baseURL,
		apiKey:  apiKey,
		sender:  sender,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type gatewaySendRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

type gatewaySendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

func (s *GatewaySMSService) SendVerificationCode(ctx context.Context, phone, code string) error {
	if phone == "" || code == "" {
		return fmt.Errorf("phone and code are required")
	}

	payload, err := json.Marshal(gatewaySendRequest{
		To:   phone,
		From: s.sender,
		Text: fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", code),
	})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed gatewaySendResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return fmt.Errorf("sms gateway error: %s", parsed.Error)
	}

	log.Printf("[SMSService] sent verification code to=%s message_id=%s", phone, parsed.MessageID)
	return nil
}
