package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/armonyco/armonyco/internal/pkg/env"
)

// VerifyPath is where the server exposes verification.
const VerifyPath = "/api/v1/payments/verify"

// HTTPClient asks a verification endpoint about a session, sending nothing
// but the session id.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

type verifyRequest struct {
	SessionID string `json:"sessionId"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// NewHTTPClientFromEnv returns nil when PAYMENT_VERIFY_URL is not set.
func NewHTTPClientFromEnv() *HTTPClient {
	base := strings.TrimSpace(env.GetEnv("PAYMENT_VERIFY_URL", ""))
	if base == "" {
		return nil
	}
	return NewHTTPClient(base, env.GetEnvDuration("VERIFY_TIMEOUT", 10*time.Second))
}

func (c *HTTPClient) Verify(ctx context.Context, sessionID string) (*VerificationResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, &TransportError{StatusCode: http.StatusBadRequest, Code: "invalid_session_id", Message: err.Error(), Err: err}
	}

	payload, err := json.Marshal(verifyRequest{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+VerifyPath, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Message: "invalid verification endpoint", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Message: "payment verification service unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		msg := strings.TrimSpace(eb.Message)
		if msg == "" {
			msg = fmt.Sprintf("payment verification failed with status %d", resp.StatusCode)
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Code: eb.Error, Message: msg}
	}

	var out VerificationResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "malformed verification response", Err: err}
	}
	out.SessionID = sessionID
	return &out, nil
}
