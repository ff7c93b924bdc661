package hcaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/armonyco/armonyco/internal/pkg/env"
)

const DefaultEndpoint = "https://hcaptcha.com/siteverify"

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks hCaptcha tokens submitted with the signup wizard.
type Verifier struct {
	Secret     string
	Endpoint   string
	HTTPClient *http.Client
}

// NewVerifierFromEnv returns nil when HCAPTCHA_SECRET is not set, which
// turns the check off.
func NewVerifierFromEnv() *Verifier {
	secret := strings.TrimSpace(env.GetEnv("HCAPTCHA_SECRET", ""))
	if secret == "" {
		return nil
	}
	return &Verifier{
		Secret:     secret,
		Endpoint:   DefaultEndpoint,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return fmt.Errorf("hCaptcha token is empty")
	}

	formData := url.Values{
		"secret":   {v.Secret},
		"response": {token},
	}
	if remoteIP != "" {
		formData.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to hCaptcha API: %w", err)
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode hCaptcha API response: %w", err)
	}

	if !response.Success {
		errorMsg := "hCaptcha validation failed"
		if len(response.ErrorCodes) > 0 {
			errorMsg = errorMsg + ": " + strings.Join(response.ErrorCodes, ", ")
		}
		return fmt.Errorf("%s", errorMsg)
	}
	return nil
}
