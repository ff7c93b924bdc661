package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armonyco/armonyco/internal/pkg/billing"
)

type stubWebhook struct {
	payload   string
	signature string
	res       *billing.WebhookResult
	err       error
}

func (s *stubWebhook) Handle(_ context.Context, payload []byte, sig string) (*billing.WebhookResult, error) {
	s.payload, s.signature = string(payload), sig
	return s.res, s.err
}

func postWebhook(t *testing.T, h WebhookHandler) (*http.Response, map[string]any) {
	t.Helper()
	app := newTestApp()
	app.Post("/webhooks/stripe", NewWebhookController(h).HandleStripe)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var body map[string]any
	decodeBody(t, resp, &body)
	return resp, body
}

func TestHandleStripeWebhook(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		h := &stubWebhook{res: &billing.WebhookResult{EventID: "evt_1", Updated: 1}}
		resp, body := postWebhook(t, h)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, false, body["duplicate"])
		assert.Equal(t, `{"id":"evt_1"}`, h.payload)
		assert.Equal(t, "t=1,v1=abc", h.signature)
	})

	t.Run("redelivery is acknowledged", func(t *testing.T) {
		resp, body := postWebhook(t, &stubWebhook{res: &billing.WebhookResult{EventID: "evt_1", Duplicate: true}})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["duplicate"])
	})

	t.Run("bad signature", func(t *testing.T) {
		resp, body := postWebhook(t, &stubWebhook{err: billing.ErrInvalidSignature})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_signature", body["error"])
	})

	t.Run("processing failure", func(t *testing.T) {
		resp, _ := postWebhook(t, &stubWebhook{err: errors.New("db down")})
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
}
