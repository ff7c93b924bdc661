package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/app/repository"
)

// Service records provider webhooks and keeps billing details in sync.
type Service struct {
	events  repository.WebhookEventRepository
	details repository.BillingDetailsRepository
}

// NewService creates a billing service from injected repositories.
func NewService(repos *repository.Repositories) *Service {
	return &Service{events: repos.Webhook, details: repos.Billing}
}

// RecordWebhookEvent persists webhook payloads idempotently. It returns false
// for an event that was already stored.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
	}
	return s.events.CreateIfNotExists(ctx, event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.events.MarkProcessed(ctx, webhookEventID, errMsg)
}

// ApplySubscriptionStatus writes a provider status onto every billing row
// paid by the subscription.
func (s *Service) ApplySubscriptionStatus(ctx context.Context, subscriptionID, status string) (int64, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return 0, errors.New("subscription id is required")
	}
	normalized := normalizeStatus(status)
	n, err := s.details.UpdateStatusBySubscriptionID(ctx, subscriptionID, normalized)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		log.Warnf("[Billing] No billing details for subscription %s", subscriptionID)
	} else {
		log.Infof("[Billing] Subscription %s is now %s (entitled=%t)", subscriptionID, normalized, isEntitlingStatus(normalized))
	}
	return n, nil
}
