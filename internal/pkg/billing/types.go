package billing

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}

// WebhookResult is what the webhook endpoint reports back to the provider.
type WebhookResult struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Duplicate bool   `json:"duplicate"`
	Updated   int64  `json:"updated"`
}

// CheckoutRequest starts a paid registration.
type CheckoutRequest struct {
	Email  string
	PlanID string
	// Reference ties the checkout to the draft's scope.
	Reference string
}

// CheckoutResponse carries the hosted payment page to redirect to.
type CheckoutResponse struct {
	SessionID  string `json:"sessionId"`
	SessionURL string `json:"url"`
	PlanID     string `json:"planId"`
}
