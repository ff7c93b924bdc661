package billing

import (
	"strings"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/internal/pkg/env"
)

// Plan is a purchasable subscription tier. Credits are the monthly decision
// allotment granted to the organization.
type Plan struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Credits       int    `json:"credits"`
	PriceCents    int64  `json:"priceCents"`
	Currency      string `json:"currency"`
	Interval      string `json:"interval"`
	StripePriceID string `json:"-"`
}

// Purchasable reports whether a Stripe price is configured for the plan.
func (p Plan) Purchasable() bool {
	return p.StripePriceID != ""
}

var basePlans = []Plan{
	{ID: "starter", Name: "Starter", Credits: 1000, PriceCents: 4900, Currency: "eur", Interval: "month"},
	{ID: "professional", Name: "Professional", Credits: 5000, PriceCents: 14900, Currency: "eur", Interval: "month"},
	{ID: "enterprise", Name: "Enterprise", Credits: 20000, PriceCents: 49900, Currency: "eur", Interval: "month"},
}

// Catalog returns the plans with their Stripe price ids read from
// STRIPE_PRICE_<PLAN ID>.
func Catalog() []Plan {
	out := make([]Plan, 0, len(basePlans))
	for _, p := range basePlans {
		p.StripePriceID = strings.TrimSpace(env.GetEnv("STRIPE_PRICE_"+strings.ToUpper(p.ID), ""))
		out = append(out, p)
	}
	return out
}

// FindPlan looks a plan up by id, case-insensitively.
func FindPlan(id string) (Plan, bool) {
	want := normalizePlanID(id)
	for _, p := range Catalog() {
		if p.ID == want {
			return p, true
		}
	}
	return Plan{}, false
}

func normalizePlanID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// normalizeStatus maps Stripe subscription statuses onto the stored set.
func normalizeStatus(status string) string {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case models.BillingStatusActive, models.BillingStatusTrialing, models.BillingStatusPastDue,
		models.BillingStatusCanceled, models.BillingStatusUnpaid, models.BillingStatusPaused:
		return s
	case "incomplete_expired":
		return models.BillingStatusCanceled
	default:
		return models.BillingStatusIncomplete
	}
}

func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}
