package models

// All lists every model managed by the schema, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Organization{},
		&BillingDetails{},
		&PendingProvision{},
		&BillingWebhookEvent{},
		&Invitation{},
		&Hotel{},
	}
}
