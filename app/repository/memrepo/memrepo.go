// Package memrepo provides in-memory repository implementations used by
// tests and by single-process development runs without a database.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/app/repository"
)

// Store keeps every table in maps guarded by one mutex. Fail* hooks let tests
// inject write failures per table.
type Store struct {
	mu sync.Mutex

	users    map[string]models.User
	profiles map[string]models.Profile
	orgs     map[string]models.Organization
	billing  map[string]models.BillingDetails
	pending  map[string]models.PendingProvision
	invites  map[uint]models.Invitation
	hotels   []models.Hotel
	events   map[string]models.BillingWebhookEvent
	nextID   uint

	FailProfile      error
	FailOrganization error
	FailBilling      error
	FailPending      error
	FailStatusUpdate error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:    map[string]models.User{},
		profiles: map[string]models.Profile{},
		orgs:     map[string]models.Organization{},
		billing:  map[string]models.BillingDetails{},
		pending:  map[string]models.PendingProvision{},
		invites:  map[uint]models.Invitation{},
		events:   map[string]models.BillingWebhookEvent{},
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:         users{s},
		Profile:      profiles{s},
		Organization: orgs{s},
		Billing:      billing{s},
		Pending:      pending{s},
		Invitation:   invites{s},
		Hotel:        hotels{s},
		Webhook:      events{s},
	}
}

// AddHotel seeds a hotel row.
func (s *Store) AddHotel(h models.Hotel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h.ID = s.nextID
	s.hotels = append(s.hotels, h)
}

// Counts returns the number of rows per table, for assertions.
func (s *Store) Counts() (users, profiles, orgs, billingRows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), len(s.profiles), len(s.orgs), len(s.billing)
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

type users struct{ s *Store }

func (r users) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	r.s.users[u.ID] = *u
	return nil
}

func (r users) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r users) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	return nil
}

type profiles struct{ s *Store }

func (r profiles) Upsert(_ context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailProfile != nil {
		return r.s.FailProfile
	}
	r.s.profiles[p.UserID] = *p
	return nil
}

func (r profiles) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r profiles) DeleteByUserID(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.profiles, userID)
	return nil
}

type orgs struct{ s *Store }

func (r orgs) Upsert(_ context.Context, o *models.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailOrganization != nil {
		return r.s.FailOrganization
	}
	if existing, ok := r.s.orgs[o.OwnerUserID]; ok {
		o.ID = existing.ID
	} else {
		o.ID = r.s.id()
	}
	r.s.orgs[o.OwnerUserID] = *o
	return nil
}

func (r orgs) GetByOwner(_ context.Context, userID string) (*models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orgs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

func (r orgs) DeleteByOwner(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.orgs, userID)
	return nil
}

type billing struct{ s *Store }

func (r billing) Upsert(_ context.Context, b *models.BillingDetails) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailBilling != nil {
		return r.s.FailBilling
	}
	for userID, existing := range r.s.billing {
		if userID != b.UserID && b.StripeCheckoutSessionID != "" && existing.StripeCheckoutSessionID == b.StripeCheckoutSessionID {
			return gorm.ErrDuplicatedKey
		}
	}
	if existing, ok := r.s.billing[b.UserID]; ok {
		b.ID = existing.ID
	} else {
		b.ID = r.s.id()
	}
	r.s.billing[b.UserID] = *b
	return nil
}

func (r billing) GetByUserID(_ context.Context, userID string) (*models.BillingDetails, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.billing[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r billing) GetByCheckoutSessionID(_ context.Context, sessionID string) (*models.BillingDetails, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.billing {
		if b.StripeCheckoutSessionID == sessionID {
			b := b
			return &b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r billing) UpdateStatusBySubscriptionID(_ context.Context, subscriptionID, status string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailStatusUpdate != nil {
		return 0, r.s.FailStatusUpdate
	}
	var n int64
	for k, b := range r.s.billing {
		if b.StripeSubscriptionID != nil && *b.StripeSubscriptionID == subscriptionID {
			b.SubscriptionStatus = status
			r.s.billing[k] = b
			n++
		}
	}
	return n, nil
}

func (r billing) DeleteByUserID(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.billing, userID)
	return nil
}

type pending struct{ s *Store }

func (r pending) Put(_ context.Context, p *models.PendingProvision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailPending != nil {
		return r.s.FailPending
	}
	if _, ok := r.s.pending[p.CheckoutSessionID]; ok {
		return nil
	}
	p.CreatedAt = time.Now()
	r.s.pending[p.CheckoutSessionID] = *p
	return nil
}

func (r pending) GetBySessionID(_ context.Context, sessionID string) (*models.PendingProvision, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pending[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r pending) Delete(_ context.Context, sessionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.pending, sessionID)
	return nil
}

// Pending returns the marker of a checkout session, for assertions.
func (s *Store) Pending(sessionID string) (models.PendingProvision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[sessionID]
	return p, ok
}

type invites struct{ s *Store }

func (r invites) Upsert(_ context.Context, inv *models.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.invites {
		if existing.OrganizationID == inv.OrganizationID && existing.Email == inv.Email {
			inv.ID = id
			r.s.invites[id] = *inv
			return nil
		}
	}
	inv.ID = r.s.id()
	r.s.invites[inv.ID] = *inv
	return nil
}

func (r invites) GetByToken(_ context.Context, token string) (*models.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invites {
		if inv.Token == token {
			inv := inv
			return &inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type hotels struct{ s *Store }

func (r hotels) ListByOrganization(_ context.Context, organizationID uint, offset, limit int) ([]models.Hotel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Hotel
	for _, h := range r.s.hotels {
		if h.OrganizationID == organizationID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type events struct{ s *Store }

func (r events) CreateIfNotExists(_ context.Context, e *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := e.Provider + "/" + e.ProviderEventID
	if stored, ok := r.s.events[key]; ok {
		return false, &stored, nil
	}
	e.ID = r.s.id()
	r.s.events[key] = *e
	stored := *e
	return true, &stored, nil
}

func (r events) MarkProcessed(_ context.Context, id uint, processingError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, e := range r.s.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			r.s.events[k] = e
		}
	}
	return nil
}

// Event returns a stored webhook event by provider event id.
func (s *Store) Event(provider, eventID string) (models.BillingWebhookEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[provider+"/"+eventID]
	return e, ok
}
