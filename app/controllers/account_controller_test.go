package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/app/repository"
	"github.com/armonyco/armonyco/app/repository/memrepo"
	"github.com/armonyco/armonyco/internal/pkg/identity"
)

const testUserID = "0b6f3c1e-2a7d-4c55-9a57-3f0f4d3f9b10"

type recordingIdentities struct {
	deleted []string
	err     error
}

func (r *recordingIdentities) CreateUser(context.Context, string, string) (*identity.User, error) {
	return nil, errors.New("not used")
}

func (r *recordingIdentities) DeleteUser(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return r.err
}

func (r *recordingIdentities) GetUser(context.Context, string) (*identity.User, error) {
	return nil, identity.ErrUserNotFound
}

func seedAccount(t *testing.T, store *memrepo.Store) {
	t.Helper()
	ctx := context.Background()
	repos := store.Repositories()
	require.NoError(t, repos.Profile.Upsert(ctx, &models.Profile{UserID: testUserID, Email: "anna@example.com", FirstName: "Anna"}))
	require.NoError(t, repos.Organization.Upsert(ctx, &models.Organization{OwnerUserID: testUserID, Name: "Hotel Aurora"}))
	require.NoError(t, repos.Billing.Upsert(ctx, &models.BillingDetails{UserID: testUserID, PlanID: "starter", SubscriptionStatus: models.BillingStatusActive}))
}

func newAccountApp(ids identity.Provider, store *memrepo.Store) *fiber.App {
	app := newTestApp()
	ac := NewAccountController(ids, store.Repositories())
	app.Use(asUser(testUserID, "anna@example.com"))
	app.Get("/account", ac.HandleMe)
	app.Delete("/account", ac.HandleDelete)
	return app
}

func TestHandleMe(t *testing.T) {
	store := memrepo.New()
	seedAccount(t, store)
	app := newAccountApp(&recordingIdentities{}, store)

	resp := doRequest(t, app, http.MethodGet, "/account", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, testUserID, body["userId"])
	assert.Contains(t, body, "profile")
	assert.Contains(t, body, "organization")
	assert.Contains(t, body, "billing")
}

func TestHandleDeleteRemovesEverything(t *testing.T) {
	store := memrepo.New()
	seedAccount(t, store)
	ids := &recordingIdentities{}
	app := newAccountApp(ids, store)

	resp := doRequest(t, app, http.MethodDelete, "/account", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{testUserID}, ids.deleted)

	_, profiles, orgs, billingRows := store.Counts()
	assert.Zero(t, profiles)
	assert.Zero(t, orgs)
	assert.Zero(t, billingRows)
}

func TestHandleDeleteIdentityFailure(t *testing.T) {
	store := memrepo.New()
	seedAccount(t, store)
	app := newAccountApp(&recordingIdentities{err: errors.New("gotrue down")}, store)

	resp := doRequest(t, app, http.MethodDelete, "/account", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "delete_failed", body["error"])
}

func TestHandleDeleteRunsInTransaction(t *testing.T) {
	store := memrepo.New()
	seedAccount(t, store)
	ids := &recordingIdentities{}

	var txCalls int
	app := newTestApp()
	ac := NewAccountController(ids, store.Repositories()).WithTransactions(
		func(ctx context.Context, fn func(tx *repository.Repositories) error) error {
			txCalls++
			return fn(store.Repositories())
		})
	app.Use(asUser(testUserID, "anna@example.com"))
	app.Delete("/account", ac.HandleDelete)

	resp := doRequest(t, app, http.MethodDelete, "/account", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, txCalls)
	_, profiles, orgs, billingRows := store.Counts()
	assert.Zero(t, profiles+orgs+billingRows)
}

func TestHandleDeleteRecordFailureKeepsIdentity(t *testing.T) {
	store := memrepo.New()
	seedAccount(t, store)
	ids := &recordingIdentities{}

	app := newTestApp()
	ac := NewAccountController(ids, store.Repositories()).WithTransactions(
		func(context.Context, func(tx *repository.Repositories) error) error {
			return errors.New("deadlock")
		})
	app.Use(asUser(testUserID, "anna@example.com"))
	app.Delete("/account", ac.HandleDelete)

	resp := doRequest(t, app, http.MethodDelete, "/account", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, ids.deleted)
}
