package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/app/repository/memrepo"
)

type hotelPage struct {
	Hotels []models.Hotel `json:"hotels"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

func TestHandleListHotels(t *testing.T) {
	store := memrepo.New()
	seedAccount(t, store)
	org, err := store.Repositories().Organization.GetByOwner(context.Background(), testUserID)
	require.NoError(t, err)
	store.AddHotel(models.Hotel{OrganizationID: org.ID, Name: "Aurora Centro"})
	store.AddHotel(models.Hotel{OrganizationID: org.ID, Name: "Aurora Mare"})
	store.AddHotel(models.Hotel{OrganizationID: org.ID + 100, Name: "Someone Else"})

	app := newTestApp()
	app.Use(asUser(testUserID, "anna@example.com"))
	app.Get("/hotels", NewHotelController(store.Repositories()).HandleList)

	resp := doRequest(t, app, http.MethodGet, "/hotels", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page hotelPage
	decodeBody(t, resp, &page)
	require.Len(t, page.Hotels, 2)
	assert.Equal(t, defaultHotelLimit, page.Limit)

	resp = doRequest(t, app, http.MethodGet, "/hotels?offset=1&limit=500", nil)
	decodeBody(t, resp, &page)
	require.Len(t, page.Hotels, 1)
	assert.Equal(t, "Aurora Mare", page.Hotels[0].Name)
	assert.Equal(t, maxHotelLimit, page.Limit)
}

func TestHandleListHotelsWithoutOrganization(t *testing.T) {
	app := newTestApp()
	app.Use(asUser(testUserID, "anna@example.com"))
	app.Get("/hotels", NewHotelController(memrepo.New().Repositories()).HandleList)

	resp := doRequest(t, app, http.MethodGet, "/hotels", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page hotelPage
	decodeBody(t, resp, &page)
	assert.Empty(t, page.Hotels)
}

func TestHandlePlans(t *testing.T) {
	app := newTestApp()
	app.Get("/plans", HandlePlans)

	resp := doRequest(t, app, http.MethodGet, "/plans", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body struct {
		Plans []map[string]any `json:"plans"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Plans, 3)
	assert.Equal(t, "starter", body.Plans[0]["id"])
}
