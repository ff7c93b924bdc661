package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/app/repository"
	"github.com/armonyco/armonyco/internal/pkg/usercontext"
)

const (
	defaultHotelLimit = 20
	maxHotelLimit     = 100
)

type HotelController struct {
	repos *repository.Repositories
}

func NewHotelController(repos *repository.Repositories) *HotelController {
	return &HotelController{repos: repos}
}

// HandleList pages through the hotels of the caller's organization.
func (hc *HotelController) HandleList(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := c.QueryInt("limit", defaultHotelLimit)
	if limit <= 0 {
		limit = defaultHotelLimit
	}
	if limit > maxHotelLimit {
		limit = maxHotelLimit
	}

	ctx := c.UserContext()
	org, err := hc.repos.Organization.GetByOwner(ctx, usercontext.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"hotels": []models.Hotel{}, "offset": offset, "limit": limit})
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Hotels could not be loaded")
	}

	hotels, err := hc.repos.Hotel.ListByOrganization(ctx, org.ID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Hotels could not be loaded")
	}
	if hotels == nil {
		hotels = []models.Hotel{}
	}
	return c.JSON(fiber.Map{"hotels": hotels, "offset": offset, "limit": limit})
}
