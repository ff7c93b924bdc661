package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/app/repository"
	"github.com/armonyco/armonyco/internal/pkg/env"
	"github.com/armonyco/armonyco/internal/pkg/mail"
	"github.com/armonyco/armonyco/internal/pkg/usercontext"
)

// CollaboratorController lets organization owners invite teammates.
type CollaboratorController struct {
	repos    *repository.Repositories
	mailer   mail.Mailer
	validate *validator.Validate
	now      func() time.Time
}

func NewCollaboratorController(repos *repository.Repositories, mailer mail.Mailer) *CollaboratorController {
	return &CollaboratorController{
		repos:    repos,
		mailer:   mailer,
		validate: validator.New(),
		now:      time.Now,
	}
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email,max=200"`
	Role  string `json:"role" validate:"omitempty,oneof=collaborator owner"`
}

// HandleInvite creates or refreshes an invitation and mails the link. A
// failed mail does not fail the request; the owner can resend.
func (cc *CollaboratorController) HandleInvite(c *fiber.Ctx) error {
	var req inviteRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := cc.validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", validationMessage(err))
	}
	if req.Role == "" {
		req.Role = "collaborator"
	}

	ctx := c.UserContext()
	uc := usercontext.GetUserContext(c)
	org, err := cc.repos.Organization.GetByOwner(ctx, uc.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusForbidden, "forbidden", "Only organization owners can invite collaborators")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Organization could not be loaded")
	}

	inv := &models.Invitation{
		OrganizationID:  org.ID,
		Email:           req.Email,
		Role:            req.Role,
		InvitedByUserID: uc.UserID,
	}
	if err := inv.GenerateToken(cc.now()); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Invitation could not be created")
	}
	if err := cc.repos.Invitation.Upsert(ctx, inv); err != nil {
		log.Errorf("[Collaborators] Failed to store invitation for %s: %v", req.Email, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Invitation could not be created")
	}

	acceptURL := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/") + "/invite/" + inv.Token
	body := mail.InvitationBody(org.Name, uc.Email, acceptURL)
	sent := true
	if cc.mailer == nil {
		sent = false
	} else if err := cc.mailer.Send(req.Email, "You have been invited to "+org.Name, body); err != nil {
		sent = false
		log.Warnf("[Collaborators] Invitation mail to %s failed: %v", req.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"invitation": inv,
		"emailSent":  sent,
	})
}

// HandleShowInvitation resolves an invitation link.
func (cc *CollaboratorController) HandleShowInvitation(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Invitation not found")
	}
	inv, err := cc.repos.Invitation.GetByToken(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Invitation not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Invitation could not be loaded")
	}
	if inv.IsExpired(cc.now()) {
		return jsonError(c, fiber.StatusGone, "invitation_expired", "Invitation has expired")
	}
	return c.JSON(inv)
}
