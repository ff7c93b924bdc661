package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/armonyco/armonyco/app/repository"
	"github.com/armonyco/armonyco/internal/pkg/identity"
	"github.com/armonyco/armonyco/internal/pkg/session"
	"github.com/armonyco/armonyco/internal/pkg/usercontext"
)

// TransactionRunner runs fn against repositories bound to one transaction.
type TransactionRunner func(ctx context.Context, fn func(tx *repository.Repositories) error) error

// AccountController serves the signed-in account.
type AccountController struct {
	identities identity.Provider
	repos      *repository.Repositories
	tx         TransactionRunner
}

func NewAccountController(identities identity.Provider, repos *repository.Repositories) *AccountController {
	return &AccountController{identities: identities, repos: repos}
}

// WithTransactions makes account deletion remove the dependent records
// atomically.
func (ac *AccountController) WithTransactions(tx TransactionRunner) *AccountController {
	ac.tx = tx
	return ac
}

// HandleMe returns the profile, organization and billing state of the caller.
func (ac *AccountController) HandleMe(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := usercontext.GetUserID(c)

	out := fiber.Map{"userId": userID, "email": usercontext.GetUserContext(c).Email}
	if p, err := ac.repos.Profile.GetByUserID(ctx, userID); err == nil {
		out["profile"] = p
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Account could not be loaded")
	}
	if o, err := ac.repos.Organization.GetByOwner(ctx, userID); err == nil {
		out["organization"] = o
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Account could not be loaded")
	}
	if b, err := ac.repos.Billing.GetByUserID(ctx, userID); err == nil {
		out["billing"] = b
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Account could not be loaded")
	}
	return c.JSON(out)
}

// HandleDelete removes the dependent records, then the identity, and ends
// the session. The identity goes last so a failure leaves it reachable for a
// second attempt.
func (ac *AccountController) HandleDelete(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := usercontext.GetUserID(c)

	if err := ac.deleteRecords(ctx, userID); err != nil {
		log.Errorf("[Account] Failed to delete records of %s: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "delete_failed", "Account could not be deleted")
	}
	if err := ac.identities.DeleteUser(ctx, userID); err != nil {
		log.Errorf("[Account] Failed to delete identity %s: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "delete_failed", "Account could not be deleted")
	}

	if err := session.Destroy(c); err != nil {
		log.Warnf("[Account] Session of deleted account %s not destroyed: %v", userID, err)
	}
	log.Infof("[Account] Deleted account %s", userID)
	return c.SendStatus(fiber.StatusNoContent)
}

// deleteRecords removes billing details, organization and profile, in the
// reverse of creation order.
func (ac *AccountController) deleteRecords(ctx context.Context, userID string) error {
	run := func(repos *repository.Repositories) error {
		if err := repos.Billing.DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if err := repos.Organization.DeleteByOwner(ctx, userID); err != nil {
			return err
		}
		return repos.Profile.DeleteByUserID(ctx, userID)
	}
	if ac.tx != nil {
		return ac.tx(ctx, run)
	}
	return run(ac.repos)
}
