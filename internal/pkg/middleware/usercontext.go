package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/armonyco/armonyco/internal/pkg/session"
	"github.com/armonyco/armonyco/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the user context for every request from the
// browser session.
func UserContextMiddleware(c *fiber.Ctx) error {
	store := session.GetSessionStore()
	if store == nil {
		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}

	sess, err := store.Get(c)
	if err != nil {
		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}

	userID, _ := sess.Get(session.KeyUserID).(string)
	if userID == "" {
		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}

	email, _ := sess.Get(session.KeyEmail).(string)
	usercontext.Set(c, usercontext.UserContext{
		UserID:     userID,
		Email:      email,
		IsLoggedIn: true,
	})
	return c.Next()
}
