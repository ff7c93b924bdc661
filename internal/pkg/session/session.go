package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/armonyco/armonyco/internal/pkg/cache"
	"github.com/armonyco/armonyco/internal/pkg/env"
)

const (
	KeyUserID = "user_id"
	KeyEmail  = "email"
)

var sessionStore *session.Store

// NewSessionStore keeps sessions in Redis DB 1 (the cache and drafts use
// DB 0). The session id is the scope registration drafts are stored under,
// so it must outlive a checkout round trip.
func NewSessionStore() *session.Store {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	return Init(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		CookieSameSite: "Lax",
		Expiration:     env.GetEnvDuration("SESSION_TTL", 7*24*time.Hour),
		KeyLookup:      "cookie:session_id",
	})
}

// Init installs a store built from cfg. Tests pass an empty config to get
// fiber's in-memory storage.
func Init(cfg session.Config) *session.Store {
	sessionStore = session.New(cfg)
	return sessionStore
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// Scope returns the id of the browser session, creating and persisting the
// session if the browser has none yet.
func Scope(c *fiber.Ctx) (string, error) {
	if sessionStore == nil {
		return "", fmt.Errorf("session store not initialized")
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %v", err)
	}
	id := sess.ID()
	if sess.Fresh() {
		// Save releases the session, so the id is read first.
		if err := sess.Save(); err != nil {
			return "", fmt.Errorf("failed to save session: %v", err)
		}
	}
	return id, nil
}

// SetAuthenticated marks the browser session as signed in under a new
// session id. Anything stored under the old id as scope must be cleared
// before this is called.
func SetAuthenticated(c *fiber.Ctx, userID, email string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %v", err)
	}
	sess.Set(KeyUserID, userID)
	sess.Set(KeyEmail, email)
	return sess.Save()
}

// GetSessionValue retrieves a value by key from the user's individual session
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}

	value := sess.Get(key)
	if value == nil {
		return ""
	}

	if strValue, ok := value.(string); ok {
		return strValue
	}

	return ""
}

// Destroy deletes the session and its cookie.
func Destroy(c *fiber.Ctx) error {
	if sessionStore == nil {
		return nil
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
