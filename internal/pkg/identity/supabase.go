package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	auth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/internal/pkg/env"
)

var errSupabaseNotConfigured = errors.New("SUPABASE_URL/SUPABASE_SERVICE_ROLE_KEY are not configured")

// SupabaseClient manages identities through the Supabase Auth admin API with
// the service role key. The admin client takes no context, so ctx is only
// checked before each call; the caller's step timeout bounds the wait.
type SupabaseClient struct {
	BaseURL string
	admin   auth.Client
}

func NewSupabaseClient(baseURL, serviceRoleKey string, timeout time.Duration) *SupabaseClient {
	c := &SupabaseClient{BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
	serviceRoleKey = strings.TrimSpace(serviceRoleKey)
	if c.BaseURL == "" || serviceRoleKey == "" {
		return c
	}
	c.admin = auth.New("", serviceRoleKey).
		WithCustomAuthURL(c.BaseURL + "/auth/v1").
		WithToken(serviceRoleKey).
		WithClient(http.Client{Timeout: timeout})
	return c
}

func NewSupabaseClientFromEnv() *SupabaseClient {
	return NewSupabaseClient(
		env.GetEnv("SUPABASE_URL", ""),
		env.GetEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		env.GetEnvDuration("SUPABASE_TIMEOUT", 15*time.Second),
	)
}

func (c *SupabaseClient) CreateUser(ctx context.Context, email, password string) (*User, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	res, err := c.admin.AdminCreateUser(types.AdminCreateUserRequest{
		Email:        models.NormalizeEmail(email),
		Password:     &password,
		EmailConfirm: true,
	})
	if err != nil {
		if isEmailExists(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("supabase create user: %w", err)
	}
	if res.ID == uuid.Nil {
		return nil, errors.New("supabase create user returned empty id")
	}
	return &User{ID: res.ID.String(), Email: res.Email}, nil
}

// DeleteUser treats an already missing identity as deleted.
func (c *SupabaseClient) DeleteUser(ctx context.Context, id string) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	userID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("invalid identity id %q: %w", id, err)
	}
	if err := c.admin.AdminDeleteUser(types.AdminDeleteUserRequest{UserID: userID}); err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("supabase delete user: %w", err)
	}
	return nil
}

func (c *SupabaseClient) GetUser(ctx context.Context, id string) (*User, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrUserNotFound
	}
	res, err := c.admin.AdminGetUser(types.AdminGetUserRequest{UserID: userID})
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("supabase get user: %w", err)
	}
	return &User{ID: res.ID.String(), Email: res.Email}, nil
}

func (c *SupabaseClient) ready(ctx context.Context) error {
	if c.admin == nil {
		return errSupabaseNotConfigured
	}
	return ctx.Err()
}

// statusCode reads the HTTP status from an admin client error, or 0.
func statusCode(err error) int {
	var code int
	if _, scanErr := fmt.Sscanf(err.Error(), "response status code %d", &code); scanErr != nil {
		return 0
	}
	return code
}

func isEmailExists(err error) bool {
	switch statusCode(err) {
	case http.StatusUnprocessableEntity, http.StatusConflict:
		msg := strings.ToLower(err.Error())
		return strings.Contains(msg, "email_exists") || strings.Contains(msg, "already been registered")
	}
	return false
}
