// Package identity creates and deletes authenticated identities. Sessions,
// password flows and OAuth stay with the hosted provider.
package identity

import (
	"context"
	"errors"
)

var (
	ErrUserExists   = errors.New("email already registered")
	ErrUserNotFound = errors.New("identity not found")
)

// User is the provider's view of an identity.
type User struct {
	ID    string
	Email string
}

// Provider is the identity surface consumed during provisioning.
type Provider interface {
	CreateUser(ctx context.Context, email, password string) (*User, error)
	DeleteUser(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (*User, error)
}
