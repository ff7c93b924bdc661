package identity

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/armonyco/armonyco/app/models"
	"github.com/armonyco/armonyco/app/repository"
)

// LocalProvider keeps identities in the users table with bcrypt hashes. It is
// used when IDENTITY_PROVIDER=local.
type LocalProvider struct {
	users repository.UserRepository
}

func NewLocalProvider(users repository.UserRepository) *LocalProvider {
	return &LocalProvider{users: users}
}

func (p *LocalProvider) CreateUser(ctx context.Context, email, password string) (*User, error) {
	u, err := models.CreateUser(email, password)
	if err != nil {
		return nil, err
	}
	if err := p.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return &User{ID: u.ID, Email: u.Email}, nil
}

func (p *LocalProvider) DeleteUser(ctx context.Context, id string) error {
	return p.users.Delete(ctx, id)
}

func (p *LocalProvider) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := p.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &User{ID: u.ID, Email: u.Email}, nil
}

