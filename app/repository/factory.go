package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Factory builds the repositories once per process and runs grouped writes
// in a single database transaction.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns the shared repositories bound to the connection.
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// Transaction runs fn with repositories bound to one transaction. Returning
// an error from fn rolls every write back.
func (f *Factory) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
