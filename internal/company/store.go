package company

import (
	"context"
)

// Store is a company database.
type Store interface {
	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error
	// Begin starts a write session backed by one transaction.
	Begin(ctx context.Context) (Session, error)

	// GetProfile returns a company with its child facts, or nil when absent.
	GetProfile(ctx context.Context, id int64) (*Profile, error)
	// SearchCompanies returns companies whose name contains name,
	// case-insensitively, ordered by name.
	SearchCompanies(ctx context.Context, name string, limit int) ([]Company, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error

	Close() error
}

// Session writes inside a single transaction. Lookups return nil when no
// company matches.
type Session interface {
	FindByUEN(ctx context.Context, uen string) (*Company, error)
	FindByName(ctx context.Context, name string) (*Company, error)
	// InsertCompany stores c and sets its ID and timestamps.
	InsertCompany(ctx context.Context, c *Company) error
	// MergeCompany fills the stored company's columns from c wherever c
	// has a value. Columns c leaves empty are untouched.
	MergeCompany(ctx context.Context, id int64, c *Company) error

	InsertContact(ctx context.Context, c *Contact) error
	InsertSocial(ctx context.Context, s *Social) error
	InsertKeyword(ctx context.Context, k *Keyword) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
