// Package store defines the repositories the pipeline persists through and
// provides an in-memory implementation. The relational implementation lives in
// the postgres subpackage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fjacquet/spendlog/internal/models"
)

var (
	// ErrDuplicate is returned when an insert would break a uniqueness rule:
	// one active category per (tenant, folded name, polarity), or one copy of
	// a template per tenant.
	ErrDuplicate = errors.New("duplicate category")

	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
)

// TemplateRepository lists the system-wide category templates.
type TemplateRepository interface {
	ListTemplates(ctx context.Context) ([]models.CategoryTemplate, error)
}

// CategoryRepository reads and writes tenant-scoped categories.
type CategoryRepository interface {
	// ListCategories returns the tenant's categories. Tombstoned rows are
	// included only when includeDeleted is set.
	ListCategories(ctx context.Context, tenantID string, includeDeleted bool) ([]models.CategoryInstance, error)

	// GetCategory returns ErrNotFound for unknown ids.
	GetCategory(ctx context.Context, id uuid.UUID) (models.CategoryInstance, error)

	// InsertCategory returns ErrDuplicate when the tenant already has an
	// active category with the same folded name and polarity.
	InsertCategory(ctx context.Context, c models.CategoryInstance) error

	// InsertCategoriesFromTemplates copies templates into the tenant, skipping
	// templates already copied and names already taken. It returns the number
	// of rows inserted.
	InsertCategoriesFromTemplates(ctx context.Context, tenantID string, templates []models.CategoryTemplate, now time.Time) (int, error)

	// MarkCategoryDeleted stores the tombstone on an existing row.
	MarkCategoryDeleted(ctx context.Context, id uuid.UUID, tombstone models.Tombstone) error
}

// TransactionRepository persists transaction records.
type TransactionRepository interface {
	InsertTransaction(ctx context.Context, r models.TransactionRecord) error
	ListTransactions(ctx context.Context, tenantID string) ([]models.TransactionRecord, error)
}

// Store is the full persistence surface used by the container.
type Store interface {
	TemplateRepository
	CategoryRepository
	TransactionRepository
	Ping(ctx context.Context) error
	Close() error
}
