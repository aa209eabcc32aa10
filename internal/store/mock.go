package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fjacquet/spendlog/internal/models"
)

// MockStore is a MemoryStore with injectable failures for testing.
type MockStore struct {
	*MemoryStore

	// Error flags for testing error conditions
	ListCategoriesError    error
	InsertCategoryError    error
	InsertTemplatesError   error
	MarkDeletedError       error
	InsertTransactionError error
	PingError              error

	// FailTransactionsFor makes InsertTransaction fail for records with
	// these descriptions.
	FailTransactionsFor map[string]error
}

// NewMockStore returns a mock backed by a fresh MemoryStore.
func NewMockStore(templates []models.CategoryTemplate) *MockStore {
	return &MockStore{MemoryStore: NewMemoryStore(templates)}
}

func (m *MockStore) ListCategories(ctx context.Context, tenantID string, includeDeleted bool) ([]models.CategoryInstance, error) {
	if m.ListCategoriesError != nil {
		return nil, m.ListCategoriesError
	}
	return m.MemoryStore.ListCategories(ctx, tenantID, includeDeleted)
}

func (m *MockStore) InsertCategory(ctx context.Context, c models.CategoryInstance) error {
	if m.InsertCategoryError != nil {
		return m.InsertCategoryError
	}
	return m.MemoryStore.InsertCategory(ctx, c)
}

func (m *MockStore) InsertCategoriesFromTemplates(ctx context.Context, tenantID string, templates []models.CategoryTemplate, now time.Time) (int, error) {
	if m.InsertTemplatesError != nil {
		return 0, m.InsertTemplatesError
	}
	return m.MemoryStore.InsertCategoriesFromTemplates(ctx, tenantID, templates, now)
}

func (m *MockStore) MarkCategoryDeleted(ctx context.Context, id uuid.UUID, tombstone models.Tombstone) error {
	if m.MarkDeletedError != nil {
		return m.MarkDeletedError
	}
	return m.MemoryStore.MarkCategoryDeleted(ctx, id, tombstone)
}

func (m *MockStore) InsertTransaction(ctx context.Context, r models.TransactionRecord) error {
	if m.InsertTransactionError != nil {
		return m.InsertTransactionError
	}
	if err, ok := m.FailTransactionsFor[r.Description]; ok {
		return err
	}
	return m.MemoryStore.InsertTransaction(ctx, r)
}

func (m *MockStore) Ping(ctx context.Context) error {
	if m.PingError != nil {
		return m.PingError
	}
	return m.MemoryStore.Ping(ctx)
}

var _ Store = (*MockStore)(nil)
