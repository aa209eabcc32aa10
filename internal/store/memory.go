package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fjacquet/spendlog/internal/models"
)

// MemoryStore keeps everything in process memory. It enforces the same
// uniqueness rules as the relational schema and is safe for concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	templates    []models.CategoryTemplate
	categories   map[uuid.UUID]models.CategoryInstance
	order        []uuid.UUID
	activeNames  map[string]uuid.UUID // tenant + NameKey -> id, active rows only
	copiedTmpl   map[string]uuid.UUID // tenant + template id -> id
	transactions []models.TransactionRecord
}

// NewMemoryStore returns an empty store serving the given templates.
func NewMemoryStore(templates []models.CategoryTemplate) *MemoryStore {
	return &MemoryStore{
		templates:   append([]models.CategoryTemplate(nil), templates...),
		categories:  make(map[uuid.UUID]models.CategoryInstance),
		activeNames: make(map[string]uuid.UUID),
		copiedTmpl:  make(map[string]uuid.UUID),
	}
}

func activeKey(c models.CategoryInstance) string {
	return c.TenantID + "\x00" + NameKey(c.Name, c.Polarity)
}

func templateKey(tenantID string, templateID uuid.UUID) string {
	return tenantID + "\x00" + templateID.String()
}

func (s *MemoryStore) ListTemplates(ctx context.Context) ([]models.CategoryTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CategoryTemplate(nil), s.templates...), nil
}

func (s *MemoryStore) ListCategories(ctx context.Context, tenantID string, includeDeleted bool) ([]models.CategoryInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CategoryInstance
	for _, id := range s.order {
		c := s.categories[id]
		if c.TenantID != tenantID || (!includeDeleted && !c.IsActive()) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *MemoryStore) GetCategory(ctx context.Context, id uuid.UUID) (models.CategoryInstance, error) {
	if err := ctx.Err(); err != nil {
		return models.CategoryInstance{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return models.CategoryInstance{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) InsertCategory(ctx context.Context, c models.CategoryInstance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(c)
}

func (s *MemoryStore) insertLocked(c models.CategoryInstance) error {
	if _, exists := s.categories[c.ID]; exists {
		return ErrDuplicate
	}
	if c.IsActive() {
		if _, taken := s.activeNames[activeKey(c)]; taken {
			return ErrDuplicate
		}
	}
	if c.TemplateID != nil {
		if _, copied := s.copiedTmpl[templateKey(c.TenantID, *c.TemplateID)]; copied {
			return ErrDuplicate
		}
		s.copiedTmpl[templateKey(c.TenantID, *c.TemplateID)] = c.ID
	}
	if c.IsActive() {
		s.activeNames[activeKey(c)] = c.ID
	}
	s.categories[c.ID] = c
	s.order = append(s.order, c.ID)
	return nil
}

func (s *MemoryStore) InsertCategoriesFromTemplates(ctx context.Context, tenantID string, templates []models.CategoryTemplate, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, t := range templates {
		err := s.insertLocked(models.NewCategoryFromTemplate(tenantID, t, now))
		if err == ErrDuplicate {
			continue
		}
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (s *MemoryStore) MarkCategoryDeleted(ctx context.Context, id uuid.UUID, tombstone models.Tombstone) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return ErrNotFound
	}
	if c.IsActive() && tombstone.Deleted {
		delete(s.activeNames, activeKey(c))
	}
	c.Tombstone = tombstone
	s.categories[id] = c
	return nil
}

func (s *MemoryStore) InsertTransaction(ctx context.Context, r models.TransactionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CategoryID != nil {
		c, ok := s.categories[*r.CategoryID]
		if !ok || c.TenantID != r.TenantID {
			return ErrNotFound
		}
	}
	s.transactions = append(s.transactions, r)
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, tenantID string) ([]models.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.TransactionRecord
	for _, r := range s.transactions {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
