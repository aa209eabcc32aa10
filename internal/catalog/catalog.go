// Package catalog manages a tenant's category set: onboarding from templates,
// custom creation and soft deletion.
package catalog

import (
	"context"
	"errors"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"fjacquet/spendlog/internal/categorizer"
	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/pipelineerror"
	"fjacquet/spendlog/internal/store"
	"fjacquet/spendlog/internal/textutils"
)

// Options configures a Manager. Zero values get defaults.
type Options struct {
	FallbackNames []string
	Now           func() time.Time
	Logger        logging.Logger
}

// Manager is the only writer of tenant categories.
type Manager struct {
	templates     store.TemplateRepository
	categories    store.CategoryRepository
	fallbackNames []string
	now           func() time.Time
	logger        logging.Logger
}

// NewManager creates a catalog manager over the given repositories.
func NewManager(templates store.TemplateRepository, categories store.CategoryRepository, opts Options) *Manager {
	if len(opts.FallbackNames) == 0 {
		opts.FallbackNames = categorizer.DefaultFallbackNames
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Manager{
		templates:     templates,
		categories:    categories,
		fallbackNames: opts.FallbackNames,
		now:           opts.Now,
		logger:        opts.Logger,
	}
}

// FallbackNames returns the catch-all names this catalog recognizes.
func (m *Manager) FallbackNames() []string {
	return m.fallbackNames
}

// ListActive returns the tenant's non-deleted categories sorted by folded
// name. Equal names keep store order, so the result is stable.
func (m *Manager) ListActive(ctx context.Context, tenantID string) ([]models.CategoryInstance, error) {
	cats, err := m.categories.ListCategories(ctx, tenantID, false)
	if err != nil {
		return nil, &pipelineerror.PersistenceError{Op: "list_categories", Err: err}
	}
	active := make([]models.CategoryInstance, 0, len(cats))
	for _, c := range cats {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	sortByName(active)
	return active, nil
}

func sortByName(cats []models.CategoryInstance) {
	keys := make(map[uuid.UUID]string, len(cats))
	for _, c := range cats {
		keys[c.ID] = textutils.Fold(c.Name)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return keys[cats[i].ID] < keys[cats[j].ID]
	})
}

// CreateCustom adds a tenant-defined category. It is idempotent: when an
// active category with the same folded name and polarity exists, that one is
// returned and nothing is written.
func (m *Manager) CreateCustom(ctx context.Context, tenantID, name string, polarity models.Polarity, icon string) (models.CategoryInstance, error) {
	name = textutils.CollapseSpaces(name)
	if err := validateName(name); err != nil {
		return models.CategoryInstance{}, err
	}
	if !polarity.Valid() {
		return models.CategoryInstance{}, &pipelineerror.ValidationError{Field: "polarity", Reason: "must be income or expense"}
	}
	if icon == "" {
		icon = models.DefaultCategoryIcon
	}

	if existing, ok, err := m.findActive(ctx, tenantID, name, polarity); err != nil {
		return models.CategoryInstance{}, err
	} else if ok {
		return existing, nil
	}

	c := models.CategoryInstance{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		Polarity:  polarity,
		Icon:      icon,
		CreatedAt: m.now().UTC(),
	}
	err := m.categories.InsertCategory(ctx, c)
	if errors.Is(err, store.ErrDuplicate) {
		// A concurrent writer won the race; the store kept exactly one row.
		existing, ok, findErr := m.findActive(ctx, tenantID, name, polarity)
		if findErr != nil {
			return models.CategoryInstance{}, findErr
		}
		if ok {
			return existing, nil
		}
		return models.CategoryInstance{}, &pipelineerror.PersistenceError{Op: "create_category", Err: err}
	}
	if err != nil {
		return models.CategoryInstance{}, &pipelineerror.PersistenceError{Op: "create_category", Err: err}
	}

	m.logger.WithFields(
		logging.F(logging.FieldTenantID, tenantID),
		logging.F(logging.FieldCategory, name),
		logging.F(logging.FieldCategoryID, c.ID.String()),
	).Info("Created custom category")
	return c, nil
}

func validateName(name string) error {
	if name == "" {
		return &pipelineerror.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(name) > models.MaxCategoryNameLength {
		return &pipelineerror.ValidationError{Field: "name", Reason: "must be at most 50 characters"}
	}
	return nil
}

func (m *Manager) findActive(ctx context.Context, tenantID, name string, polarity models.Polarity) (models.CategoryInstance, bool, error) {
	cats, err := m.categories.ListCategories(ctx, tenantID, false)
	if err != nil {
		return models.CategoryInstance{}, false, &pipelineerror.PersistenceError{Op: "list_categories", Err: err}
	}
	want := store.NameKey(name, polarity)
	for _, c := range cats {
		if c.IsActive() && store.NameKey(c.Name, c.Polarity) == want {
			return c, true, nil
		}
	}
	return models.CategoryInstance{}, false, nil
}

// SoftDelete tombstones a category owned by tenantID. Transactions keep
// pointing at it. Deleting an already deleted category is a no-op. The last
// fallback category of a tenant cannot be deleted.
func (m *Manager) SoftDelete(ctx context.Context, categoryID uuid.UUID, tenantID, actorID string) error {
	c, err := m.categories.GetCategory(ctx, categoryID)
	if errors.Is(err, store.ErrNotFound) {
		return &pipelineerror.NotFoundError{Entity: "category", ID: categoryID.String()}
	}
	if err != nil {
		return &pipelineerror.PersistenceError{Op: "get_category", Err: err}
	}
	if c.TenantID != tenantID {
		return &pipelineerror.NotOwnerError{TenantID: tenantID, CategoryID: categoryID.String()}
	}
	if !c.IsActive() {
		return nil
	}

	active, err := m.ListActive(ctx, tenantID)
	if err != nil {
		return err
	}
	if i := categorizer.FindFallback(active, m.fallbackNames); i >= 0 && active[i].ID == c.ID {
		rest := make([]models.CategoryInstance, 0, len(active)-1)
		for _, other := range active {
			if other.ID != c.ID {
				rest = append(rest, other)
			}
		}
		if categorizer.FindFallback(rest, m.fallbackNames) < 0 {
			return &pipelineerror.ValidationError{Field: "category", Reason: "the last fallback category cannot be deleted"}
		}
	}

	if err := m.categories.MarkCategoryDeleted(ctx, categoryID, models.NewTombstone(m.now(), actorID)); err != nil {
		return &pipelineerror.PersistenceError{Op: "delete_category", Err: err}
	}
	m.logger.WithFields(
		logging.F(logging.FieldTenantID, tenantID),
		logging.F(logging.FieldActorID, actorID),
		logging.F(logging.FieldCategoryID, categoryID.String()),
	).Info("Soft-deleted category")
	return nil
}

// InitializeForNewTenant copies every template into the tenant. Re-running it
// inserts nothing that already exists. It returns the number of categories
// created.
func (m *Manager) InitializeForNewTenant(ctx context.Context, tenantID string) (int, error) {
	templates, err := m.templates.ListTemplates(ctx)
	if err != nil {
		return 0, &pipelineerror.PersistenceError{Op: "list_templates", Err: err}
	}
	n, err := m.categories.InsertCategoriesFromTemplates(ctx, tenantID, templates, m.now())
	if err != nil {
		return n, &pipelineerror.PersistenceError{Op: "initialize_tenant", Err: err}
	}

	log := m.logger.WithFields(
		logging.F(logging.FieldTenantID, tenantID),
		logging.F(logging.FieldCount, n),
	)
	if n == 0 {
		log.Debug("Tenant categories already initialized")
	} else {
		log.Info("Initialized tenant categories from templates")
	}
	return n, nil
}

// HasFallback reports whether the tenant's active catalog holds a fallback
// category.
func (m *Manager) HasFallback(ctx context.Context, tenantID string) (bool, error) {
	active, err := m.ListActive(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return categorizer.FindFallback(active, m.fallbackNames) >= 0, nil
}
