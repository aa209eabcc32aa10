// Package postgres implements the store repositories on PostgreSQL with pgx
// and squirrel.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/store"
)

//go:embed schema.sql
var schema string

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var categoryColumns = []string{
	"id", "tenant_id", "template_id", "name", "polarity", "icon",
	"is_deleted", "deleted_at", "deleted_by", "created_at",
}

// Config holds the connection settings.
type Config struct {
	DSN     string
	Timeout time.Duration
}

// Store is a store.Store backed by a pgx connection pool.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  logging.Logger
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s := &Store{pool: pool, timeout: cfg.Timeout, logger: logger}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		logging.F("host", poolConfig.ConnConfig.Host),
		logging.F("database", poolConfig.ConnConfig.Database))
	return s, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Migrate creates the tables and indexes when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	s.logger.Debug("Database schema is up to date")
	return nil
}

// SyncTemplates upserts the template rows so tenant copies can reference them.
func (s *Store) SyncTemplates(ctx context.Context, templates []models.CategoryTemplate) error {
	if len(templates) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	builder := psql.Insert("category_templates").
		Columns("id", "name", "polarity", "icon", "display_order")
	for _, t := range templates {
		builder = builder.Values(t.ID, t.Name, string(t.Polarity), t.Icon, t.DisplayOrder)
	}
	query, args, err := builder.
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, icon = EXCLUDED.icon, display_order = EXCLUDED.display_order").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("syncing templates: %w", err)
	}
	return nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]models.CategoryTemplate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := psql.Select("id", "name", "polarity", "icon", "display_order").
		From("category_templates").
		OrderBy("display_order", "name").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.CategoryTemplate
	for rows.Next() {
		var t models.CategoryTemplate
		var polarity string
		if err := rows.Scan(&t.ID, &t.Name, &polarity, &t.Icon, &t.DisplayOrder); err != nil {
			return nil, err
		}
		t.Polarity = models.Polarity(polarity)
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context, tenantID string, includeDeleted bool) ([]models.CategoryInstance, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	builder := psql.Select(categoryColumns...).
		From("categories").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("created_at", "id")
	if !includeDeleted {
		builder = builder.Where(sq.Eq{"is_deleted": false})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.CategoryInstance
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (models.CategoryInstance, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := psql.Select(categoryColumns...).
		From("categories").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.CategoryInstance{}, err
	}

	c, err := scanCategory(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CategoryInstance{}, store.ErrNotFound
	}
	return c, err
}

func (s *Store) InsertCategory(ctx context.Context, c models.CategoryInstance) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := insertCategories([]models.CategoryInstance{c})
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDuplicate
	}
	return nil
}

func (s *Store) InsertCategoriesFromTemplates(ctx context.Context, tenantID string, templates []models.CategoryTemplate, now time.Time) (int, error) {
	if len(templates) == 0 {
		return 0, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	categories := make([]models.CategoryInstance, 0, len(templates))
	for _, t := range templates {
		categories = append(categories, models.NewCategoryFromTemplate(tenantID, t, now))
	}
	query, args, err := insertCategories(categories)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) MarkCategoryDeleted(ctx context.Context, id uuid.UUID, tombstone models.Tombstone) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := psql.Update("categories").
		Set("is_deleted", tombstone.Deleted).
		Set("deleted_at", nullTime(tombstone.DeletedAt)).
		Set("deleted_by", nullString(tombstone.DeletedBy)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, r models.TransactionRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := psql.Insert("transactions").
		Columns("id", "tenant_id", "actor_id", "amount", "currency", "type", "category_id",
			"occurred_on", "description", "vendor", "created_at", "updated_at", "created_by", "updated_by").
		Values(r.ID, r.TenantID, r.ActorID, r.Money.Amount.String(), r.Money.Currency, string(r.Type), r.CategoryID,
			r.Date, r.Description, r.Vendor, r.CreatedAt, r.UpdatedAt, r.CreatedBy, r.UpdatedBy).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, tenantID string) ([]models.TransactionRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := psql.Select("id", "tenant_id", "actor_id", "amount::text", "currency", "type", "category_id",
		"occurred_on", "description", "vendor", "created_at", "updated_at", "created_by", "updated_by").
		From("transactions").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("occurred_on", "created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var r models.TransactionRecord
		var amount, currency, txType string
		if err := rows.Scan(&r.ID, &r.TenantID, &r.ActorID, &amount, &currency, &txType, &r.CategoryID,
			&r.Date, &r.Description, &r.Vendor, &r.CreatedAt, &r.UpdatedAt, &r.CreatedBy, &r.UpdatedBy); err != nil {
			return nil, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		r.Money = models.NewMoney(dec, strings.TrimSpace(currency))
		r.Type = models.TxType(txType)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func insertCategories(categories []models.CategoryInstance) (string, []interface{}, error) {
	builder := psql.Insert("categories").
		Columns("id", "tenant_id", "template_id", "name", "name_key", "polarity", "icon",
			"is_deleted", "deleted_at", "deleted_by", "created_at")
	for _, c := range categories {
		builder = builder.Values(c.ID, c.TenantID, c.TemplateID, c.Name, nameKey(c), string(c.Polarity), c.Icon,
			c.Tombstone.Deleted, nullTime(c.Tombstone.DeletedAt), nullString(c.Tombstone.DeletedBy), c.CreatedAt)
	}
	return builder.Suffix("ON CONFLICT DO NOTHING").ToSql()
}

// nameKey is the folded name alone; polarity has its own column in the index.
func nameKey(c models.CategoryInstance) string {
	key := store.NameKey(c.Name, c.Polarity)
	return key[:strings.LastIndex(key, "|")]
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (models.CategoryInstance, error) {
	var c models.CategoryInstance
	var polarity string
	var deletedAt *time.Time
	var deletedBy *string
	if err := row.Scan(&c.ID, &c.TenantID, &c.TemplateID, &c.Name, &polarity, &c.Icon,
		&c.Tombstone.Deleted, &deletedAt, &deletedBy, &c.CreatedAt); err != nil {
		return models.CategoryInstance{}, err
	}
	c.Polarity = models.Polarity(polarity)
	if deletedAt != nil {
		c.Tombstone.DeletedAt = deletedAt.UTC()
	}
	if deletedBy != nil {
		c.Tombstone.DeletedBy = *deletedBy
	}
	return c, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return store.ErrDuplicate
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

var _ store.Store = (*Store)(nil)
