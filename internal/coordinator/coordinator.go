// Package coordinator validates transaction candidates, resolves their
// category and persists them.
package coordinator

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"fjacquet/spendlog/internal/categorizer"
	"fjacquet/spendlog/internal/currencyutils"
	"fjacquet/spendlog/internal/dateutils"
	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/pipelineerror"
	"fjacquet/spendlog/internal/store"
	"fjacquet/spendlog/internal/textutils"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Catalog is the part of the catalog manager the coordinator needs.
type Catalog interface {
	ListActive(ctx context.Context, tenantID string) ([]models.CategoryInstance, error)
	CreateCustom(ctx context.Context, tenantID, name string, polarity models.Polarity, icon string) (models.CategoryInstance, error)
}

// CategoryResolver maps a free-text label onto a catalog entry.
type CategoryResolver interface {
	Resolve(label string, catalog []models.CategoryInstance) categorizer.Resolution
}

// IconPicker chooses an icon for an auto-created category.
type IconPicker interface {
	IconFor(label string) string
}

// Limits bound the free-text and numeric fields of a candidate.
type Limits struct {
	MaxDescriptionLength int
	MaxVendorLength      int
	MaxAmountScale       int32
}

// DefaultLimits match the column sizes of the relational schema.
var DefaultLimits = Limits{MaxDescriptionLength: 500, MaxVendorLength: 100, MaxAmountScale: 2}

// Options configures a Coordinator.
type Options struct {
	Limits        Limits
	AutoCreate    bool
	FallbackLabel string
	Icons         IconPicker
	Location      *time.Location
	Now           func() time.Time
	Logger        logging.Logger
}

// Result is a persisted candidate and how its category was chosen.
type Result struct {
	Record   models.TransactionRecord
	Category *models.CategoryInstance
	Method   models.MatchMethod
	// WasFallback is set when the stated label matched nothing and the
	// catch-all category was used.
	WasFallback bool
	// ProvisioningDefect is set when the tenant had no fallback category and
	// the record was stored without one.
	ProvisioningDefect bool
	Notice             string
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	catalog      Catalog
	resolver     CategoryResolver
	transactions store.TransactionRepository
	limits       Limits
	autoCreate   bool
	fallback     string
	icons        IconPicker
	loc          *time.Location
	now          func() time.Time
	logger       logging.Logger
}

// New creates a Coordinator.
func New(catalog Catalog, resolver CategoryResolver, transactions store.TransactionRepository, opts Options) *Coordinator {
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits
	}
	if opts.FallbackLabel == "" {
		opts.FallbackLabel = models.DefaultFallbackCategory
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Coordinator{
		catalog:      catalog,
		resolver:     resolver,
		transactions: transactions,
		limits:       opts.Limits,
		autoCreate:   opts.AutoCreate,
		fallback:     opts.FallbackLabel,
		icons:        opts.Icons,
		loc:          opts.Location,
		now:          opts.Now,
		logger:       opts.Logger,
	}
}

// Save validates c, resolves its category against the tenant's active
// catalog and persists it. It returns a *pipelineerror.ValidationError before
// anything is written, or a *pipelineerror.PersistenceError when the store
// fails.
func (co *Coordinator) Save(ctx context.Context, c models.TransactionCandidate, tenantID, actorID string) (*Result, error) {
	if err := co.Validate(c); err != nil {
		return nil, err
	}

	active, err := co.catalog.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	log := co.logger.WithFields(
		logging.F(logging.FieldTenantID, tenantID),
		logging.F(logging.FieldActorID, actorID),
		logging.F(logging.FieldLabel, c.CategoryLabel),
	)

	res := co.resolver.Resolve(c.CategoryLabel, active)
	if res.WasFallback() && co.autoCreate && co.isSpecificLabel(c.CategoryLabel) {
		res = co.createFromLabel(ctx, log, tenantID, c, res)
	}
	if res.Method.IsFuzzy() {
		log.Debug("Category label remapped",
			logging.F(logging.FieldCategory, res.Category.Name),
			logging.F(logging.FieldMatchMethod, string(res.Method)))
	}

	result := &Result{
		Category:    res.Category,
		Method:      res.Method,
		WasFallback: res.WasFallback(),
	}
	if res.Category == nil {
		result.ProvisioningDefect = true
		log.WithError(&pipelineerror.CategoryProvisioningError{TenantID: tenantID}).
			Error("Tenant has no fallback category; saving transaction without a category")
	}
	result.Notice = co.notice(c.CategoryLabel, res)

	now := co.now().UTC()
	record := models.TransactionRecord{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ActorID:     actorID,
		Money:       c.Money,
		Type:        c.Type,
		Date:        c.Date,
		Description: c.Description,
		Vendor:      c.Vendor,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   actorID,
		UpdatedBy:   actorID,
	}
	if res.Category != nil {
		id := res.Category.ID
		record.CategoryID = &id
	}

	if err := co.transactions.InsertTransaction(ctx, record); err != nil {
		log.WithError(err).Error("Failed to persist transaction",
			logging.F(logging.FieldOperation, "insert_transaction"))
		return nil, &pipelineerror.PersistenceError{Op: "insert_transaction", Err: err}
	}
	result.Record = record

	fields := []logging.Field{
		logging.F(logging.FieldMatchMethod, string(res.Method)),
		logging.F("transaction_id", record.ID.String()),
	}
	if res.Category != nil {
		fields = append(fields, logging.F(logging.FieldCategory, res.Category.Name))
	}
	log.WithFields(fields...).Info("Saved transaction")
	return result, nil
}

// Validate checks c against the storage constraints.
func (co *Coordinator) Validate(c models.TransactionCandidate) error {
	if !c.Type.Valid() {
		return &pipelineerror.ValidationError{Field: "type", Reason: "must be credit or debit"}
	}
	if !c.Money.IsPositive() {
		return &pipelineerror.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if !currencyutils.HasScaleAtMost(c.Money.Amount, co.limits.MaxAmountScale) {
		return &pipelineerror.ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("must have at most %d decimal places", co.limits.MaxAmountScale),
		}
	}
	if !currencyCode.MatchString(c.Money.Currency) {
		return &pipelineerror.ValidationError{Field: "currency", Reason: "must be a three-letter ISO code"}
	}
	if c.Date.IsZero() {
		return &pipelineerror.ValidationError{Field: "date", Reason: "is missing"}
	}
	if dateutils.IsAfterDay(c.Date.In(co.loc), co.now().In(co.loc)) {
		return &pipelineerror.ValidationError{Field: "date", Reason: "must not be in the future"}
	}
	if utf8.RuneCountInString(c.Description) > co.limits.MaxDescriptionLength {
		return &pipelineerror.ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("must be at most %d characters", co.limits.MaxDescriptionLength),
		}
	}
	if utf8.RuneCountInString(c.Vendor) > co.limits.MaxVendorLength {
		return &pipelineerror.ValidationError{
			Field:  "vendor",
			Reason: fmt.Sprintf("must be at most %d characters", co.limits.MaxVendorLength),
		}
	}
	return nil
}

// isSpecificLabel reports whether the label names something other than the
// catch-all category.
func (co *Coordinator) isSpecificLabel(label string) bool {
	return textutils.CollapseSpaces(label) != "" && !textutils.EqualFold(label, co.fallback)
}

func (co *Coordinator) createFromLabel(ctx context.Context, log logging.Logger, tenantID string, c models.TransactionCandidate, fallback categorizer.Resolution) categorizer.Resolution {
	icon := models.DefaultCategoryIcon
	if co.icons != nil {
		icon = co.icons.IconFor(c.CategoryLabel)
	}
	created, err := co.catalog.CreateCustom(ctx, tenantID, c.CategoryLabel, c.Type.Polarity(), icon)
	if err != nil {
		log.WithError(err).Warn("Could not auto-create category, using fallback")
		return fallback
	}
	return categorizer.Resolution{Category: &created, Method: models.MatchCreated}
}

func (co *Coordinator) notice(label string, res categorizer.Resolution) string {
	if res.Category == nil || !co.isSpecificLabel(label) {
		return ""
	}
	label = textutils.CollapseSpaces(label)
	switch res.Method {
	case models.MatchFallback:
		return fmt.Sprintf("Category '%s' not found, saved under '%s'", label, res.Category.Name)
	case models.MatchCreated:
		return fmt.Sprintf("Created new category '%s'", res.Category.Name)
	}
	return ""
}
