package coordinator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/spendlog/internal/catalog"
	"fjacquet/spendlog/internal/categorizer"
	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/pipelineerror"
	"fjacquet/spendlog/internal/store"
)

var today = time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC)

type fixture struct {
	coord   *Coordinator
	store   *store.MockStore
	catalog *catalog.Manager
	logger  *logging.MockLogger
}

func newFixture(t *testing.T, autoCreate bool, names ...string) fixture {
	t.Helper()
	s := store.NewMockStore(nil)
	logger := logging.NewMockLogger()
	now := func() time.Time { return today }
	mgr := catalog.NewManager(s, s, catalog.Options{Now: now, Logger: logger})
	for _, name := range names {
		_, err := mgr.CreateCustom(context.Background(), "t1", name, models.PolarityExpense, "")
		require.NoError(t, err)
	}

	table, err := categorizer.DefaultSynonymTable()
	require.NoError(t, err)
	coord := New(mgr, categorizer.NewResolver(table, nil), s, Options{
		AutoCreate: autoCreate,
		Icons:      table,
		Now:        now,
		Logger:     logger,
	})
	return fixture{coord: coord, store: s, catalog: mgr, logger: logger}
}

func candidate(amount, label string) models.TransactionCandidate {
	return models.TransactionCandidate{
		Type:          models.TxDebit,
		Money:         models.NewMoney(decimal.RequireFromString(amount), "INR"),
		Date:          time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		CategoryLabel: label,
		Description:   "test " + label,
	}
}

func TestSave_ResolvesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, "Food & Dining", "Transport", "House", "Other")

	tests := []struct {
		label    string
		category string
		method   models.MatchMethod
		fallback bool
		notice   string
	}{
		{"groceries", "Food & Dining", models.MatchSynonym, false, ""},
		{"transport", "Transport", models.MatchExact, false, ""},
		{"house repair", "House", models.MatchSynonym, false, ""},
		{"Pilates", "Other", models.MatchFallback, true, "Category 'Pilates' not found, saved under 'Other'"},
		{"Other", "Other", models.MatchExact, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			res, err := f.coord.Save(ctx, candidate("500", tt.label), "t1", "actor-1")
			require.NoError(t, err)
			require.NotNil(t, res.Category)
			assert.Equal(t, tt.category, res.Category.Name)
			assert.Equal(t, tt.method, res.Method)
			assert.Equal(t, tt.fallback, res.WasFallback)
			assert.Equal(t, tt.notice, res.Notice)
			assert.False(t, res.ProvisioningDefect)

			require.NotNil(t, res.Record.CategoryID)
			assert.Equal(t, res.Category.ID, *res.Record.CategoryID)
			assert.Equal(t, "t1", res.Record.TenantID)
			assert.Equal(t, "actor-1", res.Record.CreatedBy)
			assert.Equal(t, today, res.Record.CreatedAt)
		})
	}

	records, err := f.store.ListTransactions(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, records, len(tests))
}

func TestSave_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, "Other")

	tests := []struct {
		name   string
		mutate func(c *models.TransactionCandidate)
		field  string
	}{
		{"negative amount", func(c *models.TransactionCandidate) { c.Money.Amount = decimal.NewFromInt(-50) }, "amount"},
		{"zero amount", func(c *models.TransactionCandidate) { c.Money.Amount = decimal.Zero }, "amount"},
		{"too precise", func(c *models.TransactionCandidate) { c.Money.Amount = decimal.RequireFromString("1.005") }, "amount"},
		{"bad type", func(c *models.TransactionCandidate) { c.Type = "sideways" }, "type"},
		{"bad currency", func(c *models.TransactionCandidate) { c.Money.Currency = "rupees" }, "currency"},
		{"missing date", func(c *models.TransactionCandidate) { c.Date = time.Time{} }, "date"},
		{"future date", func(c *models.TransactionCandidate) { c.Date = today.AddDate(0, 0, 1) }, "date"},
		{"long description", func(c *models.TransactionCandidate) { c.Description = strings.Repeat("d", 501) }, "description"},
		{"long vendor", func(c *models.TransactionCandidate) { c.Vendor = strings.Repeat("v", 101) }, "vendor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate("50", "Pilates")
			tt.mutate(&c)
			res, err := f.coord.Save(ctx, c, "t1", "actor")
			assert.Nil(t, res)
			var verr *pipelineerror.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	records, err := f.store.ListTransactions(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, records, "validation failures write nothing")
}

func TestSave_LaterTimeTodayIsNotFuture(t *testing.T) {
	f := newFixture(t, false, "Other")
	c := candidate("10", "x")
	c.Date = time.Date(2024, 6, 15, 23, 0, 0, 0, time.UTC)
	_, err := f.coord.Save(context.Background(), c, "t1", "actor")
	assert.NoError(t, err)
}

func TestSave_ProvisioningDefect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, "Transport")

	res, err := f.coord.Save(ctx, candidate("75", "Pilates"), "t1", "actor")
	require.NoError(t, err)
	assert.True(t, res.ProvisioningDefect)
	assert.Nil(t, res.Category)
	assert.Nil(t, res.Record.CategoryID)
	assert.Equal(t, models.MatchNone, res.Method)
	assert.False(t, res.WasFallback)
	assert.Empty(t, res.Notice)

	errs := f.logger.GetEntriesByLevel("ERROR")
	require.Len(t, errs, 1)
	var perr *pipelineerror.CategoryProvisioningError
	assert.ErrorAs(t, errs[0].Error, &perr)
}

func TestSave_AutoCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, "Food & Dining", "Other")

	res, err := f.coord.Save(ctx, candidate("1200", "Pilates"), "t1", "actor")
	require.NoError(t, err)
	require.NotNil(t, res.Category)
	assert.Equal(t, "Pilates", res.Category.Name)
	assert.Equal(t, models.MatchCreated, res.Method)
	assert.False(t, res.WasFallback)
	assert.Equal(t, "Created new category 'Pilates'", res.Notice)

	again, err := f.coord.Save(ctx, candidate("1300", "pilates"), "t1", "actor")
	require.NoError(t, err)
	assert.Equal(t, res.Category.ID, again.Category.ID)
	assert.Equal(t, models.MatchExact, again.Method)

	blank, err := f.coord.Save(ctx, candidate("10", ""), "t1", "actor")
	require.NoError(t, err)
	assert.Equal(t, "Other", blank.Category.Name)
	assert.Equal(t, models.MatchFallback, blank.Method)
	assert.Empty(t, blank.Notice)
}

func TestSave_AutoCreateFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, "Other")

	res, err := f.coord.Save(ctx, candidate("10", strings.Repeat("long ", 20)), "t1", "actor")
	require.NoError(t, err)
	assert.Equal(t, "Other", res.Category.Name)
	assert.Equal(t, models.MatchFallback, res.Method)
	assert.True(t, f.logger.HasEntry("WARN", "Could not auto-create category, using fallback"))
}

func TestSave_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, "Other")
	f.store.InsertTransactionError = errors.New("connection refused")

	_, err := f.coord.Save(ctx, candidate("10", "Other"), "t1", "actor")
	assert.True(t, pipelineerror.IsPersistence(err))
	assert.True(t, f.logger.HasEntry("ERROR", "Failed to persist transaction"))
}

func TestSave_CatalogFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, "Other")
	f.store.ListCategoriesError = errors.New("timeout")

	_, err := f.coord.Save(ctx, candidate("10", "Other"), "t1", "actor")
	assert.True(t, pipelineerror.IsPersistence(err))
}
