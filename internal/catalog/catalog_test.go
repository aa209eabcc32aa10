package catalog

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/pipelineerror"
	"fjacquet/spendlog/internal/store"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, *store.MockStore, *logging.MockLogger) {
	t.Helper()
	templates, err := store.DefaultTemplates()
	require.NoError(t, err)
	s := store.NewMockStore(templates)
	logger := logging.NewMockLogger()
	m := NewManager(s, s, Options{
		Now:    func() time.Time { return fixedNow },
		Logger: logger,
	})
	return m, s, logger
}

func TestInitializeForNewTenant(t *testing.T) {
	ctx := context.Background()
	m, _, logger := newTestManager(t)

	n, err := m.InitializeForNewTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 14, n)
	assert.True(t, logger.HasEntry("INFO", "Initialized tenant categories from templates"))

	n, err = m.InitializeForNewTenant(ctx, "t1")
	require.NoError(t, err)
	assert.Zero(t, n)

	active, err := m.ListActive(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, active, 14)

	ok, err := m.HasFallback(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)

	other, err := m.ListActive(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestListActive_SortedByFoldedName(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	for _, name := range []string{"zoo", "Apple", "banana", "Яблоко"} {
		_, err := m.CreateCustom(ctx, "t1", name, models.PolarityExpense, "")
		require.NoError(t, err)
	}
	active, err := m.ListActive(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "banana", "zoo", "Яблоко"}, models.CategoryNames(active))

	again, err := m.ListActive(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, active, again)
}

func TestCreateCustom_Idempotent(t *testing.T) {
	ctx := context.Background()
	m, s, _ := newTestManager(t)

	first, err := m.CreateCustom(ctx, "t1", "Pilates", models.PolarityExpense, "🧘")
	require.NoError(t, err)
	assert.True(t, first.IsCustom())
	assert.Equal(t, "🧘", first.Icon)
	assert.Equal(t, fixedNow, first.CreatedAt)

	second, err := m.CreateCustom(ctx, "t1", "  PILATES ", models.PolarityExpense, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := s.ListCategories(ctx, "t1", true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	income, err := m.CreateCustom(ctx, "t1", "Pilates", models.PolarityIncome, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, income.ID)
	assert.Equal(t, models.DefaultCategoryIcon, income.Icon)
}

func TestCreateCustom_ConcurrentCallsYieldOneRow(t *testing.T) {
	ctx := context.Background()
	m, s, _ := newTestManager(t)

	const workers = 16
	ids := make([]uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := m.CreateCustom(ctx, "t1", "Yoga", models.PolarityExpense, "")
			assert.NoError(t, err)
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	all, err := s.ListCategories(ctx, "t1", true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateCustom_Validation(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	tests := []struct {
		name     string
		catName  string
		polarity models.Polarity
		field    string
	}{
		{"empty name", "   ", models.PolarityExpense, "name"},
		{"name too long", strings.Repeat("x", 51), models.PolarityExpense, "name"},
		{"bad polarity", "Gym", models.Polarity("sideways"), "polarity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateCustom(ctx, "t1", tt.catName, tt.polarity, "")
			var verr *pipelineerror.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := m.CreateCustom(ctx, "t1", strings.Repeat("é", 50), models.PolarityExpense, "")
	assert.NoError(t, err, "limit counts characters, not bytes")
}

func TestCreateCustom_StoreFailure(t *testing.T) {
	ctx := context.Background()
	m, s, _ := newTestManager(t)
	s.InsertCategoryError = errors.New("disk full")

	_, err := m.CreateCustom(ctx, "t1", "Gym", models.PolarityExpense, "")
	assert.True(t, pipelineerror.IsPersistence(err))
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	m, s, _ := newTestManager(t)
	_, err := m.InitializeForNewTenant(ctx, "t1")
	require.NoError(t, err)

	gym, err := m.CreateCustom(ctx, "t1", "Gym", models.PolarityExpense, "")
	require.NoError(t, err)

	t.Run("not owner", func(t *testing.T) {
		err := m.SoftDelete(ctx, gym.ID, "t2", "intruder")
		assert.True(t, pipelineerror.IsNotOwner(err))
	})

	t.Run("not found", func(t *testing.T) {
		err := m.SoftDelete(ctx, uuid.New(), "t1", "actor")
		assert.True(t, pipelineerror.IsNotFound(err))
	})

	t.Run("tombstones and hides", func(t *testing.T) {
		require.NoError(t, m.SoftDelete(ctx, gym.ID, "t1", "actor-1"))
		got, err := s.GetCategory(ctx, gym.ID)
		require.NoError(t, err)
		assert.Equal(t, models.NewTombstone(fixedNow, "actor-1"), got.Tombstone)

		active, err := m.ListActive(ctx, "t1")
		require.NoError(t, err)
		assert.NotContains(t, models.CategoryNames(active), "Gym")
	})

	t.Run("already deleted is a no-op", func(t *testing.T) {
		require.NoError(t, m.SoftDelete(ctx, gym.ID, "t1", "actor-2"))
		got, err := s.GetCategory(ctx, gym.ID)
		require.NoError(t, err)
		assert.Equal(t, "actor-1", got.Tombstone.DeletedBy)
	})

	t.Run("last fallback is protected", func(t *testing.T) {
		active, err := m.ListActive(ctx, "t1")
		require.NoError(t, err)
		var other models.CategoryInstance
		for _, c := range active {
			if c.Name == "Other" {
				other = c
			}
		}
		err = m.SoftDelete(ctx, other.ID, "t1", "actor")
		assert.True(t, pipelineerror.IsValidation(err))

		misc, err := m.CreateCustom(ctx, "t1", "Misc", models.PolarityExpense, "")
		require.NoError(t, err)
		require.NoError(t, m.SoftDelete(ctx, other.ID, "t1", "actor"))
		assert.True(t, pipelineerror.IsValidation(m.SoftDelete(ctx, misc.ID, "t1", "actor")))
	})

	t.Run("transactions keep their category", func(t *testing.T) {
		record := models.TransactionRecord{ID: uuid.New(), TenantID: "t1", CategoryID: &gym.ID}
		require.NoError(t, s.InsertTransaction(ctx, record))
		list, err := s.ListTransactions(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, gym.ID, *list[0].CategoryID)
	})
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	_, err := m.InitializeForNewTenant(ctx, "t1")
	require.NoError(t, err)
	_, err = m.CreateCustom(ctx, "t1", "Yoga", models.PolarityExpense, "🧘")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.ExportCSV(ctx, "t1", &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "id,name,polarity,icon,source\n"))

	var rows []*Row
	require.NoError(t, gocsv.UnmarshalBytes(buf.Bytes(), &rows))
	require.Len(t, rows, 15)
	last := rows[len(rows)-1]
	assert.Equal(t, "Yoga", last.Name)
	assert.Equal(t, "custom", last.Source)
	assert.Equal(t, "template", rows[0].Source)
}
