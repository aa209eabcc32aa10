package categorizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/spendlog/internal/models"
)

func TestDefaultSynonymTable(t *testing.T) {
	table, err := DefaultSynonymTable()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, table.Version, 1)
	require.NotEmpty(t, table.Entries)

	indexOf := func(keyword string) int {
		for i, e := range table.Entries {
			if e.Keyword == keyword {
				return i
			}
		}
		return -1
	}
	assert.GreaterOrEqual(t, indexOf("house"), 0)
	assert.Less(t, indexOf("house"), indexOf("bills"), "house must precede bills")
}

func TestDefaultSynonymTable_NoMatchForPilates(t *testing.T) {
	table, err := DefaultSynonymTable()
	require.NoError(t, err)
	assert.Empty(t, table.Matching("pilates"))
}

func TestParseSynonymTable_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{"missing version", "entries: []", "version"},
		{"duplicate keyword", "version: 1\nentries:\n  - {keyword: Fuel, targets: [transport]}\n  - {keyword: fuel, targets: [travel]}", "duplicate"},
		{"empty keyword", "version: 1\nentries:\n  - {keyword: ' ', targets: [transport]}", "empty keyword"},
		{"no targets", "version: 1\nentries:\n  - {keyword: fuel}", "no targets"},
		{"bad yaml", "version: [", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSynonymTable([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestParseSynonymTable_FoldsAndKeepsOrder(t *testing.T) {
	table, err := ParseSynonymTable([]byte("version: 2\nentries:\n  - {keyword: ZEBRA, targets: [Zoo]}\n  - {keyword: apple, targets: [Food, Fruit]}\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Version)
	assert.Equal(t, "zebra", table.Entries[0].Keyword)
	assert.Equal(t, []string{"zoo"}, table.Entries[0].Targets)
	assert.Equal(t, []string{"food", "fruit"}, table.Entries[1].Targets)
}

func TestLoadSynonymTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nentries:\n  - {keyword: yoga, targets: [fitness], icon: \"🧘\"}\n"), 0o644))

	table, err := LoadSynonymTable(path)
	require.NoError(t, err)
	require.Len(t, table.Entries, 1)
	assert.Equal(t, "🧘", table.IconFor("Yoga classes"))

	_, err = LoadSynonymTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := LoadSynonymTable("")
	require.NoError(t, err)
	assert.NotEmpty(t, def.Entries)
}

func TestIconFor(t *testing.T) {
	table, err := DefaultSynonymTable()
	require.NoError(t, err)
	assert.Equal(t, "⛽", table.IconFor("Fuel"))
	assert.Equal(t, models.DefaultCategoryIcon, table.IconFor("Pilates"))

	var nilTable *SynonymTable
	assert.Equal(t, models.DefaultCategoryIcon, nilTable.IconFor("Fuel"))
}
