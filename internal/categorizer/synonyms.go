package categorizer

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/textutils"
)

//go:embed default_synonyms.yaml
var defaultSynonyms []byte

// SynonymEntry maps one keyword to category-name fragments, in preference order.
type SynonymEntry struct {
	Keyword string   `yaml:"keyword"`
	Targets []string `yaml:"targets"`
	Icon    string   `yaml:"icon"`
}

// SynonymTable is an ordered keyword table. Entries are evaluated in the
// order they appear; it is read-only once loaded.
type SynonymTable struct {
	Version int            `yaml:"version"`
	Entries []SynonymEntry `yaml:"entries"`
}

// DefaultSynonymTable returns the built-in table.
func DefaultSynonymTable() (*SynonymTable, error) {
	return ParseSynonymTable(defaultSynonyms)
}

// LoadSynonymTable reads a table from a YAML file. An empty path returns the
// built-in table.
func LoadSynonymTable(path string) (*SynonymTable, error) {
	if path == "" {
		return DefaultSynonymTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading synonyms file %s: %w", path, err)
	}
	return ParseSynonymTable(data)
}

// ParseSynonymTable decodes and validates a YAML table. Keywords and targets
// are folded so matching is case-insensitive in any script.
func ParseSynonymTable(data []byte) (*SynonymTable, error) {
	var table SynonymTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("error parsing synonyms YAML: %w", err)
	}
	if table.Version < 1 {
		return nil, fmt.Errorf("synonyms table: missing or invalid version")
	}

	seen := make(map[string]bool, len(table.Entries))
	for i := range table.Entries {
		e := &table.Entries[i]
		e.Keyword = textutils.Fold(e.Keyword)
		if e.Keyword == "" {
			return nil, fmt.Errorf("synonyms table: entry %d has an empty keyword", i)
		}
		if seen[e.Keyword] {
			return nil, fmt.Errorf("synonyms table: duplicate keyword %q", e.Keyword)
		}
		seen[e.Keyword] = true
		if len(e.Targets) == 0 {
			return nil, fmt.Errorf("synonyms table: keyword %q has no targets", e.Keyword)
		}
		for j, target := range e.Targets {
			e.Targets[j] = textutils.Fold(target)
			if e.Targets[j] == "" {
				return nil, fmt.Errorf("synonyms table: keyword %q has an empty target", e.Keyword)
			}
		}
	}
	return &table, nil
}

// Matching returns the entries whose keyword occurs in the folded label, in
// table order.
func (t *SynonymTable) Matching(foldedLabel string) []SynonymEntry {
	if t == nil || foldedLabel == "" {
		return nil
	}
	var out []SynonymEntry
	for _, e := range t.Entries {
		if containsFolded(foldedLabel, e.Keyword) {
			out = append(out, e)
		}
	}
	return out
}

// IconFor picks an icon for a new category named label: the icon of the first
// keyword found in it, or the default icon.
func (t *SynonymTable) IconFor(label string) string {
	for _, e := range t.Matching(textutils.Fold(label)) {
		if e.Icon != "" {
			return e.Icon
		}
	}
	return models.DefaultCategoryIcon
}
