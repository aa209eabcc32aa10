package categorizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/textutils"
)

// ResolutionStrategy is one tier of category resolution. Each strategy
// implements a specific matching approach (exact, synonym, substring, fallback).
type ResolutionStrategy interface {
	// Resolve looks for a catalog entry matching the folded label. The
	// catalog is in resolution order and contains only active categories.
	// Returns the index of the match and whether one was found.
	Resolve(foldedLabel string, catalog []models.CategoryInstance) (int, bool)

	// Method is recorded on the resolution when this strategy wins.
	Method() models.MatchMethod
}

// ExactStrategy matches a catalog name equal to the label, ignoring case.
type ExactStrategy struct{}

func (ExactStrategy) Method() models.MatchMethod { return models.MatchExact }

func (ExactStrategy) Resolve(foldedLabel string, catalog []models.CategoryInstance) (int, bool) {
	if foldedLabel == "" {
		return 0, false
	}
	for i, c := range catalog {
		if textutils.Fold(c.Name) == foldedLabel {
			return i, true
		}
	}
	return 0, false
}

// SynonymStrategy maps domain vocabulary in the label onto catalog names via
// the synonym table. Keywords are tried in table order, then each keyword's
// targets in order, then the catalog in order.
type SynonymStrategy struct {
	Table *SynonymTable
}

func (SynonymStrategy) Method() models.MatchMethod { return models.MatchSynonym }

func (s SynonymStrategy) Resolve(foldedLabel string, catalog []models.CategoryInstance) (int, bool) {
	names := foldedNames(catalog)
	for _, entry := range s.Table.Matching(foldedLabel) {
		for _, target := range entry.Targets {
			for i, name := range names {
				if strings.Contains(name, target) {
					return i, true
				}
			}
		}
	}
	return 0, false
}

// SubstringStrategy matches when either the label contains a catalog name or
// a catalog name contains the label.
type SubstringStrategy struct{}

func (SubstringStrategy) Method() models.MatchMethod { return models.MatchSubstring }

func (SubstringStrategy) Resolve(foldedLabel string, catalog []models.CategoryInstance) (int, bool) {
	if foldedLabel == "" {
		return 0, false
	}
	for i, name := range foldedNames(catalog) {
		if name == "" {
			continue
		}
		if strings.Contains(name, foldedLabel) || strings.Contains(foldedLabel, name) {
			return i, true
		}
	}
	return 0, false
}

// FallbackStrategy picks the tenant's catch-all expense category. Candidate
// names are tried in order so "Other" wins over "Miscellaneous" when both exist.
type FallbackStrategy struct {
	Names []string
}

// DefaultFallbackNames are the catch-all category names recognized out of the box.
var DefaultFallbackNames = []string{"Other", "Others", "Miscellaneous", "Misc"}

func (FallbackStrategy) Method() models.MatchMethod { return models.MatchFallback }

func (s FallbackStrategy) Resolve(_ string, catalog []models.CategoryInstance) (int, bool) {
	i := FindFallback(catalog, s.Names)
	return i, i >= 0
}

// FindFallback returns the index of the first expense category named after
// one of names, or -1.
func FindFallback(catalog []models.CategoryInstance, names []string) int {
	for _, want := range names {
		folded := textutils.Fold(want)
		for i, c := range catalog {
			if c.Polarity == models.PolarityExpense && c.IsActive() && textutils.Fold(c.Name) == folded {
				return i
			}
		}
	}
	return -1
}

func foldedNames(catalog []models.CategoryInstance) []string {
	names := make([]string, len(catalog))
	for i, c := range catalog {
		names[i] = textutils.Fold(c.Name)
	}
	return names
}

// containsFolded reports whether keyword occurs in s at the start of a word.
func containsFolded(s, keyword string) bool {
	for offset := 0; ; {
		idx := strings.Index(s[offset:], keyword)
		if idx < 0 {
			return false
		}
		pos := offset + idx
		if pos == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(s[:pos])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
		offset = pos + len(keyword)
	}
}
