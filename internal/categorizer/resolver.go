package categorizer

import (
	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/textutils"
)

// Resolution is the result of resolving a label against a catalog. Category
// is nil only when the catalog has no fallback category.
type Resolution struct {
	Category *models.CategoryInstance
	Method   models.MatchMethod
}

// WasFallback reports whether the label could not be matched and the
// catch-all category was used.
func (r Resolution) WasFallback() bool {
	return r.Method == models.MatchFallback
}

// Resolver maps free-text category labels onto catalog entries. It holds no
// mutable state; identical inputs always produce identical outputs.
type Resolver struct {
	strategies []ResolutionStrategy
}

// NewResolver builds the standard tier order: exact, synonym, substring, fallback.
// fallbackNames defaults to DefaultFallbackNames.
func NewResolver(table *SynonymTable, fallbackNames []string) *Resolver {
	if len(fallbackNames) == 0 {
		fallbackNames = DefaultFallbackNames
	}
	return NewResolverWithStrategies(
		ExactStrategy{},
		SynonymStrategy{Table: table},
		SubstringStrategy{},
		FallbackStrategy{Names: fallbackNames},
	)
}

// NewResolverWithStrategies builds a resolver trying strategies in the given order.
func NewResolverWithStrategies(strategies ...ResolutionStrategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve maps label onto one of catalog's active categories. The catalog
// order is the tie-break order within a tier. Tombstoned entries are ignored.
func (r *Resolver) Resolve(label string, catalog []models.CategoryInstance) Resolution {
	active := make([]models.CategoryInstance, 0, len(catalog))
	for _, c := range catalog {
		if c.IsActive() {
			active = append(active, c)
		}
	}

	folded := textutils.Fold(label)
	for _, s := range r.strategies {
		if i, ok := s.Resolve(folded, active); ok {
			match := active[i]
			return Resolution{Category: &match, Method: s.Method()}
		}
	}
	return Resolution{Method: models.MatchNone}
}
