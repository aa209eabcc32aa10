package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldNamesAreDistinct(t *testing.T) {
	names := []string{
		FieldTenantID, FieldActorID, FieldBackend, FieldOperation, FieldInputKind,
		FieldCategory, FieldCategoryID, FieldLabel, FieldMatchMethod, FieldOutcome,
		FieldCandidateIndex, FieldReason, FieldDuration, FieldCount,
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		assert.NotEmpty(t, n)
		assert.False(t, seen[n], "duplicate field name %q", n)
		seen[n] = true
	}
}
