package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CategoryTemplate is a system-wide category copied into every tenant at onboarding.
// Tenants never mutate templates.
type CategoryTemplate struct {
	ID           uuid.UUID `yaml:"-"`
	Name         string    `yaml:"name"`
	Polarity     Polarity  `yaml:"polarity"`
	Icon         string    `yaml:"icon"`
	DisplayOrder int       `yaml:"display_order"`
}

// Tombstone marks a category as deleted without removing the row, so historical
// transactions keep a valid reference.
type Tombstone struct {
	Deleted   bool
	DeletedAt time.Time
	DeletedBy string
}

// NewTombstone returns a tombstone set at the given time by the given actor.
func NewTombstone(at time.Time, actorID string) Tombstone {
	return Tombstone{Deleted: true, DeletedAt: at.UTC(), DeletedBy: actorID}
}

// CategoryInstance is a tenant-scoped category. TemplateID is nil for categories
// the tenant defined themselves.
type CategoryInstance struct {
	ID         uuid.UUID
	TenantID   string
	TemplateID *uuid.UUID
	Name       string
	Polarity   Polarity
	Icon       string
	Tombstone  Tombstone
	CreatedAt  time.Time
}

// IsActive reports whether the category has not been soft-deleted.
func (c CategoryInstance) IsActive() bool {
	return !c.Tombstone.Deleted
}

// IsCustom reports whether the tenant created this category (no template link).
func (c CategoryInstance) IsCustom() bool {
	return c.TemplateID == nil
}

// NewCategoryFromTemplate builds the tenant copy of a template.
func NewCategoryFromTemplate(tenantID string, t CategoryTemplate, now time.Time) CategoryInstance {
	templateID := t.ID
	return CategoryInstance{
		ID:         uuid.New(),
		TenantID:   tenantID,
		TemplateID: &templateID,
		Name:       t.Name,
		Polarity:   t.Polarity,
		Icon:       t.Icon,
		CreatedAt:  now.UTC(),
	}
}

// CategoryNames returns the display names of the given categories, in order.
func CategoryNames(categories []CategoryInstance) []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names
}

func normalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
