package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// Row is the CSV shape of one category.
type Row struct {
	ID       string `csv:"id"`
	Name     string `csv:"name"`
	Polarity string `csv:"polarity"`
	Icon     string `csv:"icon"`
	Source   string `csv:"source"`
}

// ExportCSV writes the tenant's active categories to w, in catalog order.
func (m *Manager) ExportCSV(ctx context.Context, tenantID string, w io.Writer) error {
	active, err := m.ListActive(ctx, tenantID)
	if err != nil {
		return err
	}
	rows := make([]*Row, 0, len(active))
	for _, c := range active {
		source := "template"
		if c.IsCustom() {
			source = "custom"
		}
		rows = append(rows, &Row{
			ID:       c.ID.String(),
			Name:     c.Name,
			Polarity: string(c.Polarity),
			Icon:     c.Icon,
			Source:   source,
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("error writing categories CSV: %w", err)
	}
	return nil
}
