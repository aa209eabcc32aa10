package store

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/textutils"
)

//go:embed default_templates.yaml
var defaultTemplates []byte

// templateNamespace seeds the name-based template ids, so the same template
// keeps its id across restarts and store drivers.
var templateNamespace = uuid.MustParse("6f1c2a7e-3b9d-5c41-9e8a-2d7b4f0c1a55")

type templateFile struct {
	Version   int                       `yaml:"version"`
	Templates []models.CategoryTemplate `yaml:"templates"`
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".config", "spendlog", filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}

// DefaultTemplates returns the built-in category templates.
func DefaultTemplates() ([]models.CategoryTemplate, error) {
	return ParseTemplates(defaultTemplates)
}

// LoadTemplates reads templates from a YAML file found via FindConfigFile.
// An empty filename returns the built-in templates.
func LoadTemplates(filename string) ([]models.CategoryTemplate, error) {
	if filename == "" {
		return DefaultTemplates()
	}
	path, err := FindConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("templates file %s not found: %w", filename, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading templates file: %w", err)
	}
	return ParseTemplates(data)
}

// ParseTemplates decodes and validates a templates document. Missing display
// orders follow the document order and ids are derived from name and polarity.
func ParseTemplates(data []byte) ([]models.CategoryTemplate, error) {
	var doc templateFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing templates YAML: %w", err)
	}
	if doc.Version < 1 {
		return nil, fmt.Errorf("templates: missing or invalid version")
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("templates: no templates defined")
	}

	seen := make(map[string]bool, len(doc.Templates))
	for i := range doc.Templates {
		t := &doc.Templates[i]
		t.Name = textutils.CollapseSpaces(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("templates: entry %d has an empty name", i)
		}
		if !t.Polarity.Valid() {
			return nil, fmt.Errorf("templates: %q has invalid polarity %q", t.Name, t.Polarity)
		}
		key := NameKey(t.Name, t.Polarity)
		if seen[key] {
			return nil, fmt.Errorf("templates: duplicate template %q (%s)", t.Name, t.Polarity)
		}
		seen[key] = true
		if t.DisplayOrder == 0 {
			t.DisplayOrder = i + 1
		}
		if t.Icon == "" {
			t.Icon = models.DefaultCategoryIcon
		}
		t.ID = uuid.NewSHA1(templateNamespace, []byte(key))
	}
	return doc.Templates, nil
}

// NameKey is the uniqueness key of a category name within a tenant.
func NameKey(name string, polarity models.Polarity) string {
	return textutils.Fold(name) + "|" + string(polarity)
}
