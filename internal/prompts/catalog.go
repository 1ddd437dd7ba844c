// Package prompts provides the read-only catalog of prompt templates.
package prompts

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v2"

	"upload-ai-service/internal/models"
)

//go:embed default_prompts.yaml
var defaultPrompts []byte

// Catalog is an ordered, immutable list of prompt templates.
type Catalog struct {
	prompts []models.PromptTemplate
	byID    map[string]int
}

// Load builds a catalog from the YAML file at path, or from the built-in
// templates when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultPrompts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse builds a catalog from a YAML sequence of {id, title, template}.
func Parse(data []byte) (*Catalog, error) {
	var list []models.PromptTemplate
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	return New(list)
}

// New validates the templates and returns a catalog preserving their order.
func New(list []models.PromptTemplate) (*Catalog, error) {
	c := &Catalog{
		prompts: make([]models.PromptTemplate, 0, len(list)),
		byID:    make(map[string]int, len(list)),
	}
	for _, p := range list {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate prompt id %q", models.ErrValidation, p.ID)
		}
		c.byID[p.ID] = len(c.prompts)
		c.prompts = append(c.prompts, p)
	}
	return c, nil
}

// List returns the templates in definition order. The slice is a copy.
func (c *Catalog) List() []models.PromptTemplate {
	out := make([]models.PromptTemplate, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// Get returns the template with the given id or models.ErrNotFound.
func (c *Catalog) Get(id string) (models.PromptTemplate, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.PromptTemplate{}, fmt.Errorf("prompt %q: %w", id, models.ErrNotFound)
	}
	return c.prompts[i], nil
}
