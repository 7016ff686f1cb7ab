package storage

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/valter-silva-au/sitecheck/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed builtin_templates.yaml
var builtinTemplatesYAML []byte

// TemplateFile is the on-disk shape of a template catalog file. A file may
// hold several templates.
type TemplateFile struct {
	Version   string                     `yaml:"version"`
	Templates []models.ChecklistTemplate `yaml:"templates"`
}

// TemplateCatalog is a read-only set of checklist templates.
type TemplateCatalog interface {
	LookupTemplate(id string) (*models.ChecklistTemplate, bool)
	ListTemplates() []models.ChecklistTemplate
	Load() error
}

type fileTemplateCatalog struct {
	dir       string
	mu        sync.RWMutex
	templates map[string]models.ChecklistTemplate
}

// NewTemplateCatalog creates a catalog that serves the built-in templates
// overlaid with every *.yaml / *.yml file found in dir. A template loaded
// from dir replaces a built-in one with the same ID. dir may be empty.
func NewTemplateCatalog(dir string) TemplateCatalog {
	return &fileTemplateCatalog{
		dir:       dir,
		templates: make(map[string]models.ChecklistTemplate),
	}
}

// NewStaticTemplateCatalog creates a catalog holding exactly the given
// templates. It is mainly useful for fixtures.
func NewStaticTemplateCatalog(templates ...models.ChecklistTemplate) (TemplateCatalog, error) {
	c := &fileTemplateCatalog{templates: make(map[string]models.ChecklistTemplate)}
	for _, t := range templates {
		if err := validateTemplate(t); err != nil {
			return nil, err
		}
		c.templates[t.ID] = t.Clone()
	}
	return c, nil
}

// Load (re)reads the built-in catalog and the template directory.
func (c *fileTemplateCatalog) Load() error {
	templates := make(map[string]models.ChecklistTemplate)

	builtin, err := parseTemplateFile(builtinTemplatesYAML, "builtin")
	if err != nil {
		return err
	}
	for _, t := range builtin {
		templates[t.ID] = t
	}

	if c.dir != "" {
		entries, err := os.ReadDir(c.dir)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reading template directory %s: %w", c.dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			path := filepath.Join(c.dir, e.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading template file %s: %w", path, err)
			}
			parsed, err := parseTemplateFile(data, path)
			if err != nil {
				return err
			}
			for _, t := range parsed {
				templates[t.ID] = t
			}
		}
	}

	c.mu.Lock()
	c.templates = templates
	c.mu.Unlock()
	return nil
}

// LookupTemplate returns a copy of the template with the given ID.
func (c *fileTemplateCatalog) LookupTemplate(id string) (*models.ChecklistTemplate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.templates[id]
	if !ok {
		return nil, false
	}
	out := t.Clone()
	return &out, true
}

// ListTemplates returns copies of all templates sorted by category, then ID.
func (c *fileTemplateCatalog) ListTemplates() []models.ChecklistTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.ChecklistTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func parseTemplateFile(data []byte, source string) ([]models.ChecklistTemplate, error) {
	var tf TemplateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing template file %s: %w", source, err)
	}
	for _, t := range tf.Templates {
		if err := validateTemplate(t); err != nil {
			return nil, fmt.Errorf("template file %s: %w", source, err)
		}
	}
	return tf.Templates, nil
}

func validateTemplate(t models.ChecklistTemplate) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("template %q has no id", t.Name)
	}
	seen := make(map[string]bool, len(t.Items))
	for k, item := range t.Items {
		if item.ID == "" {
			return fmt.Errorf("template %s: item %d has no id", t.ID, k)
		}
		if seen[item.ID] {
			return fmt.Errorf("template %s: duplicate item id %s", t.ID, item.ID)
		}
		seen[item.ID] = true
		if item.Status != "" && !item.Status.Valid() {
			return fmt.Errorf("template %s: item %s has invalid status %q", t.ID, item.ID, item.Status)
		}
	}
	return nil
}
