package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// InitResult holds a summary of what was created vs. skipped.
type InitResult struct {
	Created []string
	Skipped []string
}

// WorkspaceInitializer lays out a sitecheck data directory.
type WorkspaceInitializer interface {
	Init(basePath string, cfg *models.GlobalConfig) (*InitResult, error)
}

type workspaceInitializer struct{}

// NewWorkspaceInitializer creates a new WorkspaceInitializer.
func NewWorkspaceInitializer() WorkspaceInitializer {
	return &workspaceInitializer{}
}

var configTemplate = template.Must(template.New(".sitecheck.yaml").Parse(`# sitecheck configuration. Environment variables prefixed with SITECHECK_
# override these values, e.g. SITECHECK_LOG_LEVEL=debug.
log:
  level: {{.Log.Level}}       # trace, debug, info, warn, error, disabled
  format: {{.Log.Format}}   # console or json
events:
  enabled: {{.EventsEnabled}}
ids:
  item_prefix: {{.ItemIDPrefix}}
  checklist_prefix: {{.ListIDPrefix}}
templates:
  dir: {{.TemplatesDir}}
validation:
  # Treat completed items that still need verification as blocking.
  strict_verification: {{.Validation.StrictVerification}}
`))

const templatesReadme = `# Checklist templates

Every *.yaml or *.yml file in this directory is loaded next to the built-in
templates. A file template with the same id replaces the built-in one.

    version: "1.0"
    templates:
      - id: formwork-strip
        name: Formwork Strip Approval
        category: structural
        type: inspection
        version: "1.0"
        tags: [concrete]
        items:
          - id: fs-strength
            title: Cylinder strength results meet stripping criteria
            mandatory: true
            critical: true
            requires_verification: true
          - id: fs-backprop
            title: Back-propping plan in place
            mandatory: true

Item ids and statuses in templates are replaced when a checklist is created.
`

const workspaceGitignore = `.sitecheck_events.jsonl
.checklists.lock
.checklists-*.yaml
`

// Init creates the data directory, .sitecheck.yaml, an empty checklists.yaml
// and the templates directory. Existing files are left untouched. A nil cfg
// writes the defaults.
func (wi *workspaceInitializer) Init(basePath string, cfg *models.GlobalConfig) (*InitResult, error) {
	if cfg == nil {
		cfg = DefaultGlobalConfig()
	}
	result := &InitResult{}

	templatesDir := cfg.TemplatesDir
	if !filepath.IsAbs(templatesDir) {
		templatesDir = filepath.Join(basePath, templatesDir)
	}
	for _, dir := range []string{basePath, templatesDir} {
		created, err := ensureDir(dir)
		if err != nil {
			return nil, fmt.Errorf("initializing workspace: creating directory %s: %w", dir, err)
		}
		if created {
			result.Created = append(result.Created, dir)
		} else {
			result.Skipped = append(result.Skipped, dir)
		}
	}

	files := []struct {
		path    string
		content func() ([]byte, error)
	}{
		{filepath.Join(basePath, ".sitecheck.yaml"), func() ([]byte, error) {
			var buf bytes.Buffer
			if err := configTemplate.Execute(&buf, cfg); err != nil {
				return nil, fmt.Errorf("rendering config: %w", err)
			}
			return buf.Bytes(), nil
		}},
		{filepath.Join(basePath, "checklists.yaml"), staticContent("version: \"1.0\"\nchecklists: {}\n")},
		{filepath.Join(basePath, ".gitignore"), staticContent(workspaceGitignore)},
		{filepath.Join(templatesDir, "README.md"), staticContent(templatesReadme)},
	}
	for _, f := range files {
		if err := writeFileIfNotExists(f.path, f.content, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func staticContent(s string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(s), nil }
}

// ensureDir creates a directory if it does not exist. Returns true if created.
func ensureDir(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileIfNotExists writes content from contentFn if the file does not exist.
// It records created/skipped in the result.
func writeFileIfNotExists(path string, contentFn func() ([]byte, error), result *InitResult) error {
	if _, err := os.Stat(path); err == nil {
		result.Skipped = append(result.Skipped, path)
		return nil
	}
	content, err := contentFn()
	if err != nil {
		return fmt.Errorf("initializing workspace: generating content for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("initializing workspace: writing %s: %w", path, err)
	}
	result.Created = append(result.Created, path)
	return nil
}
