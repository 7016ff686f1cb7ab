// Package internal provides the App struct that wires all components of
// sitecheck together and initializes the CLI layer.
package internal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valter-silva-au/sitecheck/internal/cli"
	"github.com/valter-silva-au/sitecheck/internal/core"
	"github.com/valter-silva-au/sitecheck/internal/logging"
	"github.com/valter-silva-au/sitecheck/internal/observability"
	"github.com/valter-silva-au/sitecheck/internal/storage"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// App holds all service dependencies for sitecheck.
type App struct {
	BasePath string
	Config   *models.GlobalConfig

	ConfigMgr core.ConfigurationManager

	// Storage layer
	Checklists storage.ChecklistStore
	Templates  storage.TemplateCatalog

	// Core services
	IDGen   core.IDGenerator
	Manager core.ChecklistManager

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	AlertEngine observability.AlertEngine
}

// NewApp creates and wires all components. basePath is the data directory
// holding .sitecheck.yaml, checklists.yaml, and the templates directory.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	appLog := logging.Component("app")

	// --- Storage layer ---
	app.Checklists = storage.NewChecklistStore(basePath)
	templatesDir := cfg.TemplatesDir
	if !filepath.IsAbs(templatesDir) {
		templatesDir = filepath.Join(basePath, templatesDir)
	}
	app.Templates = storage.NewTemplateCatalog(templatesDir)
	if err := app.Templates.Load(); err != nil {
		return nil, err
	}

	// --- Observability ---
	var evtAdapter core.EventLogger
	if cfg.EventsEnabled {
		eventLogPath := filepath.Join(basePath, ".sitecheck_events.jsonl")
		app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
		if err != nil {
			// Non-fatal: run without an event log.
			appLog.Warn().Err(err).Msg("event log disabled")
			app.EventLog = nil
		}
	}
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.AlertThresholds{
			FailedItemHours:          cfg.Alerts.FailedItemHours,
			AwaitingVerificationDays: cfg.Alerts.AwaitingVerificationDays,
			StaleChecklistDays:       cfg.Alerts.StaleChecklistDays,
			ValidationFailed:         cfg.Alerts.ValidationFailed,
		})
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}

	// --- Core services ---
	app.IDGen = core.NewIDGenerator(cfg.ItemIDPrefix, cfg.ListIDPrefix)
	app.Manager = core.NewChecklistManager(
		&checklistStoreAdapter{store: app.Checklists},
		app.Templates,
		app.IDGen,
		evtAdapter,
		core.ManagerOptions{StrictVerification: cfg.Validation.StrictVerification},
	)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Manager = app.Manager
	cli.Catalog = app.Templates
	cli.IDGen = app.IDGen
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc
	cli.AlertEngine = app.AlertEngine
	cli.StrictVerification = cfg.Validation.StrictVerification
	cli.WorkspaceInit = core.NewWorkspaceInitializer()

	appLog.Debug().Str("base", basePath).Int("templates", len(app.Templates.ListTemplates())).Msg("app initialized")
	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the sitecheck data directory. It checks the
// SITECHECK_HOME env var, then walks up from the working directory looking
// for .sitecheck.yaml, then falls back to the working directory.
func ResolveBasePath() string {
	if home := os.Getenv("SITECHECK_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".sitecheck.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, err := os.Getwd()
	if err != nil {
		log.Warn().Err(err).Msg("resolving working directory")
		return "."
	}
	return cwd
}

// --- Adapters ---

// checklistStoreAdapter adapts storage.ChecklistStore to core.ChecklistStore.
type checklistStoreAdapter struct {
	store storage.ChecklistStore
}

func (a *checklistStoreAdapter) AddChecklist(cl models.Checklist) error {
	return a.store.AddChecklist(cl)
}

func (a *checklistStoreAdapter) UpdateChecklist(cl models.Checklist) error {
	return a.store.UpdateChecklist(cl)
}

func (a *checklistStoreAdapter) RemoveChecklist(id string) error {
	return a.store.RemoveChecklist(id)
}

func (a *checklistStoreAdapter) GetChecklist(id string) (*models.Checklist, error) {
	return a.store.GetChecklist(id)
}

func (a *checklistStoreAdapter) ListChecklists(filter core.ChecklistFilter) ([]models.Checklist, error) {
	return a.store.ListChecklists(storage.ChecklistFilter{
		TaskID:     filter.TaskID,
		TemplateID: filter.TemplateID,
	})
}

func (a *checklistStoreAdapter) Load() error {
	return a.store.Load()
}

func (a *checklistStoreAdapter) Save() error {
	return a.store.Save()
}

func (a *checklistStoreAdapter) WithLock(fn func() error) error {
	return a.store.WithLock(fn)
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
