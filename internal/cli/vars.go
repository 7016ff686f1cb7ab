package cli

import (
	"github.com/valter-silva-au/sitecheck/internal/core"
	"github.com/valter-silva-au/sitecheck/internal/observability"
)

// BasePath is the resolved data directory.
var BasePath string

// Service instances, set during app initialization in app.go.
var (
	Manager core.ChecklistManager
	Catalog core.TemplateCatalog
	IDGen   core.IDGenerator
)

// StrictVerification mirrors validation.strict_verification for views that
// validate checklists without going through Manager.
var StrictVerification bool

// Observability service instances. All are nil when the event log is disabled.
var (
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	AlertEngine observability.AlertEngine
)
