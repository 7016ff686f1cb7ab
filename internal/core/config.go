// Package core contains the business logic for sitecheck: the checklist
// progress engine, item lifecycle commands, template instantiation, the
// checklist manager, and configuration loading.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// validPrefixPattern matches lowercase alphanumeric prefixes between 1 and 12 characters.
var validPrefixPattern = regexp.MustCompile(`^[a-z0-9]{1,12}$`)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

var validLogFormats = map[string]bool{
	"console": true,
	"json":    true,
}

// ConfigurationManager defines the interface for loading and validating the
// .sitecheck.yaml configuration file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with sensible defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Log: models.LogConfig{
			Level:  "info",
			Format: "console",
		},
		EventsEnabled: true,
		ItemIDPrefix:  "item",
		ListIDPrefix:  "cl",
		TemplatesDir:  "templates",
		Alerts: models.AlertsConfig{
			FailedItemHours:          24,
			AwaitingVerificationDays: 3,
			StaleChecklistDays:       14,
			ValidationFailed:         true,
		},
	}
}

// LoadGlobalConfig reads .sitecheck.yaml from the base path using Viper.
// If the file does not exist, defaults are returned. Environment variables
// prefixed with SITECHECK_ override file values (e.g. SITECHECK_LOG_LEVEL).
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(".sitecheck")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("SITECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("events.enabled", cfg.EventsEnabled)
	v.SetDefault("ids.item_prefix", cfg.ItemIDPrefix)
	v.SetDefault("ids.checklist_prefix", cfg.ListIDPrefix)
	v.SetDefault("templates.dir", cfg.TemplatesDir)
	v.SetDefault("validation.strict_verification", cfg.Validation.StrictVerification)
	v.SetDefault("alerts.failed_item_hours", cfg.Alerts.FailedItemHours)
	v.SetDefault("alerts.awaiting_verification_days", cfg.Alerts.AwaitingVerificationDays)
	v.SetDefault("alerts.stale_checklist_days", cfg.Alerts.StaleChecklistDays)
	v.SetDefault("alerts.validation_failed", cfg.Alerts.ValidationFailed)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading .sitecheck.yaml: %w", err)
		}
	}

	cfg.Log.Level = strings.ToLower(v.GetString("log.level"))
	cfg.Log.Format = strings.ToLower(v.GetString("log.format"))
	cfg.EventsEnabled = v.GetBool("events.enabled")
	cfg.ItemIDPrefix = v.GetString("ids.item_prefix")
	cfg.ListIDPrefix = v.GetString("ids.checklist_prefix")
	cfg.TemplatesDir = v.GetString("templates.dir")
	cfg.Validation.StrictVerification = v.GetBool("validation.strict_verification")
	cfg.Alerts.FailedItemHours = v.GetInt("alerts.failed_item_hours")
	cfg.Alerts.AwaitingVerificationDays = v.GetInt("alerts.awaiting_verification_days")
	cfg.Alerts.StaleChecklistDays = v.GetInt("alerts.stale_checklist_days")
	cfg.Alerts.ValidationFailed = v.GetBool("alerts.validation_failed")

	return cfg, nil
}

// ValidateConfig checks the provided configuration for invalid values and
// returns an error listing every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if !validLogLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Sprintf(
			"log.level %q is invalid, must be one of: trace, debug, info, warn, error, disabled",
			cfg.Log.Level,
		))
	}
	if !validLogFormats[cfg.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be console or json", cfg.Log.Format))
	}
	if !validPrefixPattern.MatchString(cfg.ItemIDPrefix) {
		errs = append(errs, fmt.Sprintf("ids.item_prefix %q is invalid, must match [a-z0-9]{1,12}", cfg.ItemIDPrefix))
	}
	if !validPrefixPattern.MatchString(cfg.ListIDPrefix) {
		errs = append(errs, fmt.Sprintf("ids.checklist_prefix %q is invalid, must match [a-z0-9]{1,12}", cfg.ListIDPrefix))
	}
	if strings.TrimSpace(cfg.TemplatesDir) == "" {
		errs = append(errs, "templates.dir must not be empty")
	}
	for key, n := range map[string]int{
		"alerts.failed_item_hours":          cfg.Alerts.FailedItemHours,
		"alerts.awaiting_verification_days": cfg.Alerts.AwaitingVerificationDays,
		"alerts.stale_checklist_days":       cfg.Alerts.StaleChecklistDays,
	} {
		if n < 0 {
			errs = append(errs, fmt.Sprintf("%s must not be negative, got %d", key, n))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
