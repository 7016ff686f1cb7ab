package models

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// ValidationConfig tunes how the checklist manager gates completion.
type ValidationConfig struct {
	// StrictVerification promotes "awaiting verification" from a warning to
	// a blocking error when validating stored checklists.
	StrictVerification bool `yaml:"strict_verification" mapstructure:"strict_verification"`
}

// AlertsConfig sets the thresholds for `sitecheck alerts`. Zero disables a
// condition.
type AlertsConfig struct {
	FailedItemHours          int  `yaml:"failed_item_hours" mapstructure:"failed_item_hours"`
	AwaitingVerificationDays int  `yaml:"awaiting_verification_days" mapstructure:"awaiting_verification_days"`
	StaleChecklistDays       int  `yaml:"stale_checklist_days" mapstructure:"stale_checklist_days"`
	ValidationFailed         bool `yaml:"validation_failed" mapstructure:"validation_failed"`
}

// GlobalConfig holds system-wide settings read from .sitecheck.yaml via Viper.
type GlobalConfig struct {
	Log           LogConfig        `yaml:"log" mapstructure:"log"`
	EventsEnabled bool             `yaml:"events_enabled" mapstructure:"events_enabled"`
	ItemIDPrefix  string           `yaml:"item_id_prefix" mapstructure:"item_id_prefix"`
	ListIDPrefix  string           `yaml:"checklist_id_prefix" mapstructure:"checklist_id_prefix"`
	TemplatesDir  string           `yaml:"templates_dir" mapstructure:"templates_dir"`
	Validation    ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Alerts        AlertsConfig     `yaml:"alerts" mapstructure:"alerts"`
}
