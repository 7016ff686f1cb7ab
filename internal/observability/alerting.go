package observability

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionItemFailed           = "item_failed_too_long"
	ConditionAwaitingVerification = "verification_overdue"
	ConditionChecklistStale       = "checklist_stale"
	ConditionValidationFailed     = "validation_failed"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	ChecklistID string        `json:"checklist_id"`
	ItemID      string        `json:"item_id,omitempty"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire. A zero or negative
// threshold disables its condition.
type AlertThresholds struct {
	FailedItemHours          int  `yaml:"failed_item_hours" json:"failed_item_hours"`
	AwaitingVerificationDays int  `yaml:"awaiting_verification_days" json:"awaiting_verification_days"`
	StaleChecklistDays       int  `yaml:"stale_checklist_days" json:"stale_checklist_days"`
	ValidationFailed         bool `yaml:"validation_failed" json:"validation_failed"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		FailedItemHours:          24,
		AwaitingVerificationDays: 3,
		StaleChecklistDays:       14,
		ValidationFailed:         true,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine implements AlertEngine by replaying checklist events.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type itemState struct {
	checklistID string
	itemID      string
	status      string
	verify      bool
	changedAt   time.Time
}

type checklistState struct {
	lastChange time.Time
	validated  bool
	valid      bool
	deleted    bool
}

// replay folds the checklist events into the latest known state of every
// checklist and item.
type replay struct {
	items      map[string]*itemState
	checklists map[string]*checklistState
}

func (ae *alertEngine) replay() (*replay, error) {
	events, err := ae.eventLog.Read(EventFilter{TypePrefix: "checklist."})
	if err != nil {
		return nil, err
	}

	r := &replay{
		items:      make(map[string]*itemState),
		checklists: make(map[string]*checklistState),
	}
	checklist := func(id string) *checklistState {
		cs, ok := r.checklists[id]
		if !ok {
			cs = &checklistState{}
			r.checklists[id] = cs
		}
		return cs
	}

	for _, event := range events {
		checklistID, _ := event.Data["checklist_id"].(string)
		if checklistID == "" {
			continue
		}

		switch event.Type {
		case EventChecklistCreated:
			cs := checklist(checklistID)
			cs.deleted = false
			cs.lastChange = event.Time
		case EventChecklistDeleted:
			checklist(checklistID).deleted = true
		case EventItemStatusChanged:
			itemID, _ := event.Data["item_id"].(string)
			newStatus, _ := event.Data["new_status"].(string)
			if itemID == "" || newStatus == "" {
				continue
			}
			verify, _ := event.Data["requires_verification"].(bool)
			r.items[checklistID+"/"+itemID] = &itemState{
				checklistID: checklistID,
				itemID:      itemID,
				status:      newStatus,
				verify:      verify,
				changedAt:   event.Time,
			}
			checklist(checklistID).lastChange = event.Time
		case EventChecklistValidated:
			valid, ok := event.Data["valid"].(bool)
			if !ok {
				continue
			}
			cs := checklist(checklistID)
			cs.validated = true
			cs.valid = valid
		}
	}
	return r, nil
}

func (r *replay) live(checklistID string) bool {
	cs, ok := r.checklists[checklistID]
	return !ok || !cs.deleted
}

// Evaluate reads events and checks all alert conditions, returning any
// triggered alerts ordered by severity then ID.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now()

	r, err := ae.replay()
	if err != nil {
		return nil, fmt.Errorf("reading checklist events: %w", err)
	}

	var alerts []Alert
	alerts = append(alerts, ae.checkFailedItems(r, now)...)
	alerts = append(alerts, ae.checkAwaitingVerification(r, now)...)
	alerts = append(alerts, ae.checkStaleChecklists(r, now)...)
	alerts = append(alerts, ae.checkFailedValidations(r, now)...)

	slices.SortFunc(alerts, func(a, b Alert) int {
		if d := severityRank(a.Severity) - severityRank(b.Severity); d != 0 {
			return d
		}
		return strings.Compare(a.ID, b.ID)
	})
	return alerts, nil
}

// checkFailedItems looks for items left failed longer than the threshold.
func (ae *alertEngine) checkFailedItems(r *replay, now time.Time) []Alert {
	if ae.thresholds.FailedItemHours <= 0 {
		return nil
	}
	threshold := time.Duration(ae.thresholds.FailedItemHours) * time.Hour

	var alerts []Alert
	for _, it := range r.items {
		if it.status != "failed" || !r.live(it.checklistID) || now.Sub(it.changedAt) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("failed-%s-%s", it.checklistID, it.itemID),
			Condition:   ConditionItemFailed,
			Severity:    SeverityHigh,
			ChecklistID: it.checklistID,
			ItemID:      it.itemID,
			Message: fmt.Sprintf("item %s in checklist %s has been failed for more than %d hours",
				it.itemID, it.checklistID, ae.thresholds.FailedItemHours),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkAwaitingVerification looks for completed items that still need a
// sign-off after the threshold.
func (ae *alertEngine) checkAwaitingVerification(r *replay, now time.Time) []Alert {
	if ae.thresholds.AwaitingVerificationDays <= 0 {
		return nil
	}
	threshold := time.Duration(ae.thresholds.AwaitingVerificationDays) * 24 * time.Hour

	var alerts []Alert
	for _, it := range r.items {
		if it.status != "completed" || !it.verify || !r.live(it.checklistID) || now.Sub(it.changedAt) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("verify-%s-%s", it.checklistID, it.itemID),
			Condition:   ConditionAwaitingVerification,
			Severity:    SeverityMedium,
			ChecklistID: it.checklistID,
			ItemID:      it.itemID,
			Message: fmt.Sprintf("item %s in checklist %s has awaited verification for more than %d days",
				it.itemID, it.checklistID, ae.thresholds.AwaitingVerificationDays),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkStaleChecklists looks for open checklists with no item status change
// since the threshold. A checklist whose latest validation passed is done.
func (ae *alertEngine) checkStaleChecklists(r *replay, now time.Time) []Alert {
	if ae.thresholds.StaleChecklistDays <= 0 {
		return nil
	}
	threshold := time.Duration(ae.thresholds.StaleChecklistDays) * 24 * time.Hour

	var alerts []Alert
	for id, cs := range r.checklists {
		if cs.deleted || cs.lastChange.IsZero() || (cs.validated && cs.valid) || now.Sub(cs.lastChange) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          "stale-" + id,
			Condition:   ConditionChecklistStale,
			Severity:    SeverityLow,
			ChecklistID: id,
			Message:     fmt.Sprintf("checklist %s has had no status change for more than %d days", id, ae.thresholds.StaleChecklistDays),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkFailedValidations reports checklists whose most recent validation
// was rejected.
func (ae *alertEngine) checkFailedValidations(r *replay, now time.Time) []Alert {
	if !ae.thresholds.ValidationFailed {
		return nil
	}

	var alerts []Alert
	for id, cs := range r.checklists {
		if cs.deleted || !cs.validated || cs.valid {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          "validation-" + id,
			Condition:   ConditionValidationFailed,
			Severity:    SeverityMedium,
			ChecklistID: id,
			Message:     fmt.Sprintf("latest validation of checklist %s failed", id),
			TriggeredAt: now,
		})
	}
	return alerts
}

func severityRank(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}
