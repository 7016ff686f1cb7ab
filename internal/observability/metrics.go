package observability

import (
	"fmt"
	"time"
)

// Metrics holds aggregates derived from the event log.
type Metrics struct {
	ChecklistsCreated     int            `json:"checklists_created"`
	ChecklistsDeleted     int            `json:"checklists_deleted"`
	ItemsAdded            int            `json:"items_added"`
	TransitionsByStatus   map[string]int `json:"transitions_by_status"`
	TemplatesInstantiated map[string]int `json:"templates_instantiated"`
	ValidationsPassed     int            `json:"validations_passed"`
	ValidationsFailed     int            `json:"validations_failed"`
	ItemsVerified         int            `json:"items_verified"`
	Retries               int            `json:"retries"`
	EventCount            int            `json:"event_count"`
	OldestEvent           *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent           *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		TransitionsByStatus:   make(map[string]int),
		TemplatesInstantiated: make(map[string]int),
		EventCount:            len(events),
	}

	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case EventChecklistCreated:
			m.ChecklistsCreated++
			if tmpl, ok := event.Data["template_id"].(string); ok && tmpl != "" {
				m.TemplatesInstantiated[tmpl]++
			}
		case EventChecklistDeleted:
			m.ChecklistsDeleted++
		case EventItemAdded:
			m.ItemsAdded++
		case EventItemStatusChanged:
			newStatus, _ := event.Data["new_status"].(string)
			oldStatus, _ := event.Data["old_status"].(string)
			if newStatus != "" {
				m.TransitionsByStatus[newStatus]++
			}
			if newStatus == "verified" {
				m.ItemsVerified++
			}
			if oldStatus == "failed" && newStatus == "in_progress" {
				m.Retries++
			}
		case EventChecklistValidated:
			valid, ok := event.Data["valid"].(bool)
			switch {
			case !ok:
				// no outcome recorded
			case valid:
				m.ValidationsPassed++
			default:
				m.ValidationsFailed++
			}
		}
	}

	return m, nil
}
