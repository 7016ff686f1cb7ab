package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valter-silva-au/sitecheck/internal/logging"
	"github.com/valter-silva-au/sitecheck/internal/observability"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// ChecklistStore is the subset of storage.ChecklistStore that the manager
// needs. Defining it here keeps core independent of the storage package.
type ChecklistStore interface {
	AddChecklist(cl models.Checklist) error
	UpdateChecklist(cl models.Checklist) error
	RemoveChecklist(id string) error
	GetChecklist(id string) (*models.Checklist, error)
	ListChecklists(filter ChecklistFilter) ([]models.Checklist, error)
	Load() error
	Save() error
	WithLock(fn func() error) error
}

// ChecklistFilter narrows ListChecklists. Empty fields match everything.
type ChecklistFilter struct {
	TaskID     string
	TemplateID string
}

// EventLogger is the subset of the observability event log that core
// services need.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// ChecklistManager defines the operations available on stored checklists.
type ChecklistManager interface {
	CreateFromTemplate(templateID, name, taskID string, overrides []models.ItemOverride) (*models.Checklist, error)
	CreateEmpty(name, taskID string) (*models.Checklist, error)
	Get(checklistID string) (*models.Checklist, error)
	List(filter ChecklistFilter) ([]models.Checklist, error)
	Delete(checklistID string) error
	AddItem(checklistID string, item models.ChecklistItem) (*models.ChecklistItem, error)
	RemoveItem(checklistID, itemID string) error
	MoveItem(checklistID, itemID string, newIndex int) error
	SetItemStatus(checklistID, itemID string, status models.ItemStatus, actor string) (*models.ChecklistItem, error)
	SetItemStatusFrom(checklistID, itemID string, from []models.ItemStatus, status models.ItemStatus, actor string) (*models.ChecklistItem, error)
	Progress(checklistID string) (models.ProgressSummary, error)
	Validate(checklistID string) (models.ValidationResult, error)
}

// ManagerOptions tunes ChecklistManager behaviour.
type ManagerOptions struct {
	StrictVerification bool
	Now                func() time.Time
}

type checklistManager struct {
	store   ChecklistStore
	catalog TemplateCatalog
	ids     IDGenerator
	events  EventLogger
	opts    ManagerOptions
	log     zerolog.Logger
}

// NewChecklistManager creates a ChecklistManager with all dependencies
// injected. events may be nil.
func NewChecklistManager(store ChecklistStore, catalog TemplateCatalog, ids IDGenerator, events EventLogger, opts ManagerOptions) ChecklistManager {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &checklistManager{
		store:   store,
		catalog: catalog,
		ids:     ids,
		events:  events,
		opts:    opts,
		log:     logging.Component("manager"),
	}
}

func (m *checklistManager) CreateFromTemplate(templateID, name, taskID string, overrides []models.ItemOverride) (*models.Checklist, error) {
	tmpl, ok := m.catalog.LookupTemplate(templateID)
	if !ok {
		return nil, fmt.Errorf("creating checklist from %s: %w", templateID, ErrTemplateNotFound)
	}

	items := InstantiateFromTemplate(m.catalog, m.ids, templateID, overrides)
	if strings.TrimSpace(name) == "" {
		name = tmpl.Name
	}

	now := m.opts.Now()
	cl := models.Checklist{
		ID:              m.ids.NewChecklistID(),
		Name:            name,
		TaskID:          taskID,
		TemplateID:      tmpl.ID,
		TemplateVersion: tmpl.Version,
		Items:           items,
		Created:         now,
		Updated:         now,
	}
	if err := m.persistNew(cl); err != nil {
		return nil, fmt.Errorf("creating checklist from %s: %w", templateID, err)
	}

	m.log.Info().Str("checklist", cl.ID).Str("template", tmpl.ID).Int("items", len(items)).Msg("checklist created")
	m.logEvent(observability.EventChecklistCreated, map[string]any{
		"checklist_id": cl.ID,
		"template_id":  tmpl.ID,
		"task_id":      taskID,
		"items":        len(items),
	})
	return &cl, nil
}

func (m *checklistManager) CreateEmpty(name, taskID string) (*models.Checklist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("creating checklist: name must not be empty")
	}
	now := m.opts.Now()
	cl := models.Checklist{
		ID:      m.ids.NewChecklistID(),
		Name:    name,
		TaskID:  taskID,
		Items:   []models.ChecklistItem{},
		Created: now,
		Updated: now,
	}
	if err := m.persistNew(cl); err != nil {
		return nil, fmt.Errorf("creating checklist: %w", err)
	}
	m.log.Info().Str("checklist", cl.ID).Msg("empty checklist created")
	m.logEvent(observability.EventChecklistCreated, map[string]any{
		"checklist_id": cl.ID,
		"task_id":      taskID,
		"items":        0,
	})
	return &cl, nil
}

func (m *checklistManager) Get(checklistID string) (*models.Checklist, error) {
	if err := m.store.Load(); err != nil {
		return nil, fmt.Errorf("getting checklist %s: %w", checklistID, err)
	}
	return m.get(checklistID)
}

func (m *checklistManager) List(filter ChecklistFilter) ([]models.Checklist, error) {
	if err := m.store.Load(); err != nil {
		return nil, fmt.Errorf("listing checklists: %w", err)
	}
	return m.store.ListChecklists(filter)
}

func (m *checklistManager) Delete(checklistID string) error {
	err := m.store.WithLock(func() error {
		if err := m.store.Load(); err != nil {
			return err
		}
		if _, err := m.get(checklistID); err != nil {
			return err
		}
		if err := m.store.RemoveChecklist(checklistID); err != nil {
			return err
		}
		return m.store.Save()
	})
	if err != nil {
		return fmt.Errorf("deleting checklist %s: %w", checklistID, err)
	}
	m.log.Info().Str("checklist", checklistID).Msg("checklist deleted")
	m.logEvent(observability.EventChecklistDeleted, map[string]any{"checklist_id": checklistID})
	return nil
}

func (m *checklistManager) AddItem(checklistID string, item models.ChecklistItem) (*models.ChecklistItem, error) {
	if strings.TrimSpace(item.Title) == "" {
		return nil, fmt.Errorf("adding item to %s: title must not be empty", checklistID)
	}
	var added models.ChecklistItem
	err := m.mutate(checklistID, "adding item to", func(cl *models.Checklist) error {
		added = item.Clone()
		added.ID = m.ids.NewItemID()
		added.Status = models.ItemPending
		added.Completed = false
		added.VerifiedDate = nil
		added.VerifiedBy = ""
		cl.Items = append(cl.Items, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logEvent(observability.EventItemAdded, map[string]any{
		"checklist_id": checklistID,
		"item_id":      added.ID,
	})
	return &added, nil
}

func (m *checklistManager) RemoveItem(checklistID, itemID string) error {
	return m.mutate(checklistID, "removing item from", func(cl *models.Checklist) error {
		items, err := RemoveItem(cl.Items, itemID)
		if err != nil {
			return err
		}
		cl.Items = items
		return nil
	})
}

func (m *checklistManager) MoveItem(checklistID, itemID string, newIndex int) error {
	return m.mutate(checklistID, "moving item in", func(cl *models.Checklist) error {
		items, err := MoveItem(cl.Items, itemID, newIndex)
		if err != nil {
			return err
		}
		cl.Items = items
		return nil
	})
}

func (m *checklistManager) SetItemStatus(checklistID, itemID string, status models.ItemStatus, actor string) (*models.ChecklistItem, error) {
	return m.SetItemStatusFrom(checklistID, itemID, nil, status, actor)
}

// SetItemStatusFrom is SetItemStatus restricted to items currently in one of
// the from statuses. The check runs under the store lock. An empty from
// accepts any status the lifecycle allows.
func (m *checklistManager) SetItemStatusFrom(checklistID, itemID string, from []models.ItemStatus, status models.ItemStatus, actor string) (*models.ChecklistItem, error) {
	var oldStatus models.ItemStatus
	var updated models.ChecklistItem
	err := m.mutate(checklistID, "updating item in", func(cl *models.Checklist) error {
		idx := indexOfItem(cl.Items, itemID)
		if idx < 0 {
			return fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
		}
		oldStatus = cl.Items[idx].Status.Normalize()
		if len(from) > 0 && !slices.Contains(from, oldStatus) {
			return &TransitionError{ItemID: itemID, From: oldStatus, To: status}
		}
		items, err := SetItemStatus(cl.Items, itemID, status, actor, m.opts.Now())
		if err != nil {
			return err
		}
		cl.Items = items
		updated = items[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Debug().Str("checklist", checklistID).Str("item", itemID).
		Str("from", string(oldStatus)).Str("to", string(status)).Msg("item status changed")
	m.logEvent(observability.EventItemStatusChanged, map[string]any{
		"checklist_id": checklistID,
		"item_id":      itemID,
		"old_status":   string(oldStatus),
		"new_status":   string(status),
		"actor":        actor,

		"requires_verification": updated.RequiresVerification,
	})
	return &updated, nil
}

func (m *checklistManager) Progress(checklistID string) (models.ProgressSummary, error) {
	cl, err := m.Get(checklistID)
	if err != nil {
		return models.ProgressSummary{}, err
	}
	return CalculateProgress(cl.Items), nil
}

// Validate runs ValidateWithOptions on the stored checklist using the
// manager's strict verification setting.
func (m *checklistManager) Validate(checklistID string) (models.ValidationResult, error) {
	cl, err := m.Get(checklistID)
	if err != nil {
		return models.ValidationResult{}, err
	}

	res := ValidateWithOptions(cl.Items, m.opts.StrictVerification)

	m.logEvent(observability.EventChecklistValidated, map[string]any{
		"checklist_id": checklistID,
		"valid":        res.IsValid,
		"errors":       len(res.Errors),
		"warnings":     len(res.Warnings),
	})
	return res, nil
}

// --- helpers ---

func (m *checklistManager) get(checklistID string) (*models.Checklist, error) {
	cl, err := m.store.GetChecklist(checklistID)
	if err != nil {
		return nil, fmt.Errorf("checklist %s: %w", checklistID, ErrChecklistNotFound)
	}
	return cl, nil
}

func (m *checklistManager) persistNew(cl models.Checklist) error {
	return m.store.WithLock(func() error {
		if err := m.store.Load(); err != nil {
			return fmt.Errorf("loading checklists: %w", err)
		}
		if err := m.store.AddChecklist(cl); err != nil {
			return fmt.Errorf("adding checklist: %w", err)
		}
		if err := m.store.Save(); err != nil {
			return fmt.Errorf("saving checklists: %w", err)
		}
		return nil
	})
}

// mutate loads the checklist, applies fn to a copy and persists the result.
func (m *checklistManager) mutate(checklistID, verb string, fn func(cl *models.Checklist) error) error {
	err := m.store.WithLock(func() error {
		if err := m.store.Load(); err != nil {
			return err
		}
		current, err := m.get(checklistID)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(&next); err != nil {
			return err
		}
		next.Updated = m.opts.Now()
		if err := m.store.UpdateChecklist(next); err != nil {
			return err
		}
		return m.store.Save()
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", verb, checklistID, err)
	}
	return nil
}

func (m *checklistManager) logEvent(eventType string, data map[string]any) {
	if m.events == nil {
		return
	}
	if err := m.events.LogEvent(eventType, data); err != nil {
		m.log.Warn().Err(err).Str("event", eventType).Msg("recording event failed")
	}
}

// IsNotFound reports whether err means a checklist, item or template does
// not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChecklistNotFound) || errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrTemplateNotFound)
}
