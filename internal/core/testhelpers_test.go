package core

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// --- Fake template catalog ---

type fakeCatalog struct {
	templates map[string]models.ChecklistTemplate
}

func newFakeCatalog(tmpls ...models.ChecklistTemplate) *fakeCatalog {
	c := &fakeCatalog{templates: make(map[string]models.ChecklistTemplate)}
	for _, t := range tmpls {
		c.templates[t.ID] = t
	}
	return c
}

func (c *fakeCatalog) LookupTemplate(id string) (*models.ChecklistTemplate, bool) {
	t, ok := c.templates[id]
	if !ok {
		return nil, false
	}
	out := t.Clone()
	return &out, true
}

func (c *fakeCatalog) ListTemplates() []models.ChecklistTemplate {
	out := make([]models.ChecklistTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- Sequential ID generator ---

type seqIDs struct {
	mu    sync.Mutex
	items int
	lists int
}

func (g *seqIDs) NewItemID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items++
	return fmt.Sprintf("item-%d", g.items)
}

func (g *seqIDs) NewChecklistID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lists++
	return fmt.Sprintf("cl-%d", g.lists)
}

// --- In-memory checklist store ---

type memStore struct {
	checklists map[string]models.Checklist
	loads      int
	saves      int
	locks      int
	saveErr    error
	// onLock runs as the lock is taken, standing in for a concurrent writer.
	onLock func()
}

func newMemStore() *memStore {
	return &memStore{checklists: make(map[string]models.Checklist)}
}

func (s *memStore) AddChecklist(cl models.Checklist) error {
	if _, ok := s.checklists[cl.ID]; ok {
		return fmt.Errorf("checklist %s already exists", cl.ID)
	}
	s.checklists[cl.ID] = cl.Clone()
	return nil
}

func (s *memStore) UpdateChecklist(cl models.Checklist) error {
	if _, ok := s.checklists[cl.ID]; !ok {
		return fmt.Errorf("checklist %s not found", cl.ID)
	}
	s.checklists[cl.ID] = cl.Clone()
	return nil
}

func (s *memStore) RemoveChecklist(id string) error {
	if _, ok := s.checklists[id]; !ok {
		return fmt.Errorf("checklist %s not found", id)
	}
	delete(s.checklists, id)
	return nil
}

func (s *memStore) GetChecklist(id string) (*models.Checklist, error) {
	cl, ok := s.checklists[id]
	if !ok {
		return nil, fmt.Errorf("checklist %s not found", id)
	}
	out := cl.Clone()
	return &out, nil
}

func (s *memStore) ListChecklists(filter ChecklistFilter) ([]models.Checklist, error) {
	var out []models.Checklist
	for _, cl := range s.checklists {
		if filter.TaskID != "" && cl.TaskID != filter.TaskID {
			continue
		}
		if filter.TemplateID != "" && cl.TemplateID != filter.TemplateID {
			continue
		}
		out = append(out, cl.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Load() error {
	s.loads++
	return nil
}

func (s *memStore) Save() error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	return nil
}

func (s *memStore) WithLock(fn func() error) error {
	s.locks++
	if s.onLock != nil {
		s.onLock()
	}
	return fn()
}

// --- Recording event logger ---

type recordedEvent struct {
	Type string
	Data map[string]any
}

type recordingEvents struct {
	events []recordedEvent
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.events = append(r.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (r *recordingEvents) ofType(eventType string) []recordedEvent {
	var out []recordedEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fixedClock returns a Now func pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func siteInductionTemplate() models.ChecklistTemplate {
	stamp := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	return models.ChecklistTemplate{
		ID:       "site-induction",
		Name:     "Site Induction",
		Category: "safety",
		Type:     "induction",
		Version:  "2.1",
		Tags:     []string{"onboarding"},
		Items: []models.ChecklistItem{
			{ID: "si-ppe", Title: "PPE issued", Mandatory: true, Status: models.ItemCompleted, Completed: true},
			{ID: "si-emergency", Title: "Emergency exits shown", Mandatory: true, Critical: true, RequiresVerification: true,
				Status: models.ItemVerified, Completed: true, VerifiedDate: &stamp, VerifiedBy: "preview"},
			{ID: "si-parking", Title: "Parking explained"},
		},
	}
}
