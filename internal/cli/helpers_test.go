package cli

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/valter-silva-au/sitecheck/internal/core"
	"github.com/valter-silva-au/sitecheck/internal/storage"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// --- In-memory checklist store for a real core.ChecklistManager ---

type memChecklistStore struct {
	checklists map[string]models.Checklist
}

func (s *memChecklistStore) AddChecklist(cl models.Checklist) error {
	if _, ok := s.checklists[cl.ID]; ok {
		return fmt.Errorf("checklist %s already exists", cl.ID)
	}
	s.checklists[cl.ID] = cl.Clone()
	return nil
}

func (s *memChecklistStore) UpdateChecklist(cl models.Checklist) error {
	s.checklists[cl.ID] = cl.Clone()
	return nil
}

func (s *memChecklistStore) RemoveChecklist(id string) error {
	delete(s.checklists, id)
	return nil
}

func (s *memChecklistStore) GetChecklist(id string) (*models.Checklist, error) {
	cl, ok := s.checklists[id]
	if !ok {
		return nil, fmt.Errorf("checklist %s not found", id)
	}
	out := cl.Clone()
	return &out, nil
}

func (s *memChecklistStore) ListChecklists(filter core.ChecklistFilter) ([]models.Checklist, error) {
	out := []models.Checklist{}
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

func (s *memChecklistStore) Load() error                    { return nil }
func (s *memChecklistStore) Save() error                    { return nil }
func (s *memChecklistStore) WithLock(fn func() error) error { return fn() }

type seqIDs struct{ items, lists int }

func (g *seqIDs) NewItemID() string {
	g.items++
	return fmt.Sprintf("item-%d", g.items)
}

func (g *seqIDs) NewChecklistID() string {
	g.lists++
	return fmt.Sprintf("cl-%d", g.lists)
}

func testTemplates(t *testing.T) core.TemplateCatalog {
	t.Helper()
	c, err := storage.NewStaticTemplateCatalog(
		models.ChecklistTemplate{
			ID:       "roof-handover",
			Name:     "Roof handover",
			Category: "handover",
			Type:     "inspection",
			Version:  "1.1",
			Tags:     []string{"roof"},
			Items: []models.ChecklistItem{
				{ID: "rh-1", Title: "Flashings sealed", Mandatory: true, Critical: true},
				{ID: "rh-2", Title: "Gutters clear", Mandatory: true, RequiresVerification: true},
				{ID: "rh-3", Title: "Photos taken"},
			},
		},
		models.ChecklistTemplate{
			ID:       "hot-works",
			Name:     "Hot works permit",
			Category: "safety",
			Version:  "4.0",
			Tags:     []string{"permit"},
			Items:    []models.ChecklistItem{{ID: "hw-1", Title: "Fire watch assigned", Mandatory: true}},
		},
	)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return c
}

// withServices wires a real checklist manager over an in-memory store into
// the package-level service vars and restores them after the test.
func withServices(t *testing.T) *memChecklistStore {
	t.Helper()
	origManager, origCatalog, origIDs := Manager, Catalog, IDGen
	origStrict, origAlerts := StrictVerification, AlertEngine
	t.Cleanup(func() {
		Manager, Catalog, IDGen = origManager, origCatalog, origIDs
		StrictVerification, AlertEngine = origStrict, origAlerts
	})

	store := &memChecklistStore{checklists: make(map[string]models.Checklist)}
	Catalog = testTemplates(t)
	IDGen = &seqIDs{}
	Manager = core.NewChecklistManager(store, Catalog, IDGen, nil, core.ManagerOptions{})
	return store
}

// resetFlags restores every command flag variable to its default; cobra
// keeps flag values between Execute calls.
func resetFlags() {
	checklistTemplate, checklistName, checklistTask, checklistOverrides = "", "", "", ""
	checklistJSON = false
	addItemMandatory, addItemCritical, addItemVerify, addItemAssignee = false, false, false, ""
	itemActor, itemJSON = "", false
	progressJSON = false
	templateListCategory, templateListTag, templateJSON = "", "", false
	metricsJSON, metricsSince = false, "7d"
	alertsJSON = false
	completionInstall = false
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := Execute()
	return stdout.String(), err
}
