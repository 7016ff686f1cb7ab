package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/sitecheck/internal/core"
	"github.com/valter-silva-au/sitecheck/internal/observability"
	"github.com/valter-silva-au/sitecheck/internal/storage"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// --- Fake implementations ---

type seqIDs struct{ n int }

func (g *seqIDs) NewItemID() string {
	g.n++
	return fmt.Sprintf("item-%d", g.n)
}

func (g *seqIDs) NewChecklistID() string {
	g.n++
	return fmt.Sprintf("cl-%d", g.n)
}

// fakeManager keeps checklists in memory and delegates item logic to core.
type fakeManager struct {
	catalog     core.TemplateCatalog
	ids         core.IDGenerator
	checklists  map[string]*models.Checklist
	validations int
}

func newFakeManager(catalog core.TemplateCatalog, ids core.IDGenerator) *fakeManager {
	return &fakeManager{catalog: catalog, ids: ids, checklists: make(map[string]*models.Checklist)}
}

func (f *fakeManager) CreateFromTemplate(templateID, name, taskID string, overrides []models.ItemOverride) (*models.Checklist, error) {
	tmpl, ok := f.catalog.LookupTemplate(templateID)
	if !ok {
		return nil, fmt.Errorf("creating checklist from %s: %w", templateID, core.ErrTemplateNotFound)
	}
	if name == "" {
		name = tmpl.Name
	}
	now := time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)
	cl := &models.Checklist{
		ID:              f.ids.NewChecklistID(),
		Name:            name,
		TaskID:          taskID,
		TemplateID:      tmpl.ID,
		TemplateVersion: tmpl.Version,
		Items:           core.InstantiateFromTemplate(f.catalog, f.ids, templateID, overrides),
		Created:         now,
		Updated:         now,
	}
	f.checklists[cl.ID] = cl
	out := cl.Clone()
	return &out, nil
}

func (f *fakeManager) CreateEmpty(name, taskID string) (*models.Checklist, error) {
	cl := &models.Checklist{ID: f.ids.NewChecklistID(), Name: name, TaskID: taskID, Items: []models.ChecklistItem{}}
	f.checklists[cl.ID] = cl
	return cl, nil
}

func (f *fakeManager) Get(id string) (*models.Checklist, error) {
	cl, ok := f.checklists[id]
	if !ok {
		return nil, fmt.Errorf("checklist %s: %w", id, core.ErrChecklistNotFound)
	}
	out := cl.Clone()
	return &out, nil
}

func (f *fakeManager) List(_ core.ChecklistFilter) ([]models.Checklist, error) {
	var out []models.Checklist
	for _, cl := range f.checklists {
		out = append(out, cl.Clone())
	}
	return out, nil
}

func (f *fakeManager) Delete(id string) error {
	delete(f.checklists, id)
	return nil
}

func (f *fakeManager) AddItem(_ string, item models.ChecklistItem) (*models.ChecklistItem, error) {
	return &item, nil
}

func (f *fakeManager) RemoveItem(_, _ string) error { return nil }

func (f *fakeManager) MoveItem(_, _ string, _ int) error { return nil }

func (f *fakeManager) SetItemStatus(checklistID, itemID string, status models.ItemStatus, actor string) (*models.ChecklistItem, error) {
	cl, ok := f.checklists[checklistID]
	if !ok {
		return nil, fmt.Errorf("checklist %s: %w", checklistID, core.ErrChecklistNotFound)
	}
	items, err := core.SetItemStatus(cl.Items, itemID, status, actor, time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, err
	}
	cl.Items = items
	for _, item := range items {
		if item.ID == itemID {
			return &item, nil
		}
	}
	return nil, core.ErrItemNotFound
}

func (f *fakeManager) SetItemStatusFrom(checklistID, itemID string, _ []models.ItemStatus, status models.ItemStatus, actor string) (*models.ChecklistItem, error) {
	return f.SetItemStatus(checklistID, itemID, status, actor)
}

func (f *fakeManager) Progress(id string) (models.ProgressSummary, error) {
	cl, err := f.Get(id)
	if err != nil {
		return models.ProgressSummary{}, err
	}
	return core.CalculateProgress(cl.Items), nil
}

func (f *fakeManager) Validate(id string) (models.ValidationResult, error) {
	cl, err := f.Get(id)
	if err != nil {
		return models.ValidationResult{}, err
	}
	f.validations++
	return core.ValidateCompletion(cl.Items), nil
}

type fakeMetricsCalculator struct {
	metrics *observability.Metrics
	since   time.Time
}

func (f *fakeMetricsCalculator) Calculate(since time.Time) (*observability.Metrics, error) {
	f.since = since
	return f.metrics, nil
}

type fakeAlertEngine struct {
	alerts []observability.Alert
	err    error
}

func (f *fakeAlertEngine) Evaluate() ([]observability.Alert, error) {
	return f.alerts, f.err
}

// --- Test helpers ---

func testCatalog(t *testing.T) core.TemplateCatalog {
	t.Helper()
	c, err := storage.NewStaticTemplateCatalog(
		models.ChecklistTemplate{
			ID:       "scaffold-handover",
			Name:     "Scaffold handover",
			Category: "safety",
			Type:     "inspection",
			Version:  "1.0",
			Tags:     []string{"scaffold", "weekly"},
			Items: []models.ChecklistItem{
				{ID: "sh-tag", Title: "Scaffold tag signed", Mandatory: true, Critical: true, Status: models.ItemCompleted, Completed: true},
				{ID: "sh-base", Title: "Base plates on sole boards", Mandatory: true, RequiresVerification: true},
				{ID: "sh-photo", Title: "Photos uploaded"},
			},
		},
		models.ChecklistTemplate{
			ID:       "pour-readiness",
			Name:     "Pour readiness",
			Category: "structural",
			Version:  "3.0",
			Items:    []models.ChecklistItem{{ID: "pr-1", Title: "Pump booked"}},
		},
	)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return c
}

type testEnv struct {
	srv     *Server
	manager *fakeManager
	metrics *fakeMetricsCalculator
	alerts  *fakeAlertEngine
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	catalog := testCatalog(t)
	ids := &seqIDs{}
	mgr := newFakeManager(catalog, ids)
	metrics := &fakeMetricsCalculator{metrics: &observability.Metrics{
		ChecklistsCreated:     3,
		ItemsVerified:         5,
		Retries:               1,
		ValidationsPassed:     2,
		ValidationsFailed:     4,
		EventCount:            20,
		TransitionsByStatus:   map[string]int{"completed": 7, "verified": 5},
		TemplatesInstantiated: map[string]int{"scaffold-handover": 3},
	}}
	alerts := &fakeAlertEngine{alerts: []observability.Alert{{
		ID:          "verify-cl-1-item-2",
		Condition:   observability.ConditionAwaitingVerification,
		Severity:    observability.SeverityMedium,
		ChecklistID: "cl-1",
		ItemID:      "item-2",
		Message:     "item item-2 in checklist cl-1 has awaited verification for more than 3 days",
		TriggeredAt: time.Date(2026, 6, 4, 7, 0, 0, 0, time.UTC),
	}}}
	return testEnv{
		srv:     NewServer(mgr, catalog, ids, metrics, alerts, "test"),
		manager: mgr,
		metrics: metrics,
		alerts:  alerts,
	}
}

// callTool is a helper that connects a client to the server and calls a tool.
func callTool(t *testing.T, srv *Server, toolName string, args map[string]any) *gomcp.CallToolResult {
	t.Helper()

	ctx := context.Background()
	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	t1, t2 := gomcp.NewInMemoryTransports()

	// Connect server (non-blocking).
	go func() {
		_ = srv.MCPServer().Run(ctx, t1)
	}()

	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	result, err := session.CallTool(ctx, &gomcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call tool %s: %v", toolName, err)
	}

	return result
}

// decodeResult unmarshals a successful tool result into out, preferring the
// structured content and falling back to the text content.
func decodeResult(t *testing.T, result *gomcp.CallToolResult, out any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %s", extractText(result))
	}
	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		if err != nil {
			t.Fatalf("marshalling structured content: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshalling structured content: %v", err)
		}
		return
	}
	if err := json.Unmarshal([]byte(extractText(result)), out); err != nil {
		t.Fatalf("unmarshalling text content: %v", err)
	}
}

// extractText extracts the text from the first TextContent in a CallToolResult.
func extractText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// item builds a tool input item with every schema field present.
func item(id, status string, mandatory, critical, verify bool) map[string]any {
	return map[string]any{
		"id":                    id,
		"title":                 "Item " + id,
		"mandatory":             mandatory,
		"critical":              critical,
		"requires_verification": verify,
		"status":                status,
		"completed":             status == "completed" || status == "verified",
	}
}

// --- Tests ---

func TestListTemplates(t *testing.T) {
	env := newTestEnv(t)

	var out listTemplatesOutput
	decodeResult(t, callTool(t, env.srv, "list_templates", map[string]any{}), &out)
	if out.Count != 2 || len(out.Templates) != 2 {
		t.Fatalf("expected 2 templates, got %d", out.Count)
	}

	var filtered listTemplatesOutput
	decodeResult(t, callTool(t, env.srv, "list_templates", map[string]any{"category": "safety"}), &filtered)
	if filtered.Count != 1 || filtered.Templates[0].ID != "scaffold-handover" {
		t.Errorf("category filter returned %+v", filtered.Templates)
	}
	if filtered.Templates[0].ItemCount != 3 {
		t.Errorf("expected item_count 3, got %d", filtered.Templates[0].ItemCount)
	}

	var byTag listTemplatesOutput
	decodeResult(t, callTool(t, env.srv, "list_templates", map[string]any{"tag": "nope"}), &byTag)
	if byTag.Count != 0 || byTag.Templates == nil {
		t.Errorf("expected empty non-nil list, got %+v", byTag)
	}
}

func TestInstantiateTemplate(t *testing.T) {
	env := newTestEnv(t)

	result := callTool(t, env.srv, "instantiate_template", map[string]any{
		"template_id": "scaffold-handover",
		"overrides":   []any{map[string]any{"assignee": "rigger", "status": "verified"}},
	})
	var out instantiateTemplateOutput
	decodeResult(t, result, &out)

	if !out.Found || out.Count != 3 {
		t.Fatalf("expected 3 items from a found template, got %+v", out)
	}
	first := out.Items[0]
	if first.ID == "sh-tag" || first.ID == "" {
		t.Errorf("expected a fresh ID, got %q", first.ID)
	}
	if first.Status != "pending" || first.Completed {
		t.Errorf("expected pending and not completed, got %s/%v", first.Status, first.Completed)
	}
	if first.Assignee != "rigger" {
		t.Errorf("expected override assignee, got %q", first.Assignee)
	}
	if len(env.manager.checklists) != 0 {
		t.Error("instantiate_template should not store anything")
	}
}

func TestInstantiateTemplate_Unknown(t *testing.T) {
	env := newTestEnv(t)

	var out instantiateTemplateOutput
	decodeResult(t, callTool(t, env.srv, "instantiate_template", map[string]any{"template_id": "does-not-exist"}), &out)
	if out.Found || out.Count != 0 || len(out.Items) != 0 {
		t.Errorf("expected empty result, got %+v", out)
	}
}

func TestCreateChecklist(t *testing.T) {
	env := newTestEnv(t)

	var out checklistOutput
	decodeResult(t, callTool(t, env.srv, "create_checklist", map[string]any{
		"template_id": "scaffold-handover",
		"task_id":     "TASK-00007",
	}), &out)

	if out.Name != "Scaffold handover" || out.TaskID != "TASK-00007" || out.TemplateVersion != "1.0" {
		t.Errorf("unexpected checklist: %+v", out)
	}
	if out.Progress.Total != 3 || out.Progress.Pending != 3 {
		t.Errorf("unexpected progress: %+v", out.Progress)
	}
	if _, ok := env.manager.checklists[out.ID]; !ok {
		t.Error("checklist was not stored")
	}

	result := callTool(t, env.srv, "create_checklist", map[string]any{"template_id": "nope"})
	if !result.IsError {
		t.Fatal("expected error for unknown template")
	}
	if !strings.Contains(extractText(result), "template not found") {
		t.Errorf("unexpected error text: %s", extractText(result))
	}
}

func TestCalculateProgress(t *testing.T) {
	env := newTestEnv(t)

	var out models.ProgressSummary
	decodeResult(t, callTool(t, env.srv, "calculate_progress", map[string]any{
		"items": []any{
			item("a", "completed", true, false, false),
			item("b", "verified", false, false, false),
			item("c", "pending", true, false, false),
			item("d", "in_progress", false, false, false),
			item("e", "failed", false, false, false),
		},
	}), &out)

	want := models.ProgressSummary{
		Total: 5, Completed: 1, Pending: 1, InProgress: 1, Verified: 1, Failed: 1,
		CompletionPercentage: 40, MandatoryCompletion: 50, CriticalCompletion: 100,
	}
	if out != want {
		t.Errorf("got %+v, want %+v", out, want)
	}
}

func TestCalculateProgress_SparseItems(t *testing.T) {
	env := newTestEnv(t)

	var out models.ProgressSummary
	decodeResult(t, callTool(t, env.srv, "calculate_progress", map[string]any{
		"items": []any{
			map[string]any{"id": "a", "title": "done", "status": "completed"},
			map[string]any{"id": "b", "title": "no status", "mandatory": true},
		},
	}), &out)

	if out.Total != 2 || out.Completed != 1 || out.Pending != 1 {
		t.Errorf("item without status should count as pending: %+v", out)
	}
	if out.MandatoryCompletion != 0 || out.CompletionPercentage != 50 {
		t.Errorf("unexpected percentages: %+v", out)
	}
}

func TestCalculateProgress_Empty(t *testing.T) {
	env := newTestEnv(t)

	var out models.ProgressSummary
	decodeResult(t, callTool(t, env.srv, "calculate_progress", map[string]any{"items": []any{}}), &out)
	if out.Total != 0 || out.CompletionPercentage != 0 || out.MandatoryCompletion != 100 || out.CriticalCompletion != 100 {
		t.Errorf("unexpected empty progress: %+v", out)
	}
}

func TestValidateChecklist_AdHocItems(t *testing.T) {
	env := newTestEnv(t)

	var out models.ValidationResult
	decodeResult(t, callTool(t, env.srv, "validate_checklist", map[string]any{
		"items": []any{
			item("a", "pending", true, true, false),
			item("b", "completed", false, false, true),
		},
	}), &out)

	if out.IsValid {
		t.Error("expected invalid result")
	}
	if len(out.Errors) != 3 {
		t.Errorf("expected mandatory summary, title line and critical summary, got %q", out.Errors)
	}
	if len(out.Warnings) != 1 || out.Warnings[0] != "1 item(s) awaiting verification" {
		t.Errorf("unexpected warnings: %q", out.Warnings)
	}
	if env.manager.validations != 0 {
		t.Error("ad-hoc validation should not touch stored checklists")
	}
}

func TestValidateChecklist_AdHocStrict(t *testing.T) {
	env := newTestEnv(t)
	items := []any{item("a", "completed", true, false, true)}

	var lenient models.ValidationResult
	decodeResult(t, callTool(t, env.srv, "validate_checklist", map[string]any{"items": items}), &lenient)
	if !lenient.IsValid {
		t.Errorf("awaiting verification should only warn by default: %+v", lenient)
	}

	var strict models.ValidationResult
	decodeResult(t, callTool(t, env.srv, "validate_checklist", map[string]any{"items": items, "strict": true}), &strict)
	if strict.IsValid || len(strict.Errors) != 1 || strict.Errors[0] != "1 item(s) require verification before sign-off" {
		t.Errorf("unexpected strict result: %+v", strict)
	}
}

func TestValidateChecklist_BadVerifiedDate(t *testing.T) {
	env := newTestEnv(t)

	bad := item("a", "completed", false, false, true)
	bad["verified_date"] = "yesterday"
	result := callTool(t, env.srv, "validate_checklist", map[string]any{"items": []any{bad}})
	if !result.IsError {
		t.Fatal("expected error for malformed verified_date")
	}
}

func TestStoredChecklistFlow(t *testing.T) {
	env := newTestEnv(t)

	var created checklistOutput
	decodeResult(t, callTool(t, env.srv, "create_checklist", map[string]any{"template_id": "scaffold-handover"}), &created)

	for _, it := range created.Items[:2] {
		var step setItemStatusOutput
		decodeResult(t, callTool(t, env.srv, "set_item_status", map[string]any{
			"checklist_id": created.ID,
			"item_id":      it.ID,
			"status":       "completed",
			"actor":        "foreman",
		}), &step)
		if step.Item.Status != "completed" || !step.Item.Completed {
			t.Errorf("unexpected item after completion: %+v", step.Item)
		}
	}

	var progress checklistProgressOutput
	decodeResult(t, callTool(t, env.srv, "get_checklist_progress", map[string]any{"checklist_id": created.ID}), &progress)
	if progress.Progress.MandatoryCompletion != 100 || progress.Progress.CompletionPercentage != 67 {
		t.Errorf("unexpected progress: %+v", progress.Progress)
	}
	if !progress.Validation.IsValid || len(progress.Validation.Warnings) != 1 {
		t.Errorf("unexpected validation: %+v", progress.Validation)
	}

	var verified setItemStatusOutput
	decodeResult(t, callTool(t, env.srv, "set_item_status", map[string]any{
		"checklist_id": created.ID,
		"item_id":      created.Items[1].ID,
		"status":       "verified",
		"actor":        "inspector",
	}), &verified)
	if verified.Item.VerifiedBy != "inspector" || verified.Item.VerifiedDate == "" {
		t.Errorf("expected verification stamp, got %+v", verified.Item)
	}

	var res models.ValidationResult
	decodeResult(t, callTool(t, env.srv, "validate_checklist", map[string]any{"checklist_id": created.ID}), &res)
	if !res.IsValid || len(res.Warnings) != 0 {
		t.Errorf("expected clean validation, got %+v", res)
	}
}

func TestSetItemStatus_Errors(t *testing.T) {
	env := newTestEnv(t)
	var created checklistOutput
	decodeResult(t, callTool(t, env.srv, "create_checklist", map[string]any{"template_id": "pour-readiness"}), &created)

	tests := []struct {
		name    string
		args    map[string]any
		wantMsg string
	}{
		{"invalid status", map[string]any{"checklist_id": created.ID, "item_id": created.Items[0].ID, "status": "done"}, "invalid status"},
		{"illegal transition", map[string]any{"checklist_id": created.ID, "item_id": created.Items[0].ID, "status": "verified"}, "cannot move from pending to verified"},
		{"unknown item", map[string]any{"checklist_id": created.ID, "item_id": "item-404", "status": "completed"}, "item not found"},
		{"unknown checklist", map[string]any{"checklist_id": "cl-404", "item_id": "x", "status": "completed"}, "checklist not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, env.srv, "set_item_status", tt.args)
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if !strings.Contains(extractText(result), tt.wantMsg) {
				t.Errorf("error %q should contain %q", extractText(result), tt.wantMsg)
			}
		})
	}
}

func TestGetChecklistProgress_NotFound(t *testing.T) {
	env := newTestEnv(t)
	result := callTool(t, env.srv, "get_checklist_progress", map[string]any{"checklist_id": "cl-404"})
	if !result.IsError {
		t.Fatal("expected error result for unknown checklist")
	}
}

func TestGetMetrics(t *testing.T) {
	env := newTestEnv(t)

	var out metricsOutput
	decodeResult(t, callTool(t, env.srv, "get_metrics", map[string]any{"since": "30d"}), &out)
	if out.ChecklistsCreated != 3 || out.ItemsVerified != 5 || out.Retries != 1 || out.EventCount != 20 {
		t.Errorf("unexpected metrics: %+v", out)
	}
	if out.TemplatesInstantiated["scaffold-handover"] != 3 {
		t.Errorf("unexpected templates_instantiated: %v", out.TemplatesInstantiated)
	}
	if age := time.Since(env.metrics.since); age < 29*24*time.Hour || age > 31*24*time.Hour {
		t.Errorf("since window = %v, want about 30 days", age)
	}

	if result := callTool(t, env.srv, "get_metrics", map[string]any{"since": "2w"}); !result.IsError {
		t.Error("expected error for unsupported duration suffix")
	}
}

func TestGetMetrics_Unavailable(t *testing.T) {
	catalog := testCatalog(t)
	srv := NewServer(newFakeManager(catalog, &seqIDs{}), catalog, &seqIDs{}, nil, nil, "")

	for _, tool := range []string{"get_metrics", "get_alerts"} {
		result := callTool(t, srv, tool, map[string]any{})
		if !result.IsError {
			t.Fatalf("%s: expected error when the event log is disabled", tool)
		}
		if !strings.Contains(extractText(result), "not available") {
			t.Errorf("%s: unexpected error text: %s", tool, extractText(result))
		}
	}
}

func TestGetAlerts(t *testing.T) {
	env := newTestEnv(t)

	var out getAlertsOutput
	decodeResult(t, callTool(t, env.srv, "get_alerts", map[string]any{}), &out)
	if out.Count != 1 || len(out.Alerts) != 1 {
		t.Fatalf("unexpected alerts: %+v", out)
	}
	a := out.Alerts[0]
	if a.Condition != observability.ConditionAwaitingVerification || a.Severity != "medium" || a.ItemID != "item-2" {
		t.Errorf("unexpected alert: %+v", a)
	}
	if a.TriggeredAt != "2026-06-04T07:00:00Z" {
		t.Errorf("TriggeredAt = %q", a.TriggeredAt)
	}

	env.alerts.alerts = nil
	decodeResult(t, callTool(t, env.srv, "get_alerts", map[string]any{}), &out)
	if out.Count != 0 || out.Alerts == nil {
		t.Errorf("expected an empty alert list, got %+v", out)
	}

	env.alerts.err = fmt.Errorf("event log unreadable")
	if result := callTool(t, env.srv, "get_alerts", map[string]any{}); !result.IsError {
		t.Error("expected error result when evaluation fails")
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"7d", false},
		{"30d", false},
		{"24h", false},
		{"1h", false},
		{"x", true},
		{"", true},
		{"7w", true},
		{"abcd", true},
		{"7xd", true},
		{"-7d", true},
		{"+7d", true},
		{" 7d", true},
		{"0d", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseSince(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseSince(%q) error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
