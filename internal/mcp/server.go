// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the checklist engine and stored checklists as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/sitecheck/internal/core"
	"github.com/valter-silva-au/sitecheck/internal/observability"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// Server wraps sitecheck services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	manager     core.ChecklistManager
	catalog     core.TemplateCatalog
	ids         core.IDGenerator
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server. metricsCalc and alertEngine may be nil
// when the event log is disabled.
func NewServer(manager core.ChecklistManager, catalog core.TemplateCatalog, ids core.IDGenerator, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		manager:     manager,
		catalog:     catalog,
		ids:         ids,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "sitecheck", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type itemDTO struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Description          string `json:"description,omitempty"`
	Mandatory            bool   `json:"mandatory,omitempty"`
	Critical             bool   `json:"critical,omitempty"`
	RequiresVerification bool   `json:"requires_verification,omitempty"`
	Status               string `json:"status,omitempty" jsonschema:"pending, in_progress, completed, verified, failed or skipped; missing or unknown values count as pending"`
	Completed            bool   `json:"completed,omitempty"`
	VerifiedDate         string `json:"verified_date,omitempty" jsonschema:"RFC3339 timestamp of the verification sign-off"`
	VerifiedBy           string `json:"verified_by,omitempty"`
	Assignee             string `json:"assignee,omitempty"`
	Notes                string `json:"notes,omitempty"`
}

type templateSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Type        string   `json:"type"`
	Version     string   `json:"version"`
	Tags        []string `json:"tags,omitempty"`
	ItemCount   int      `json:"item_count"`
}

type listTemplatesInput struct {
	Category string `json:"category,omitempty" jsonschema:"only return templates in this category (e.g. structural, safety, mep, handover)"`
	Tag      string `json:"tag,omitempty" jsonschema:"only return templates carrying this tag"`
}

type listTemplatesOutput struct {
	Templates []templateSummary `json:"templates"`
	Count     int               `json:"count"`
}

type instantiateTemplateInput struct {
	TemplateID string                `json:"template_id" jsonschema:"required,the template identifier (e.g. concrete-pre-pour)"`
	Overrides  []models.ItemOverride `json:"overrides,omitempty" jsonschema:"per-item field overrides applied by position; id, status and completed are always reset"`
}

type instantiateTemplateOutput struct {
	TemplateID string    `json:"template_id"`
	Found      bool      `json:"found"`
	Items      []itemDTO `json:"items"`
	Count      int       `json:"count"`
}

type createChecklistInput struct {
	TemplateID string                `json:"template_id" jsonschema:"required,the template identifier to instantiate"`
	Name       string                `json:"name,omitempty" jsonschema:"checklist name; defaults to the template name"`
	TaskID     string                `json:"task_id,omitempty" jsonschema:"ID of the task that owns the checklist"`
	Overrides  []models.ItemOverride `json:"overrides,omitempty"`
}

type checklistOutput struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	TaskID          string                 `json:"task_id,omitempty"`
	TemplateID      string                 `json:"template_id,omitempty"`
	TemplateVersion string                 `json:"template_version,omitempty"`
	Items           []itemDTO              `json:"items"`
	Progress        models.ProgressSummary `json:"progress"`
	Created         string                 `json:"created"`
	Updated         string                 `json:"updated"`
}

type itemsInput struct {
	Items []itemDTO `json:"items" jsonschema:"the checklist items to evaluate"`
}

type validateChecklistInput struct {
	ChecklistID string    `json:"checklist_id,omitempty" jsonschema:"a stored checklist to validate; takes precedence over items"`
	Items       []itemDTO `json:"items,omitempty" jsonschema:"ad-hoc items to validate when no checklist_id is given"`
	Strict      bool      `json:"strict,omitempty" jsonschema:"for ad-hoc items, also block sign-off while items await verification"`
}

type checklistIDInput struct {
	ChecklistID string `json:"checklist_id" jsonschema:"required,the checklist identifier (e.g. cl-1a2b3c4d)"`
}

type checklistProgressOutput struct {
	ChecklistID string                  `json:"checklist_id"`
	Progress    models.ProgressSummary  `json:"progress"`
	Validation  models.ValidationResult `json:"validation"`
}

type setItemStatusInput struct {
	ChecklistID string `json:"checklist_id" jsonschema:"required,the checklist identifier"`
	ItemID      string `json:"item_id" jsonschema:"required,the item identifier"`
	Status      string `json:"status" jsonschema:"required,the new status (pending, in_progress, completed, verified, failed, skipped)"`
	Actor       string `json:"actor,omitempty" jsonschema:"who performed the change; recorded as verified_by on verification"`
}

type setItemStatusOutput struct {
	Item    itemDTO `json:"item"`
	Message string  `json:"message"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
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
	OldestEvent           string         `json:"oldest_event,omitempty"`
	NewestEvent           string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	ChecklistID string `json:"checklist_id"`
	ItemID      string `json:"item_id,omitempty"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_templates",
		Description: "List checklist templates with an optional category or tag filter.",
	}, s.handleListTemplates)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "instantiate_template",
		Description: "Produce fresh checklist items from a template without storing them. Every item gets a new id and pending status. An unknown template yields an empty list.",
	}, s.handleInstantiateTemplate)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_checklist",
		Description: "Instantiate a template and store the result as a new checklist.",
	}, s.handleCreateChecklist)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "calculate_progress",
		Description: "Compute counts per status plus overall, mandatory and critical completion percentages for a list of items.",
	}, s.handleCalculateProgress)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "validate_checklist",
		Description: "Check whether a stored checklist (or an ad-hoc item list) is ready for sign-off. Returns errors for incomplete mandatory or critical items and warnings for failed or unverified items.",
	}, s.handleValidateChecklist)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_checklist_progress",
		Description: "Get progress and sign-off validation for a stored checklist.",
	}, s.handleGetChecklistProgress)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "set_item_status",
		Description: "Move a stored checklist item to a new status. Only lifecycle-legal transitions are accepted (e.g. verified requires completed).",
	}, s.handleSetItemStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated checklist activity metrics from the event log.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate alert conditions from the event log: items left failed, items awaiting verification too long, stale checklists, and checklists whose latest validation failed.",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListTemplates(_ context.Context, _ *gomcp.CallToolRequest, input listTemplatesInput) (*gomcp.CallToolResult, listTemplatesOutput, error) {
	out := listTemplatesOutput{Templates: []templateSummary{}}
	for _, t := range s.catalog.ListTemplates() {
		if input.Category != "" && t.Category != input.Category {
			continue
		}
		if input.Tag != "" && !t.HasTag(input.Tag) {
			continue
		}
		out.Templates = append(out.Templates, templateSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Category:    t.Category,
			Type:        t.Type,
			Version:     t.Version,
			Tags:        t.Tags,
			ItemCount:   len(t.Items),
		})
	}
	out.Count = len(out.Templates)
	return nil, out, nil
}

func (s *Server) handleInstantiateTemplate(_ context.Context, _ *gomcp.CallToolRequest, input instantiateTemplateInput) (*gomcp.CallToolResult, instantiateTemplateOutput, error) {
	if input.TemplateID == "" {
		return errorResult("template_id is required"), instantiateTemplateOutput{Items: []itemDTO{}}, nil
	}

	_, found := s.catalog.LookupTemplate(input.TemplateID)
	items := core.InstantiateFromTemplate(s.catalog, s.ids, input.TemplateID, input.Overrides)
	out := instantiateTemplateOutput{
		TemplateID: input.TemplateID,
		Found:      found,
		Items:      itemsToDTO(items),
		Count:      len(items),
	}
	return nil, out, nil
}

func (s *Server) handleCreateChecklist(_ context.Context, _ *gomcp.CallToolRequest, input createChecklistInput) (*gomcp.CallToolResult, checklistOutput, error) {
	if input.TemplateID == "" {
		return errorResult("template_id is required"), checklistOutput{Items: []itemDTO{}}, nil
	}

	cl, err := s.manager.CreateFromTemplate(input.TemplateID, input.Name, input.TaskID, input.Overrides)
	if err != nil {
		return errorResult(fmt.Sprintf("creating checklist: %s", err)), checklistOutput{Items: []itemDTO{}}, nil
	}
	return nil, checklistToOutput(cl), nil
}

func (s *Server) handleCalculateProgress(_ context.Context, _ *gomcp.CallToolRequest, input itemsInput) (*gomcp.CallToolResult, models.ProgressSummary, error) {
	items, err := itemsFromDTO(input.Items)
	if err != nil {
		return errorResult(err.Error()), models.ProgressSummary{}, nil
	}
	return nil, core.CalculateProgress(items), nil
}

func (s *Server) handleValidateChecklist(_ context.Context, _ *gomcp.CallToolRequest, input validateChecklistInput) (*gomcp.CallToolResult, models.ValidationResult, error) {
	empty := models.ValidationResult{Errors: []string{}, Warnings: []string{}}

	if input.ChecklistID != "" {
		res, err := s.manager.Validate(input.ChecklistID)
		if err != nil {
			return errorResult(fmt.Sprintf("validating checklist %s: %s", input.ChecklistID, err)), empty, nil
		}
		return nil, res, nil
	}

	items, err := itemsFromDTO(input.Items)
	if err != nil {
		return errorResult(err.Error()), empty, nil
	}
	return nil, core.ValidateWithOptions(items, input.Strict), nil
}

func (s *Server) handleGetChecklistProgress(_ context.Context, _ *gomcp.CallToolRequest, input checklistIDInput) (*gomcp.CallToolResult, checklistProgressOutput, error) {
	empty := checklistProgressOutput{Validation: models.ValidationResult{Errors: []string{}, Warnings: []string{}}}
	if input.ChecklistID == "" {
		return errorResult("checklist_id is required"), empty, nil
	}

	progress, err := s.manager.Progress(input.ChecklistID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting progress for %s: %s", input.ChecklistID, err)), empty, nil
	}
	validation, err := s.manager.Validate(input.ChecklistID)
	if err != nil {
		return errorResult(fmt.Sprintf("validating checklist %s: %s", input.ChecklistID, err)), empty, nil
	}

	out := checklistProgressOutput{
		ChecklistID: input.ChecklistID,
		Progress:    progress,
		Validation:  validation,
	}
	return nil, out, nil
}

func (s *Server) handleSetItemStatus(_ context.Context, _ *gomcp.CallToolRequest, input setItemStatusInput) (*gomcp.CallToolResult, setItemStatusOutput, error) {
	if input.ChecklistID == "" || input.ItemID == "" {
		return errorResult("checklist_id and item_id are required"), setItemStatusOutput{}, nil
	}
	status := models.ItemStatus(input.Status)
	if !status.Valid() {
		return errorResult(fmt.Sprintf("invalid status %q: must be one of pending, in_progress, completed, verified, failed, skipped", input.Status)), setItemStatusOutput{}, nil
	}

	item, err := s.manager.SetItemStatus(input.ChecklistID, input.ItemID, status, input.Actor)
	if err != nil {
		return errorResult(fmt.Sprintf("updating item %s: %s", input.ItemID, err)), setItemStatusOutput{}, nil
	}

	out := setItemStatusOutput{
		Item:    itemToDTO(*item),
		Message: fmt.Sprintf("item %s status updated to %s", input.ItemID, input.Status),
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		ChecklistsCreated:     metrics.ChecklistsCreated,
		ChecklistsDeleted:     metrics.ChecklistsDeleted,
		ItemsAdded:            metrics.ItemsAdded,
		TransitionsByStatus:   metrics.TransitionsByStatus,
		TemplatesInstantiated: metrics.TemplatesInstantiated,
		ValidationsPassed:     metrics.ValidationsPassed,
		ValidationsFailed:     metrics.ValidationsFailed,
		ItemsVerified:         metrics.ItemsVerified,
		Retries:               metrics.Retries,
		EventCount:            metrics.EventCount,
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (event log may be disabled)"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			ChecklistID: a.ChecklistID,
			ItemID:      a.ItemID,
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func itemToDTO(item models.ChecklistItem) itemDTO {
	out := itemDTO{
		ID:                   item.ID,
		Title:                item.Title,
		Description:          item.Description,
		Mandatory:            item.Mandatory,
		Critical:             item.Critical,
		RequiresVerification: item.RequiresVerification,
		Status:               string(item.Status),
		Completed:            item.Completed,
		VerifiedBy:           item.VerifiedBy,
		Assignee:             item.Assignee,
		Notes:                item.Notes,
	}
	if item.VerifiedDate != nil {
		out.VerifiedDate = item.VerifiedDate.Format(time.RFC3339)
	}
	return out
}

func itemsToDTO(items []models.ChecklistItem) []itemDTO {
	out := make([]itemDTO, len(items))
	for i, item := range items {
		out[i] = itemToDTO(item)
	}
	return out
}

// itemsFromDTO converts tool input items. Statuses are passed through as-is
// so the engine can treat unknown values as pending.
func itemsFromDTO(in []itemDTO) ([]models.ChecklistItem, error) {
	out := make([]models.ChecklistItem, len(in))
	for i, d := range in {
		item := models.ChecklistItem{
			ID:                   d.ID,
			Title:                d.Title,
			Description:          d.Description,
			Mandatory:            d.Mandatory,
			Critical:             d.Critical,
			RequiresVerification: d.RequiresVerification,
			Status:               models.ItemStatus(d.Status),
			Completed:            d.Completed,
			VerifiedBy:           d.VerifiedBy,
			Assignee:             d.Assignee,
			Notes:                d.Notes,
		}
		if d.VerifiedDate != "" {
			ts, err := time.Parse(time.RFC3339, d.VerifiedDate)
			if err != nil {
				return nil, fmt.Errorf("item %d (%s): invalid verified_date %q: %w", i, d.ID, d.VerifiedDate, err)
			}
			item.VerifiedDate = &ts
		}
		out[i] = item
	}
	return out, nil
}

func checklistToOutput(cl *models.Checklist) checklistOutput {
	return checklistOutput{
		ID:              cl.ID,
		Name:            cl.Name,
		TaskID:          cl.TaskID,
		TemplateID:      cl.TemplateID,
		TemplateVersion: cl.TemplateVersion,
		Items:           itemsToDTO(cl.Items),
		Progress:        core.CalculateProgress(cl.Items),
		Created:         cl.Created.Format(time.RFC3339),
		Updated:         cl.Updated.Format(time.RFC3339),
	}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		TransitionsByStatus:   make(map[string]int),
		TemplatesInstantiated: make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past. The count must be a plain
// non-negative integer.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	if strings.TrimLeft(numStr, "0123456789") != "" {
		return time.Time{}, fmt.Errorf("invalid duration %q: count must be a non-negative integer", s)
	}
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
