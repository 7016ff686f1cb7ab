package models

import "time"

// ItemStatus represents the lifecycle state of a checklist item.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemInProgress ItemStatus = "in_progress"
	ItemCompleted  ItemStatus = "completed"
	ItemVerified   ItemStatus = "verified"
	ItemFailed     ItemStatus = "failed"
	ItemSkipped    ItemStatus = "skipped"
)

// AllItemStatuses lists every valid ItemStatus in lifecycle order.
var AllItemStatuses = []ItemStatus{
	ItemPending,
	ItemInProgress,
	ItemCompleted,
	ItemVerified,
	ItemFailed,
	ItemSkipped,
}

// Valid reports whether s is one of the enumerated item statuses.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemInProgress, ItemCompleted, ItemVerified, ItemFailed, ItemSkipped:
		return true
	}
	return false
}

// Normalize returns s when it is valid and ItemPending otherwise, so that a
// single malformed record never breaks an aggregate.
func (s ItemStatus) Normalize() ItemStatus {
	if s.Valid() {
		return s
	}
	return ItemPending
}

// Satisfied reports whether the status counts toward mandatory and critical
// completion.
func (s ItemStatus) Satisfied() bool {
	return s == ItemCompleted || s == ItemVerified
}

// ChecklistItem is one unit of verifiable work inside a checklist.
type ChecklistItem struct {
	ID                   string     `yaml:"id" json:"id"`
	Title                string     `yaml:"title" json:"title"`
	Description          string     `yaml:"description,omitempty" json:"description,omitempty"`
	Mandatory            bool       `yaml:"mandatory" json:"mandatory"`
	Critical             bool       `yaml:"critical" json:"critical"`
	RequiresVerification bool       `yaml:"requires_verification" json:"requires_verification"`
	Status               ItemStatus `yaml:"status" json:"status"`
	// Completed is the legacy completion flag. Status is authoritative.
	Completed    bool       `yaml:"completed" json:"completed"`
	VerifiedDate *time.Time `yaml:"verified_date,omitempty" json:"verified_date,omitempty"`
	VerifiedBy   string     `yaml:"verified_by,omitempty" json:"verified_by,omitempty"`
	Assignee     string     `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	Notes        string     `yaml:"notes,omitempty" json:"notes,omitempty"`
	UpdatedAt    *time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// AwaitingVerification reports whether the item was completed but still needs
// its verification sign-off.
func (i ChecklistItem) AwaitingVerification() bool {
	return i.RequiresVerification && i.Status.Normalize() == ItemCompleted && i.VerifiedDate == nil
}

// Clone returns a copy of the item that shares no pointers with i.
func (i ChecklistItem) Clone() ChecklistItem {
	c := i
	if i.VerifiedDate != nil {
		t := *i.VerifiedDate
		c.VerifiedDate = &t
	}
	if i.UpdatedAt != nil {
		t := *i.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}

// CloneItems deep-copies a slice of items. A nil slice yields an empty one.
func CloneItems(items []ChecklistItem) []ChecklistItem {
	out := make([]ChecklistItem, len(items))
	for k, item := range items {
		out[k] = item.Clone()
	}
	return out
}

// ItemOverride is a partial ChecklistItem. Nil fields are left untouched when
// the override is applied.
type ItemOverride struct {
	ID                   *string     `yaml:"id,omitempty" json:"id,omitempty"`
	Title                *string     `yaml:"title,omitempty" json:"title,omitempty"`
	Description          *string     `yaml:"description,omitempty" json:"description,omitempty"`
	Mandatory            *bool       `yaml:"mandatory,omitempty" json:"mandatory,omitempty"`
	Critical             *bool       `yaml:"critical,omitempty" json:"critical,omitempty"`
	RequiresVerification *bool       `yaml:"requires_verification,omitempty" json:"requires_verification,omitempty"`
	Status               *ItemStatus `yaml:"status,omitempty" json:"status,omitempty"`
	Completed            *bool       `yaml:"completed,omitempty" json:"completed,omitempty"`
	Assignee             *string     `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	Notes                *string     `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Apply overlays the non-nil fields of o onto a copy of item.
func (o ItemOverride) Apply(item ChecklistItem) ChecklistItem {
	out := item.Clone()
	if o.ID != nil {
		out.ID = *o.ID
	}
	if o.Title != nil {
		out.Title = *o.Title
	}
	if o.Description != nil {
		out.Description = *o.Description
	}
	if o.Mandatory != nil {
		out.Mandatory = *o.Mandatory
	}
	if o.Critical != nil {
		out.Critical = *o.Critical
	}
	if o.RequiresVerification != nil {
		out.RequiresVerification = *o.RequiresVerification
	}
	if o.Status != nil {
		out.Status = *o.Status
	}
	if o.Completed != nil {
		out.Completed = *o.Completed
	}
	if o.Assignee != nil {
		out.Assignee = *o.Assignee
	}
	if o.Notes != nil {
		out.Notes = *o.Notes
	}
	return out
}

// ChecklistTemplate is a read-only, versioned bundle of item prototypes.
type ChecklistTemplate struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Category    string          `yaml:"category" json:"category"`
	Type        string          `yaml:"type" json:"type"`
	Version     string          `yaml:"version" json:"version"`
	Tags        []string        `yaml:"tags,omitempty" json:"tags,omitempty"`
	Items       []ChecklistItem `yaml:"items" json:"items"`
}

// Clone returns a deep copy of the template.
func (t ChecklistTemplate) Clone() ChecklistTemplate {
	c := t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	c.Items = CloneItems(t.Items)
	return c
}

// HasTag reports whether the template carries the given tag.
func (t ChecklistTemplate) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

// Checklist is an ordered collection of items owned by a task or a template
// instantiation.
type Checklist struct {
	ID              string          `yaml:"id" json:"id"`
	Name            string          `yaml:"name" json:"name"`
	TaskID          string          `yaml:"task_id,omitempty" json:"task_id,omitempty"`
	TemplateID      string          `yaml:"template_id,omitempty" json:"template_id,omitempty"`
	TemplateVersion string          `yaml:"template_version,omitempty" json:"template_version,omitempty"`
	Items           []ChecklistItem `yaml:"items" json:"items"`
	Created         time.Time       `yaml:"created" json:"created"`
	Updated         time.Time       `yaml:"updated" json:"updated"`
}

// Clone returns a deep copy of the checklist.
func (c Checklist) Clone() Checklist {
	out := c
	out.Items = CloneItems(c.Items)
	return out
}

// ProgressSummary holds the derived completion statistics of a checklist.
type ProgressSummary struct {
	Total                int `yaml:"total" json:"total"`
	Completed            int `yaml:"completed" json:"completed"`
	Pending              int `yaml:"pending" json:"pending"`
	InProgress           int `yaml:"in_progress" json:"inProgress"`
	Verified             int `yaml:"verified" json:"verified"`
	Failed               int `yaml:"failed" json:"failed"`
	Skipped              int `yaml:"skipped" json:"skipped"`
	CompletionPercentage int `yaml:"completion_percentage" json:"completionPercentage"`
	MandatoryCompletion  int `yaml:"mandatory_completion" json:"mandatoryCompletion"`
	CriticalCompletion   int `yaml:"critical_completion" json:"criticalCompletion"`
}

// ValidationResult is the outcome of validating a checklist for completion.
// Warnings never affect IsValid.
type ValidationResult struct {
	IsValid  bool     `yaml:"is_valid" json:"isValid"`
	Errors   []string `yaml:"errors" json:"errors"`
	Warnings []string `yaml:"warnings" json:"warnings"`
}
