package core

import "github.com/valter-silva-au/sitecheck/pkg/models"

// TemplateCatalog is the read-only source of checklist templates.
// Implementations must return copies so callers cannot mutate the catalog.
type TemplateCatalog interface {
	LookupTemplate(id string) (*models.ChecklistTemplate, bool)
	ListTemplates() []models.ChecklistTemplate
}

// InstantiateFromTemplate produces fresh checklist items from the template
// with the given id.
//
// Each template item is copied, overrides[k] (when present) is overlaid on
// item k, and then ID, Status and Completed are forcibly reset to a new id,
// pending and false, whatever the template or override said. Verification
// stamps are cleared as well. An unknown template yields an empty slice.
func InstantiateFromTemplate(catalog TemplateCatalog, ids IDGenerator, templateID string, overrides []models.ItemOverride) []models.ChecklistItem {
	if catalog == nil {
		return []models.ChecklistItem{}
	}
	tmpl, ok := catalog.LookupTemplate(templateID)
	if !ok || tmpl == nil {
		return []models.ChecklistItem{}
	}

	items := make([]models.ChecklistItem, 0, len(tmpl.Items))
	for k, proto := range tmpl.Items {
		item := proto.Clone()
		if k < len(overrides) {
			item = overrides[k].Apply(item)
		}
		item.ID = ids.NewItemID()
		item.Status = models.ItemPending
		item.Completed = false
		item.VerifiedDate = nil
		item.VerifiedBy = ""
		item.UpdatedAt = nil
		items = append(items, item)
	}
	return items
}
