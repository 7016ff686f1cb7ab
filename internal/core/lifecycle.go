package core

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/sitecheck/pkg/models"
)

// itemTransitions lists the allowed target states for every item status.
// failed -> in_progress is the retry path; completed/verified -> in_progress reopens.
var itemTransitions = map[models.ItemStatus]map[models.ItemStatus]bool{
	models.ItemPending: {
		models.ItemInProgress: true,
		models.ItemCompleted:  true,
		models.ItemSkipped:    true,
	},
	models.ItemInProgress: {
		models.ItemPending:   true,
		models.ItemCompleted: true,
		models.ItemFailed:    true,
		models.ItemSkipped:   true,
	},
	models.ItemCompleted: {
		models.ItemVerified:   true,
		models.ItemInProgress: true,
		models.ItemFailed:     true,
	},
	models.ItemVerified: {
		models.ItemInProgress: true,
	},
	models.ItemFailed: {
		models.ItemInProgress: true,
	},
	models.ItemSkipped: {
		models.ItemPending: true,
	},
}

// CanTransition reports whether an item may move from one status to another.
// An unrecognised from status is treated as pending.
func CanTransition(from, to models.ItemStatus) bool {
	return itemTransitions[from.Normalize()][to]
}

// TransitionItem returns a copy of item moved to status to. The legacy
// Completed flag follows the status, VerifiedDate is stamped on verification
// and cleared whenever the item leaves completed/verified for anything but
// verified.
func TransitionItem(item models.ChecklistItem, to models.ItemStatus, actor string, at time.Time) (models.ChecklistItem, error) {
	from := item.Status.Normalize()
	if !to.Valid() {
		return item, fmt.Errorf("item %s: unknown status %q: %w", item.ID, to, ErrInvalidTransition)
	}
	if !CanTransition(from, to) {
		return item, &TransitionError{ItemID: item.ID, From: from, To: to}
	}

	out := item.Clone()
	out.Status = to
	out.Completed = to.Satisfied()
	switch to {
	case models.ItemVerified:
		ts := at
		out.VerifiedDate = &ts
		out.VerifiedBy = actor
	default:
		// completing again after a reopen needs a new sign-off
		out.VerifiedDate = nil
		out.VerifiedBy = ""
	}
	ts := at
	out.UpdatedAt = &ts
	return out, nil
}

// StartItem moves an item to in_progress.
func StartItem(item models.ChecklistItem, at time.Time) (models.ChecklistItem, error) {
	return TransitionItem(item, models.ItemInProgress, "", at)
}

// CompleteItem moves an item to completed.
func CompleteItem(item models.ChecklistItem, at time.Time) (models.ChecklistItem, error) {
	return TransitionItem(item, models.ItemCompleted, "", at)
}

// VerifyItem signs off a completed item.
func VerifyItem(item models.ChecklistItem, by string, at time.Time) (models.ChecklistItem, error) {
	return TransitionItem(item, models.ItemVerified, by, at)
}

// FailItem marks an item as failed.
func FailItem(item models.ChecklistItem, at time.Time) (models.ChecklistItem, error) {
	return TransitionItem(item, models.ItemFailed, "", at)
}

// RetryItem moves a failed item back to in_progress.
func RetryItem(item models.ChecklistItem, at time.Time) (models.ChecklistItem, error) {
	if item.Status.Normalize() != models.ItemFailed {
		return item, &TransitionError{ItemID: item.ID, From: item.Status.Normalize(), To: models.ItemInProgress}
	}
	return TransitionItem(item, models.ItemInProgress, "", at)
}

// SkipItem marks an item as skipped.
func SkipItem(item models.ChecklistItem, at time.Time) (models.ChecklistItem, error) {
	return TransitionItem(item, models.ItemSkipped, "", at)
}

// ReopenItem moves a completed or verified item back to in_progress.
func ReopenItem(item models.ChecklistItem, at time.Time) (models.ChecklistItem, error) {
	if !item.Status.Normalize().Satisfied() {
		return item, &TransitionError{ItemID: item.ID, From: item.Status.Normalize(), To: models.ItemInProgress}
	}
	return TransitionItem(item, models.ItemInProgress, "", at)
}

// SetItemStatus returns a copy of items with the item identified by itemID
// transitioned to status to. items is not modified.
func SetItemStatus(items []models.ChecklistItem, itemID string, to models.ItemStatus, actor string, at time.Time) ([]models.ChecklistItem, error) {
	idx := indexOfItem(items, itemID)
	if idx < 0 {
		return nil, fmt.Errorf("setting status of %s: %w", itemID, ErrItemNotFound)
	}
	updated, err := TransitionItem(items[idx], to, actor, at)
	if err != nil {
		return nil, err
	}
	out := models.CloneItems(items)
	out[idx] = updated
	return out, nil
}

// MoveItem returns a copy of items with the identified item moved to newIndex.
// newIndex is clamped to the valid range.
func MoveItem(items []models.ChecklistItem, itemID string, newIndex int) ([]models.ChecklistItem, error) {
	idx := indexOfItem(items, itemID)
	if idx < 0 {
		return nil, fmt.Errorf("moving %s: %w", itemID, ErrItemNotFound)
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(items)-1 {
		newIndex = len(items) - 1
	}

	out := make([]models.ChecklistItem, 0, len(items))
	moving := items[idx].Clone()
	for k, item := range items {
		if k == idx {
			continue
		}
		out = append(out, item.Clone())
	}
	out = append(out[:newIndex], append([]models.ChecklistItem{moving}, out[newIndex:]...)...)
	return out, nil
}

// RemoveItem returns a copy of items without the identified item.
func RemoveItem(items []models.ChecklistItem, itemID string) ([]models.ChecklistItem, error) {
	idx := indexOfItem(items, itemID)
	if idx < 0 {
		return nil, fmt.Errorf("removing %s: %w", itemID, ErrItemNotFound)
	}
	out := make([]models.ChecklistItem, 0, len(items)-1)
	for k, item := range items {
		if k != idx {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

func indexOfItem(items []models.ChecklistItem, itemID string) int {
	for k, item := range items {
		if item.ID == itemID {
			return k
		}
	}
	return -1
}
