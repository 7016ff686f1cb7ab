package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/sitecheck/pkg/models"
)

var (
	ErrTemplateNotFound  = errors.New("template not found")
	ErrChecklistNotFound = errors.New("checklist not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// TransitionError reports a rejected item status change.
type TransitionError struct {
	ItemID string
	From   models.ItemStatus
	To     models.ItemStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("item %s: cannot move from %s to %s", e.ItemID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
