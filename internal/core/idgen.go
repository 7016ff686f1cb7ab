package core

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator produces fresh identifiers for checklist items and checklists.
type IDGenerator interface {
	NewItemID() string
	NewChecklistID() string
}

// uuidIDGenerator formats random UUIDs behind a configurable prefix,
// e.g. item-3f2c... and cl-9a1b....
type uuidIDGenerator struct {
	itemPrefix string
	listPrefix string
}

// NewIDGenerator creates an IDGenerator backed by random (v4) UUIDs.
// Empty prefixes fall back to "item" and "cl".
func NewIDGenerator(itemPrefix, listPrefix string) IDGenerator {
	if itemPrefix == "" {
		itemPrefix = "item"
	}
	if listPrefix == "" {
		listPrefix = "cl"
	}
	return &uuidIDGenerator{itemPrefix: itemPrefix, listPrefix: listPrefix}
}

func (g *uuidIDGenerator) NewItemID() string {
	return fmt.Sprintf("%s-%s", g.itemPrefix, uuid.NewString())
}

func (g *uuidIDGenerator) NewChecklistID() string {
	// Checklist IDs are typed on the command line, so keep them short.
	return fmt.Sprintf("%s-%s", g.listPrefix, uuid.NewString()[:8])
}
