package services

import (
	"errors"

	"github.com/charmbracelet/log"

	"kinkeeper/models"
	"kinkeeper/store"
)

// OrphanCleanup repairs interactions whose contact reference dangles: the
// contact was deleted independently (possibly on another device, arriving
// via realtime sync after the interaction's own sync). Run once per
// session, after the initial pull has landed.
type OrphanCleanup struct {
	contacts     *store.Collection[models.Contact]
	interactions *store.Collection[models.Interaction]
	svc          *InteractionService
	logger       *log.Logger
}

func NewOrphanCleanup(contacts *store.Collection[models.Contact], interactions *store.Collection[models.Interaction], svc *InteractionService, logger *log.Logger) *OrphanCleanup {
	return &OrphanCleanup{
		contacts:     contacts,
		interactions: interactions,
		svc:          svc,
		logger:       logger,
	}
}

// Run scans every locally known interaction and clears references to
// missing or tombstoned contacts. The correction goes through the normal
// accessor path so it also reaches the backend and other devices. Returns
// the number of repaired interactions.
func (c *OrphanCleanup) Run() int {
	repaired := 0
	for id, interaction := range c.interactions.GetAll() {
		if interaction.Deleted || interaction.ContactID == nil {
			continue
		}

		contact, ok := c.contacts.Get(*interaction.ContactID)
		if ok && !contact.Deleted {
			continue
		}

		if _, err := c.svc.Unassign(id); err != nil {
			if !errors.Is(err, ErrNotFound) {
				c.logger.Error("failed to repair orphaned interaction", "id", id, "err", err)
			}
			continue
		}
		repaired++
	}

	if repaired > 0 {
		c.logger.Info("orphan cleanup repaired dangling references", "count", repaired)
	}
	return repaired
}
