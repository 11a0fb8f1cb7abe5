package engine

import (
	"leasing_crm_backend/internal/party/domain"
)

// Capability declares where a definition's create phase is allowed to run.
// Complete and cancel phases are never gated by it, so archived or closed
// parties can still settle their existing tasks.
type Capability struct {
	// AllowedOnCorporate permits task creation on CORPORATE lease parties.
	AllowedOnCorporate bool

	// Workflows restricts creation to specific workflow names. A nil map
	// means every workflow qualifies.
	Workflows map[domain.WorkflowName]bool

	// AllowedOnArchived permits creation while the workflow is ARCHIVED.
	AllowedOnArchived bool

	// RoleRestricted marks definitions whose tasks are only actionable by
	// role-qualified users. The registry partitions on this flag.
	RoleRestricted bool
}

// AllowsCreate reports whether the create phase may run for the party.
func (c Capability) AllowsCreate(p domain.Party) bool {
	if p.IsCorporate() && !c.AllowedOnCorporate {
		return false
	}
	if p.IsArchived() && !c.AllowedOnArchived {
		return false
	}
	if c.Workflows != nil && !c.Workflows[p.WorkflowName] {
		return false
	}
	return true
}
