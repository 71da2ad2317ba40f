package repository

import (
	"github.com/imobflow/crm-api/models"
	"gorm.io/gorm"
)

// leadOwnership returns the predicate over leads.broker_id that an actor may see.
// ok is false for admins, who see everything.
func leadOwnership(actor models.Actor) (clause string, args []any, ok bool) {
	switch actor.Role {
	case models.RoleAdmin:
		return "", nil, false
	case models.RoleBroker:
		return "leads.broker_id = ?", []any{actor.ID}, true
	case models.RoleTeamLeader:
		if actor.TeamID == nil {
			return "leads.broker_id = ?", []any{actor.ID}, true
		}
		return "(leads.broker_id = ? OR leads.broker_id IN (SELECT users.id FROM users WHERE users.team_id = ?))",
			[]any{actor.ID, *actor.TeamID}, true
	default:
		return "1 = 0", nil, true
	}
}

// LeadVisibility restricts a query over leads to the rows the actor may see or mutate
func LeadVisibility(actor models.Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		clause, args, ok := leadOwnership(actor)
		if !ok {
			return db
		}
		return db.Where(clause, args...)
	}
}

// BusinessVisibility restricts a query over business to rows whose lead the actor may see
func BusinessVisibility(actor models.Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		clause, args, ok := leadOwnership(actor)
		if !ok {
			return db
		}
		return db.Where("business.lead_id IN (SELECT leads.id FROM leads WHERE "+clause+")", args...)
	}
}
