// Package models contains domain entities and business models for the CRM
package models

import "github.com/google/uuid"

// Role is the access tier of a user
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeamLeader Role = "teamLeader"
	RoleBroker     Role = "broker"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeamLeader, RoleBroker:
		return true
	}
	return false
}

// CanOwnLeads reports whether a user with this role may be a lead's broker
func (r Role) CanOwnLeads() bool {
	return r == RoleBroker || r == RoleTeamLeader
}

// Actor is the authenticated caller of an operation
type Actor struct {
	ID     uuid.UUID
	Role   Role
	TeamID *uuid.UUID
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
