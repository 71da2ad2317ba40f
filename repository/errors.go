package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the flows care about
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgRaiseException      = "P0001"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports a unique constraint failure, optionally on a named constraint
func IsUniqueViolation(err error, constraint ...string) bool {
	pgErr, ok := pgError(err)
	if !ok || pgErr.Code != pgUniqueViolation {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}

// IsForeignKeyViolation reports a missing referenced row
func IsForeignKeyViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == pgForeignKeyViolation
}

// IsRaisedException reports an exception raised by a trigger whose message contains fragment
func IsRaisedException(err error, fragment string) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == pgRaiseException && strings.Contains(pgErr.Message, fragment)
}

// Trigger messages raised by the schema
const (
	TriggerTeamLeaderRole = "Team leader must have teamLeader role"
	TriggerLeadBrokerRole = "Lead must be assigned to a broker"
)
