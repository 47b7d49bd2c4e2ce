package access

import (
	"errors"
	"fmt"

	"travel-insight/config"
)

// Role codes carried in the JWT and in users.yaml.
const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleStaff    = "STAFF"
	RoleAgent    = "AGENT"
	RoleCustomer = "CUSTOMER"
)

// ErrDenied is returned when no lawful row scope exists for the caller. The
// engine maps it to its AccessDenied error kind.
var ErrDenied = errors.New("access denied")

// Caller identifies the authenticated requester. It is supplied by the auth
// layer and never mutated by the engine.
type Caller struct {
	ID   string
	Role string
	Name string
}

// Predicate is an extra WHERE condition ANDed into every query built for the
// caller. A nil predicate means unrestricted visibility.
type Predicate struct {
	Expr string
	Args []any
}

// PredicateFor is the single chokepoint for row-level visibility. Rules:
// admin and manager roles see everything; staff and agent roles are scoped to
// rows assigned to them (falling back to customer ownership on tables without
// an assignment column); customer roles are scoped strictly to their own rows.
// Any other role is denied outright, as is a restricted role on a table that
// carries no ownership column at all.
func PredicateFor(caller Caller, schema config.ReportSchema) (*Predicate, error) {
	switch caller.Role {
	case RoleAdmin, RoleManager:
		return nil, nil

	case RoleStaff, RoleAgent:
		if schema.AgentColumn != "" {
			agentCol, _ := schema.ColumnSQL(schema.AgentColumn)
			if schema.CustomerColumn != "" {
				custCol, _ := schema.ColumnSQL(schema.CustomerColumn)
				return &Predicate{
					Expr: fmt.Sprintf("(%s = ? OR %s = ?)", agentCol, custCol),
					Args: []any{caller.ID, caller.ID},
				}, nil
			}
			return &Predicate{Expr: agentCol + " = ?", Args: []any{caller.ID}}, nil
		}
		if schema.CustomerColumn != "" {
			custCol, _ := schema.ColumnSQL(schema.CustomerColumn)
			return &Predicate{Expr: custCol + " = ?", Args: []any{caller.ID}}, nil
		}
		return nil, fmt.Errorf("%w: no ownership column on %s for role %s", ErrDenied, schema.Table, caller.Role)

	case RoleCustomer:
		if schema.CustomerColumn != "" {
			custCol, _ := schema.ColumnSQL(schema.CustomerColumn)
			return &Predicate{Expr: custCol + " = ?", Args: []any{caller.ID}}, nil
		}
		return nil, fmt.Errorf("%w: no customer ownership column on %s", ErrDenied, schema.Table)
	}

	// Unrecognized roles are denied, never silently granted full visibility.
	return nil, fmt.Errorf("%w: unrecognized role %q", ErrDenied, caller.Role)
}

// Privileged reports whether the role may use reserved columns and
// administrative endpoints.
func Privileged(role string) bool {
	return role == RoleAdmin || role == RoleManager
}
