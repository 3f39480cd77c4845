// Package policy holds the pure role-authorization rules. Decisions have no
// side effects; all mutation happens in the service layer after a decision.
package policy

import (
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/pkg/util"
)

// Operation names an action a caller may attempt.
type Operation string

const (
	OpCreateRequest   Operation = "create_request"
	OpReadRequest     Operation = "read_request"
	OpListRequests    Operation = "list_requests"
	OpListAllRequests Operation = "list_all_requests"
	OpUpdateStatus    Operation = "update_status"
	OpDeleteRequest   Operation = "delete_request"
	OpListUsers       Operation = "list_users"
	OpChangeRole      Operation = "change_role"
	OpViewStats       Operation = "view_stats"
)

// Target carries whichever record the operation acts on. Nil fields mean the
// operation has no specific target (e.g. listing).
type Target struct {
	Request *domain.MaintenanceRequest
	User    *domain.User
}

// RequestTarget wraps a maintenance request.
func RequestTarget(req *domain.MaintenanceRequest) Target {
	return Target{Request: req}
}

// UserTarget wraps a user record.
func UserTarget(u *domain.User) Target {
	return Target{User: u}
}

// Authorize decides whether actor may perform op on target. A nil actor is an
// unauthenticated caller. Returns nil on allow, a FORBIDDEN DomainError with
// a reason code on deny.
func Authorize(actor *domain.User, op Operation, target Target) error {
	// Anonymous callers may submit requests and nothing else.
	if actor == nil {
		if op == OpCreateRequest {
			return nil
		}
		return util.NewForbidden(util.ReasonAuthRequired, "authentication required")
	}

	switch op {
	case OpCreateRequest:
		return nil

	case OpReadRequest, OpDeleteRequest:
		if actor.AdminTier() {
			return nil
		}
		if target.Request != nil && target.Request.OwnedBy(actor.ID) {
			return nil
		}
		return util.NewForbidden(util.ReasonOwnerOnly, "not the owner of this request")

	case OpListRequests:
		// Everyone may list; the query layer narrows a user's scope to
		// their own records.
		return nil

	case OpUpdateStatus, OpListAllRequests, OpListUsers, OpViewStats:
		if actor.AdminTier() {
			return nil
		}
		return util.NewForbidden(util.ReasonAdminOnly, "admin role required")

	case OpChangeRole:
		return authorizeRoleChange(actor, target.User)
	}

	return util.NewForbidden(util.ReasonAdminOnly, "unknown operation")
}

// authorizeRoleChange enforces the tier-4/5 rules: only a super_admin may
// change roles, never on a super_admin target and never on themselves. The
// self and protected-role denials are distinct named conditions so clients
// can render specific messages.
func authorizeRoleChange(actor, target *domain.User) error {
	if actor.Role != domain.RoleSuperAdmin {
		return util.NewForbidden(util.ReasonSuperAdminOnly, "super admin role required")
	}
	if target == nil {
		return util.NewForbidden(util.ReasonSuperAdminOnly, "role change requires a target user")
	}
	if target.ID == actor.ID {
		return util.NewForbidden(util.ReasonSelfRoleChange, "cannot change your own role")
	}
	if target.Role == domain.RoleSuperAdmin {
		return util.NewForbidden(util.ReasonProtectedRole, "super admin role is protected")
	}
	return nil
}

// CanViewRequest is the read-scope check used by the query service when
// deciding between a record and deny-as-not-found.
func CanViewRequest(actor *domain.User, req *domain.MaintenanceRequest) bool {
	return Authorize(actor, OpReadRequest, RequestTarget(req)) == nil
}
