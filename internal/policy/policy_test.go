package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/policy"
	"github.com/spec-kit/maintenance-service/pkg/util"
)

func user(id string, role domain.UserRole) *domain.User {
	return &domain.User{ID: id, Role: role}
}

func ownedRequest(ownerID string) *domain.MaintenanceRequest {
	return &domain.MaintenanceRequest{ID: "req-1", OwnerID: &ownerID}
}

func TestAnonymousMayOnlyCreate(t *testing.T) {
	assert.NoError(t, policy.Authorize(nil, policy.OpCreateRequest, policy.Target{}))

	for _, op := range []policy.Operation{
		policy.OpReadRequest, policy.OpListRequests, policy.OpUpdateStatus,
		policy.OpDeleteRequest, policy.OpListUsers, policy.OpChangeRole,
	} {
		err := policy.Authorize(nil, op, policy.Target{})
		require.Error(t, err, "op %s", op)
		assert.Equal(t, util.ReasonAuthRequired, util.ForbiddenReason(err))
	}
}

func TestUserScopedToOwnRecords(t *testing.T) {
	actor := user("u1", domain.RoleUser)

	assert.NoError(t, policy.Authorize(actor, policy.OpReadRequest, policy.RequestTarget(ownedRequest("u1"))))
	assert.NoError(t, policy.Authorize(actor, policy.OpDeleteRequest, policy.RequestTarget(ownedRequest("u1"))))

	err := policy.Authorize(actor, policy.OpReadRequest, policy.RequestTarget(ownedRequest("u2")))
	require.Error(t, err)
	assert.Equal(t, util.ReasonOwnerOnly, util.ForbiddenReason(err))

	err = policy.Authorize(actor, policy.OpDeleteRequest, policy.RequestTarget(ownedRequest("u2")))
	require.Error(t, err)

	// Anonymous records belong to nobody.
	err = policy.Authorize(actor, policy.OpReadRequest, policy.RequestTarget(&domain.MaintenanceRequest{ID: "req-2"}))
	require.Error(t, err)
}

func TestUserDeniedOperatorOperations(t *testing.T) {
	actor := user("u1", domain.RoleUser)

	for _, op := range []policy.Operation{policy.OpUpdateStatus, policy.OpListUsers, policy.OpViewStats} {
		err := policy.Authorize(actor, op, policy.Target{})
		require.Error(t, err, "op %s", op)
		assert.Equal(t, util.ReasonAdminOnly, util.ForbiddenReason(err))
	}

	err := policy.Authorize(actor, policy.OpChangeRole, policy.UserTarget(user("u2", domain.RoleUser)))
	require.Error(t, err)
	assert.Equal(t, util.ReasonSuperAdminOnly, util.ForbiddenReason(err))
}

func TestAdminGlobalReadAndStatusButNoRoleChange(t *testing.T) {
	actor := user("a1", domain.RoleAdmin)

	assert.NoError(t, policy.Authorize(actor, policy.OpReadRequest, policy.RequestTarget(ownedRequest("u2"))))
	assert.NoError(t, policy.Authorize(actor, policy.OpUpdateStatus, policy.RequestTarget(ownedRequest("u2"))))
	assert.NoError(t, policy.Authorize(actor, policy.OpDeleteRequest, policy.RequestTarget(ownedRequest("u2"))))
	assert.NoError(t, policy.Authorize(actor, policy.OpListUsers, policy.Target{}))

	err := policy.Authorize(actor, policy.OpChangeRole, policy.UserTarget(user("u2", domain.RoleUser)))
	require.Error(t, err)
	assert.Equal(t, util.ReasonSuperAdminOnly, util.ForbiddenReason(err))
}

func TestSuperAdminRoleChange(t *testing.T) {
	actor := user("sa1", domain.RoleSuperAdmin)

	assert.NoError(t, policy.Authorize(actor, policy.OpChangeRole, policy.UserTarget(user("u2", domain.RoleUser))))
	assert.NoError(t, policy.Authorize(actor, policy.OpChangeRole, policy.UserTarget(user("a1", domain.RoleAdmin))))
}

func TestSelfRoleChangeAlwaysDenied(t *testing.T) {
	actor := user("sa1", domain.RoleSuperAdmin)

	err := policy.Authorize(actor, policy.OpChangeRole, policy.UserTarget(user("sa1", domain.RoleSuperAdmin)))
	require.Error(t, err)
	assert.Equal(t, util.ReasonSelfRoleChange, util.ForbiddenReason(err))
}

func TestSuperAdminTargetIsProtected(t *testing.T) {
	actor := user("sa1", domain.RoleSuperAdmin)

	err := policy.Authorize(actor, policy.OpChangeRole, policy.UserTarget(user("sa2", domain.RoleSuperAdmin)))
	require.Error(t, err)
	assert.Equal(t, util.ReasonProtectedRole, util.ForbiddenReason(err))
}

func TestCanViewRequest(t *testing.T) {
	assert.True(t, policy.CanViewRequest(user("u1", domain.RoleUser), ownedRequest("u1")))
	assert.False(t, policy.CanViewRequest(user("u1", domain.RoleUser), ownedRequest("u2")))
	assert.True(t, policy.CanViewRequest(user("a1", domain.RoleAdmin), ownedRequest("u2")))
	assert.False(t, policy.CanViewRequest(nil, ownedRequest("u2")))
}
