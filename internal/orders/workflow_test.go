package orders

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/galley-erp/galley-erp/internal/identity"
)

func TestCanTransitionLegalEdges(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		role identity.Role
	}{
		{StatusNotAssigned, StatusAssigned, identity.RoleAdmin},
		{StatusAssigned, StatusPendingReview, identity.RoleStaff},
		{StatusAssigned, StatusPendingReview, identity.RoleAdmin},
		{StatusPendingReview, StatusVerified, identity.RoleAdmin},
		{StatusVerified, StatusPaid, identity.RoleAdmin},
		{StatusNotAssigned, StatusCanceled, identity.RoleAdmin},
		{StatusAssigned, StatusCanceled, identity.RoleAdmin},
		{StatusPendingReview, StatusCanceled, identity.RoleAdmin},
	}
	for _, tc := range cases {
		require.NoError(t, CanTransition(tc.from, tc.to, tc.role),
			"%s -> %s as %s", tc.from, tc.to, tc.role)
	}
}

func TestCanTransitionIllegalEdges(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
	}{
		{StatusNotAssigned, StatusPendingReview},
		{StatusNotAssigned, StatusVerified},
		{StatusAssigned, StatusVerified},
		{StatusAssigned, StatusPaid},
		{StatusPendingReview, StatusPaid},
		{StatusVerified, StatusCanceled},
		{StatusPaid, StatusCanceled},
		{StatusPaid, StatusVerified},
		{StatusCanceled, StatusAssigned},
		{StatusVerified, StatusPendingReview},
	}
	for _, tc := range cases {
		err := CanTransition(tc.from, tc.to, identity.RoleAdmin)
		require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionRepeatedStatusRejected(t *testing.T) {
	for _, s := range []Status{StatusNotAssigned, StatusAssigned, StatusPendingReview, StatusVerified, StatusPaid, StatusCanceled} {
		require.ErrorIs(t, CanTransition(s, s, identity.RoleAdmin), ErrInvalidTransition)
	}
}

func TestCanTransitionRoleChecks(t *testing.T) {
	require.ErrorIs(t, CanTransition(StatusNotAssigned, StatusAssigned, identity.RoleStaff), ErrForbidden)
	require.ErrorIs(t, CanTransition(StatusPendingReview, StatusVerified, identity.RoleStaff), ErrForbidden)
	require.ErrorIs(t, CanTransition(StatusVerified, StatusPaid, identity.RoleStaff), ErrForbidden)
	require.ErrorIs(t, CanTransition(StatusAssigned, StatusCanceled, identity.RoleStaff), ErrForbidden)
}

func TestStatusHelpers(t *testing.T) {
	require.True(t, StatusPaid.Terminal())
	require.True(t, StatusCanceled.Terminal())
	require.False(t, StatusVerified.Terminal())
	require.True(t, StatusPendingReview.Valid())
	require.False(t, Status("shipped").Valid())
}
