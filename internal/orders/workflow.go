package orders

import (
	"fmt"

	"github.com/galley-erp/galley-erp/internal/identity"
)

type transition struct {
	from Status
	to   Status
}

// transitions maps each legal edge to the roles allowed to take it.
// Staff may only submit their assigned orders for review; that ownership
// check lives in the service, on top of the role check here.
var transitions = map[transition][]identity.Role{
	{StatusNotAssigned, StatusAssigned}:   {identity.RoleAdmin},
	{StatusAssigned, StatusPendingReview}: {identity.RoleAdmin, identity.RoleStaff},
	{StatusPendingReview, StatusVerified}: {identity.RoleAdmin},
	{StatusVerified, StatusPaid}:          {identity.RoleAdmin},
	{StatusNotAssigned, StatusCanceled}:   {identity.RoleAdmin},
	{StatusAssigned, StatusCanceled}:      {identity.RoleAdmin},
	{StatusPendingReview, StatusCanceled}: {identity.RoleAdmin},
}

// CanTransition checks that from→to is a legal edge and that role may
// take it. Repeating the current status is rejected like any other
// illegal edge.
func CanTransition(from, to Status, role identity.Role) error {
	roles, ok := transitions[transition{from, to}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s cannot move %s -> %s", ErrForbidden, role, from, to)
}
