// Package policy enforces the role-based access rules for admin mutations.
// Every guard is a pure predicate over the acting user, the target, and
// the requested change -- no state machine, no I/O.
package policy

import (
	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/identity"
)

// RequireAdmin fails unless the acting user holds the admin role.
func RequireAdmin(actor *identity.User) *apperror.AppError {
	if actor == nil || !actor.IsAdmin() {
		return apperror.NewForbidden("administrator access required")
	}
	return nil
}

// ForbidSelfDemotion fails when an admin tries to change their own role to
// anything below admin. Demoting the account you're acting from would
// strand the change half-applied from the actor's own point of view; the
// rule is absolute, even when other admins exist.
func ForbidSelfDemotion(actor *identity.User, targetID string, newRole identity.Role) *apperror.AppError {
	if actor != nil && actor.ID == targetID && newRole != identity.RoleAdmin {
		return apperror.NewBadRequest("you cannot remove your own administrator role")
	}
	return nil
}

// ForbidSelfDeletion fails when a user tries to delete their own account
// through the admin surface.
func ForbidSelfDeletion(actor *identity.User, targetID string) *apperror.AppError {
	if actor != nil && actor.ID == targetID {
		return apperror.NewBadRequest("you cannot delete your own account")
	}
	return nil
}
