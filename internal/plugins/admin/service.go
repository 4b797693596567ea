// Package admin provides the user administration surface: listing,
// creating, inspecting, updating, and deleting accounts. Every route
// requires an authenticated admin; the self-protection guards in
// internal/policy gate the mutations.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/credential"
	"github.com/lorekeep/lorekeep/internal/identity"
	"github.com/lorekeep/lorekeep/internal/policy"
	"github.com/lorekeep/lorekeep/internal/sanitize"
)

// CreateUserInput is the admin-supplied data for a new account. Unlike
// self-registration, the role is settable.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Role        identity.Role
}

// UpdateUserInput carries the fields an admin may change. Nil pointers
// leave the stored value untouched; the service rewrites the full record.
type UpdateUserInput struct {
	Email          *string
	DisplayName    *string
	Bio            *string
	AvatarRef      *string
	Role           *identity.Role
	EmailConfirmed *bool
}

// AdminService defines the business logic contract for user administration.
type AdminService interface {
	ListUsers(ctx context.Context) ([]identity.User, int, error)
	CreateUser(ctx context.Context, actor *identity.User, input CreateUserInput) (*identity.User, error)
	GetUser(ctx context.Context, id string) (*identity.User, error)
	UpdateUser(ctx context.Context, actor *identity.User, id string, input UpdateUserInput) (*identity.User, error)
	DeleteUser(ctx context.Context, actor *identity.User, id string) error
}

type adminService struct {
	users identity.Store
}

// NewAdminService creates the admin service over the user store.
func NewAdminService(users identity.Store) AdminService {
	return &adminService{users: users}
}

// ListUsers returns all users plus the approximate total. The listing is a
// point-in-time snapshot; the count is maintained separately and may
// disagree with the listing under concurrent writes.
func (s *adminService) ListUsers(ctx context.Context) ([]identity.User, int, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CreateUser creates an account with an admin-chosen role. Format rules
// are the same as self-registration; the abuse heuristics don't apply to
// an authenticated admin.
func (s *adminService) CreateUser(ctx context.Context, actor *identity.User, input CreateUserInput) (*identity.User, error) {
	if v := credential.ValidateUsername(input.Username); v != nil {
		return nil, apperror.NewValidation(v.Field, v.Reason)
	}
	if v := credential.ValidateEmail(input.Email); v != nil {
		return nil, apperror.NewValidation(v.Field, v.Reason)
	}
	if v := credential.ValidatePassword(input.Password); v != nil {
		return nil, apperror.NewValidation(v.Field, v.Reason)
	}
	if !input.Role.Valid() {
		return nil, apperror.NewValidation("role", "unknown role")
	}

	hash, err := credential.HashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	displayName := sanitize.Text(input.DisplayName)
	if displayName == "" {
		displayName = input.Username
	}

	user := &identity.User{
		ID:           input.Username,
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    time.Now().UTC(),
	}
	user.SetRole(input.Role)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("admin created user",
		slog.String("actor", actor.ID),
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// GetUser fetches one account by id.
func (s *adminService) GetUser(ctx context.Context, id string) (*identity.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateUser applies the requested changes and rewrites the record. Role
// changes pass the self-demotion guard and always update role and access
// level together.
func (s *adminService) UpdateUser(ctx context.Context, actor *identity.User, id string, input UpdateUserInput) (*identity.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperror.NewValidation("role", "unknown role")
		}
		if guardErr := policy.ForbidSelfDemotion(actor, id, *input.Role); guardErr != nil {
			return nil, guardErr
		}
		user.SetRole(*input.Role)
	}

	if input.Email != nil {
		newEmail := strings.ToLower(strings.TrimSpace(*input.Email))
		if v := credential.ValidateEmail(newEmail); v != nil {
			return nil, apperror.NewValidation(v.Field, v.Reason)
		}
		if newEmail != user.Email {
			// The email index is last-write-wins; an unchecked write here
			// would silently steal another account's index entry.
			if other, err := s.users.GetByEmail(ctx, newEmail); err == nil && other.ID != id {
				return nil, apperror.NewConflict("an account with this email already exists")
			} else if err != nil && apperror.SafeCode(err) != 404 {
				return nil, err
			}
			user.Email = newEmail
			user.EmailConfirmed = false
		}
	}

	if input.DisplayName != nil {
		name := sanitize.Text(*input.DisplayName)
		if name == "" {
			return nil, apperror.NewValidation("display_name", "display name cannot be empty")
		}
		user.DisplayName = name
	}
	if input.Bio != nil {
		user.Bio = sanitize.Text(*input.Bio)
	}
	if input.AvatarRef != nil {
		user.AvatarRef = *input.AvatarRef
	}
	if input.EmailConfirmed != nil {
		user.EmailConfirmed = *input.EmailConfirmed
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("admin updated user",
		slog.String("actor", actor.ID),
		slog.String("user_id", id),
	)
	return user, nil
}

// DeleteUser removes an account after the self-deletion guard.
func (s *adminService) DeleteUser(ctx context.Context, actor *identity.User, id string) error {
	if guardErr := policy.ForbidSelfDeletion(actor, id); guardErr != nil {
		return guardErr
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("admin deleted user",
		slog.String("actor", actor.ID),
		slog.String("user_id", id),
	)
	return nil
}
