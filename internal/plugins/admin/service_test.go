package admin

import (
	"context"
	"testing"
	"time"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/identity"
	"github.com/lorekeep/lorekeep/internal/kv"
)

func newTestService(t *testing.T) (AdminService, identity.Store, *identity.User) {
	t.Helper()

	users := identity.NewStore(kv.NewMemory())

	actor := &identity.User{
		ID:        "root",
		Email:     "root@example.com",
		CreatedAt: time.Now().UTC(),
	}
	actor.SetRole(identity.RoleAdmin)
	if err := users.Create(context.Background(), actor); err != nil {
		t.Fatalf("seeding admin: %v", err)
	}

	return NewAdminService(users), users, actor
}

func TestCreateUser_WithRole(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	user, err := svc.CreateUser(ctx, actor, CreateUserInput{
		Username: "scribe",
		Email:    "scribe@example.com",
		Password: "quillandink1",
		Role:     identity.RoleEditor,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Role != identity.RoleEditor {
		t.Errorf("expected editor, got %s", user.Role)
	}
	if user.AccessLevel != 5 {
		t.Errorf("expected access level 5, got %d", user.AccessLevel)
	}
}

func TestCreateUser_UnknownRole(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	_, err := svc.CreateUser(ctx, actor, CreateUserInput{
		Username: "scribe",
		Email:    "scribe@example.com",
		Password: "quillandink1",
		Role:     identity.Role("superuser"),
	})
	if apperror.SafeCode(err) != 400 {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	_, err := svc.CreateUser(ctx, actor, CreateUserInput{
		Username: "scribe",
		Email:    "root@example.com",
		Password: "quillandink1",
		Role:     identity.RoleViewer,
	})
	if apperror.SafeCode(err) != 409 {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestCreateUser_InvalidFormats(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	tests := []struct {
		name  string
		input CreateUserInput
	}{
		{"short username", CreateUserInput{Username: "ab", Email: "a@b.com", Password: "password1", Role: identity.RoleViewer}},
		{"bad email", CreateUserInput{Username: "scribe", Email: "nope", Password: "password1", Role: identity.RoleViewer}},
		{"weak password", CreateUserInput{Username: "scribe", Email: "a@b.com", Password: "12345678", Role: identity.RoleViewer}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateUser(ctx, actor, tt.input); apperror.SafeCode(err) != 400 {
				t.Errorf("expected 400, got %v", err)
			}
		})
	}
}

func TestUpdateUser_RoleChangeUpdatesAccessLevel(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	if _, err := svc.CreateUser(ctx, actor, CreateUserInput{
		Username: "scribe", Email: "scribe@example.com", Password: "quillandink1", Role: identity.RoleViewer,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	role := identity.RoleContributor
	user, err := svc.UpdateUser(ctx, actor, "scribe", UpdateUserInput{Role: &role})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Role != identity.RoleContributor || user.AccessLevel != 3 {
		t.Errorf("expected contributor/3, got %s/%d", user.Role, user.AccessLevel)
	}
}

func TestUpdateUser_SelfDemotionBlocked(t *testing.T) {
	ctx := context.Background()
	svc, users, actor := newTestService(t)

	role := identity.RoleEditor
	_, err := svc.UpdateUser(ctx, actor, "root", UpdateUserInput{Role: &role})
	if apperror.SafeCode(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}

	stored, err := users.GetByID(ctx, "root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Role != identity.RoleAdmin {
		t.Errorf("expected role unchanged, got %s", stored.Role)
	}
}

func TestUpdateUser_SelfStayingAdminAllowed(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	role := identity.RoleAdmin
	if _, err := svc.UpdateUser(ctx, actor, "root", UpdateUserInput{Role: &role}); err != nil {
		t.Errorf("expected no-op role update to pass, got %v", err)
	}
}

func TestUpdateUser_EmailChangeConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	if _, err := svc.CreateUser(ctx, actor, CreateUserInput{
		Username: "scribe", Email: "scribe@example.com", Password: "quillandink1", Role: identity.RoleViewer,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	taken := "root@example.com"
	_, err := svc.UpdateUser(ctx, actor, "scribe", UpdateUserInput{Email: &taken})
	if apperror.SafeCode(err) != 409 {
		t.Errorf("expected 409 for taken email, got %v", err)
	}
}

func TestUpdateUser_EmailChangeResetsConfirmation(t *testing.T) {
	ctx := context.Background()
	svc, users, actor := newTestService(t)

	if _, err := svc.CreateUser(ctx, actor, CreateUserInput{
		Username: "scribe", Email: "scribe@example.com", Password: "quillandink1", Role: identity.RoleViewer,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	confirmed := true
	if _, err := svc.UpdateUser(ctx, actor, "scribe", UpdateUserInput{EmailConfirmed: &confirmed}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fresh := "fresh@example.com"
	user, err := svc.UpdateUser(ctx, actor, "scribe", UpdateUserInput{Email: &fresh})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.EmailConfirmed {
		t.Error("expected confirmation reset after email change")
	}

	if _, err := users.GetByEmail(ctx, "fresh@example.com"); err != nil {
		t.Errorf("expected index moved to new email, got %v", err)
	}
}

func TestUpdateUser_EmptyDisplayNameRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	if _, err := svc.CreateUser(ctx, actor, CreateUserInput{
		Username: "scribe", Email: "scribe@example.com", Password: "quillandink1", Role: identity.RoleViewer,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// All-markup input sanitizes to nothing.
	empty := "<script>x</script>"
	_, err := svc.UpdateUser(ctx, actor, "scribe", UpdateUserInput{DisplayName: &empty})
	if apperror.SafeCode(err) != 400 {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc, users, actor := newTestService(t)

	if _, err := svc.CreateUser(ctx, actor, CreateUserInput{
		Username: "scribe", Email: "scribe@example.com", Password: "quillandink1", Role: identity.RoleViewer,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteUser(ctx, actor, "scribe"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := users.GetByID(ctx, "scribe"); apperror.SafeCode(err) != 404 {
		t.Errorf("expected 404 after delete, got %v", err)
	}
}

func TestDeleteUser_SelfDeletionBlocked(t *testing.T) {
	ctx := context.Background()
	svc, users, actor := newTestService(t)

	if err := svc.DeleteUser(ctx, actor, "root"); apperror.SafeCode(err) != 400 {
		t.Fatalf("expected 400, got %v", err)
	}
	if _, err := users.GetByID(ctx, "root"); err != nil {
		t.Errorf("expected account to survive, got %v", err)
	}
}

func TestDeleteUser_Unknown(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	if err := svc.DeleteUser(ctx, actor, "ghost"); apperror.SafeCode(err) != 404 {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newTestService(t)

	for _, name := range []string{"scribe", "reader"} {
		if _, err := svc.CreateUser(ctx, actor, CreateUserInput{
			Username: name, Email: name + "@example.com", Password: "quillandink1", Role: identity.RoleViewer,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	users, total, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("expected 3 users, got %d", len(users))
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
}
