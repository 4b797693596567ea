package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/identity"
	"github.com/lorekeep/lorekeep/internal/plugins/auth"
	"github.com/lorekeep/lorekeep/internal/policy"
)

// Handler handles admin user-management HTTP requests.
type Handler struct {
	service AdminService
}

// NewHandler creates a new admin handler with the given service.
func NewHandler(service AdminService) *Handler {
	return &Handler{service: service}
}

// createUserRequest is the payload for POST /admin/users/create.
type createUserRequest struct {
	Username    string `json:"username" form:"username"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	DisplayName string `json:"display_name" form:"display_name"`
	Role        string `json:"role" form:"role"`
}

// updateUserRequest is the payload for PUT /admin/users/:id. Absent fields
// leave the stored value untouched.
type updateUserRequest struct {
	Email          *string `json:"email"`
	DisplayName    *string `json:"display_name"`
	Bio            *string `json:"bio"`
	AvatarRef      *string `json:"avatar_ref"`
	Role           *string `json:"role"`
	EmailConfirmed *bool   `json:"email_confirmed"`
}

// List returns all users (GET /admin/users/list).
func (h *Handler) List(c echo.Context) error {
	users, total, err := h.service.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"users": users,
		"total": total,
	})
}

// Create creates a user with an admin-chosen role (POST /admin/users/create).
func (h *Handler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	role := identity.Role(req.Role)
	if req.Role == "" {
		role = identity.RoleViewer
	}

	user, err := h.service.CreateUser(c.Request().Context(), auth.GetUser(c), CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"user": user})
}

// Get returns one user (GET /admin/users/:id).
func (h *Handler) Get(c echo.Context) error {
	user, err := h.service.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"user": user})
}

// Update rewrites a user record (PUT /admin/users/:id).
func (h *Handler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	input := UpdateUserInput{
		Email:          req.Email,
		DisplayName:    req.DisplayName,
		Bio:            req.Bio,
		AvatarRef:      req.AvatarRef,
		EmailConfirmed: req.EmailConfirmed,
	}
	if req.Role != nil {
		role := identity.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.service.UpdateUser(c.Request().Context(), auth.GetUser(c), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"user": user})
}

// Delete removes a user (DELETE /admin/users/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.DeleteUser(c.Request().Context(), auth.GetUser(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// RequireAdmin returns middleware gating a route group to admin users.
// Must run after auth.RequireAuth so the acting user is resolved.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := policy.RequireAdmin(auth.GetUser(c)); err != nil {
				return err
			}
			return next(c)
		}
	}
}
