package http

import (
	"errors"
	"strconv"

	"log/slog"

	"github.com/gofiber/fiber/v2"

	"inkwell/internal/identity"
	"inkwell/internal/users"
)

// UsersIndexAction lists all local user records.
func (h *Handlers) UsersIndexAction(c *fiber.Ctx) error {
	result, err := users.List(h.db())
	if err != nil {
		return h.internalError(c, err, "Error listing users")
	}
	return c.JSON(fiber.Map{"users": result})
}

type createUserParams struct {
	Email string     `json:"email"`
	Role  users.Role `json:"role"`
}

// UserCreateAction provisions a user through the signup saga: identity
// first, local record second, compensating identity delete on failure.
func (h *Handlers) UserCreateAction(c *fiber.Ctx) error {
	var params createUserParams
	if err := c.BodyParser(&params); err != nil {
		return validationError(c, "malformed request body")
	}
	if params.Email == "" {
		return validationError(c, "email is required")
	}
	if params.Role == "" {
		params.Role = users.RoleUser
	}
	if !users.ValidRole(params.Role) {
		return validationError(c, "role must be one of USER, AUTHOR, ADMIN")
	}

	user, err := identity.SignupUser(c.Context(), h.provider, h.logger, h.db(), params.Email, params.Role)
	if err != nil {
		return h.internalError(c, err, "Error creating user")
	}

	h.logger.Info("User created",
		slog.String("clerkId", user.ClerkID),
		slog.String("role", string(user.Role)))
	return c.Status(fiber.StatusCreated).JSON(user)
}

type updateRoleParams struct {
	Role users.Role `json:"role"`
}

// UserRoleUpdateAction changes a user's role locally and in the identity
// provider's metadata.
func (h *Handlers) UserRoleUpdateAction(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return validationError(c, "user id must be numeric")
	}

	var params updateRoleParams
	if err := c.BodyParser(&params); err != nil {
		return validationError(c, "malformed request body")
	}
	if !users.ValidRole(params.Role) {
		return validationError(c, "role must be one of USER, AUTHOR, ADMIN")
	}

	user, err := users.FindByID(h.db(), uint(id))
	if errors.Is(err, users.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not found",
			"message": "No user with that id",
		})
	}
	if err != nil {
		return h.internalError(c, err, "Error loading user")
	}

	if err := h.provider.UpdateRole(c.Context(), user.ClerkID, params.Role); err != nil {
		return h.internalError(c, err, "Error updating identity role metadata")
	}
	if err := users.UpdateRole(h.logger, h.db(), user.ID, params.Role); err != nil {
		return h.internalError(c, err, "Error updating user role")
	}

	h.logger.Info("User role updated",
		slog.String("clerkId", user.ClerkID),
		slog.String("role", string(params.Role)))
	return c.JSON(fiber.Map{"status": "ok"})
}

// UserDeleteAction removes a user locally and at the identity provider.
// Identity failures soft-fail into the deletion audit table.
func (h *Handlers) UserDeleteAction(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return validationError(c, "user id must be numeric")
	}

	user, err := users.FindByID(h.db(), uint(id))
	if errors.Is(err, users.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not found",
			"message": "No user with that id",
		})
	}
	if err != nil {
		return h.internalError(c, err, "Error loading user")
	}

	if err := identity.RemoveUser(c.Context(), h.provider, h.logger, h.db(), user); err != nil {
		return h.internalError(c, err, "Error deleting user")
	}

	h.logger.Info("User deleted", slog.String("clerkId", user.ClerkID))
	return c.JSON(fiber.Map{"status": "ok"})
}
