package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"inkwell/internal/users"
)

// Identity webhook event types.
const (
	eventUserCreated = "user.created"
	eventUserUpdated = "user.updated"
	eventUserDeleted = "user.deleted"
)

type identityWebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"data"`
}

// IdentityWebhookAction syncs identity-provider events into the local user
// table. Delivery is upstream-verified, so the payload is trusted here;
// events may replay, so creates are upserts and deletes are idempotent.
func (h *Handlers) IdentityWebhookAction(c *fiber.Ctx) error {
	var event identityWebhookEvent
	if err := c.BodyParser(&event); err != nil {
		return validationError(c, "malformed webhook payload")
	}
	if event.Data.ID == "" {
		return validationError(c, "webhook event missing user id")
	}

	switch event.Type {
	case eventUserCreated, eventUserUpdated:
		role := users.Role(event.Data.Role)
		if !users.ValidRole(role) {
			role = users.RoleUser
		}
		user := &users.User{
			ClerkID: event.Data.ID,
			Email:   event.Data.Email,
			Role:    role,
		}
		if err := users.Upsert(h.logger, h.db(), user); err != nil {
			return h.internalError(c, err, "Error syncing webhook user")
		}
		h.logger.Info("Synced identity webhook",
			slog.String("type", event.Type),
			slog.String("clerkId", event.Data.ID))

	case eventUserDeleted:
		found, err := users.DeleteByClerkID(h.logger, h.db(), event.Data.ID)
		if err != nil {
			return h.internalError(c, err, "Error deleting webhook user")
		}
		if !found {
			h.logger.Warn("Webhook deletion for unknown user",
				slog.String("clerkId", event.Data.ID))
		}

	default:
		h.logger.Debug("Ignoring unhandled webhook event",
			slog.String("type", event.Type))
	}

	return c.JSON(fiber.Map{"received": true})
}
