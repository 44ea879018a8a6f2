// Package middleware holds the fiber middleware for inkwell's routes.
package middleware

import (
	"errors"
	"strings"

	"log/slog"

	"github.com/gofiber/fiber/v2"

	"inkwell/internal/identity"
	"inkwell/internal/users"
)

// SessionLocalKey is the ctx.Locals key under which RequireRole stores the
// resolved session.
const SessionLocalKey = "session"

const sessionCookieName = "__session"

// RequireRole resolves the request's session through the identity provider
// and enforces role membership. No session yields 401, a session with an
// insufficient role 403; handler logic never runs for either.
func RequireRole(provider identity.Provider, logger *slog.Logger, roles ...users.Role) fiber.Handler {
	allowed := make(map[users.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *fiber.Ctx) error {
		token := sessionToken(c)

		session, err := provider.CurrentSession(c.Context(), token)
		if errors.Is(err, identity.ErrNoSession) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "Unauthorized",
				"message": "No active session",
			})
		}
		if err != nil {
			logger.Error("Session lookup failed", slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		if len(allowed) > 0 && !allowed[session.Role] {
			logger.Debug("Role denied",
				slog.String("clerkId", session.ClerkID),
				slog.String("role", string(session.Role)))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "Forbidden",
				"message": "Insufficient role",
			})
		}

		c.Locals(SessionLocalKey, session)
		return c.Next()
	}
}

// SessionFromCtx returns the session stored by RequireRole, or nil.
func SessionFromCtx(c *fiber.Ctx) *identity.Session {
	session, _ := c.Locals(SessionLocalKey).(*identity.Session)
	return session
}

// sessionToken reads the session token from the session cookie or a bearer
// Authorization header.
func sessionToken(c *fiber.Ctx) string {
	if cookie := c.Cookies(sessionCookieName); cookie != "" {
		return cookie
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
