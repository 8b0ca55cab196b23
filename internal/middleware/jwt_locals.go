package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/utils"
)

// AttachJWTLocals turns the verified claims into typed locals: "userId" holds
// a uuid.UUID and "role" a models.Role.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*utils.Claims)
		if !ok || claims == nil {
			return apperr.New(apperr.KindUnauthorized, "missing token")
		}

		uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
		if err != nil {
			return apperr.New(apperr.KindUnauthorized, "token subject is not a user id")
		}
		role, err := models.ParseRole(claims.Role)
		if err != nil {
			return apperr.New(apperr.KindForbidden, "unknown role")
		}

		c.Locals("userId", uid)
		c.Locals("role", role)

		return c.Next()
	}
}

// Actor returns the authenticated user id and role set by AttachJWTLocals.
func Actor(c *fiber.Ctx) (uuid.UUID, models.Role, bool) {
	uid, ok := c.Locals("userId").(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	role, _ := c.Locals("role").(models.Role)
	return uid, role, true
}
