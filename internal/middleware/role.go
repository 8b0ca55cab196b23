package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
)

func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		_, role, ok := Actor(c)
		if !ok {
			return apperr.New(apperr.KindUnauthorized, "missing token")
		}
		if !allowedSet[role] {
			return apperr.New(apperr.KindForbidden, "forbidden: insufficient role")
		}
		return c.Next()
	}
}
