package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
)

type HealthHandler struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func NewHealthHandler(gdb *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{DB: gdb, RDB: rdb}
}

// Health pings the store and, when configured, Redis.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.DB.DB()
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "database unavailable", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "database unavailable", err)
	}

	redisStatus := "disabled"
	if h.RDB != nil {
		if err := h.RDB.Ping(ctx).Err(); err != nil {
			return apperr.Wrap(apperr.KindUnavailable, "redis unavailable", err)
		}
		redisStatus = "ok"
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{"database": "ok", "redis": redisStatus})
}
