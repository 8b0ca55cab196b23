package handlers

import (
	"errors"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/utils"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

func respond(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

func respondPage(c *fiber.Ctx, data any, page, limit int, total int64) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"meta": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_items": total,
			"total_pages": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// ErrorHandler renders every error as the failure envelope. Framework errors
// keep their status; everything else is mapped through apperr.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, code, message := describe(err)
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("code", code),
				zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": message,
			"code":    code,
		})
	}
}

func describe(err error) (int, string, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := kindForStatus(fe.Code)
		msg := fe.Message
		if msg == "" {
			msg = kind.Code()
		}
		return fe.Code, kind.Code(), msg
	}
	kind := apperr.KindOf(err)
	return kind.HTTPStatus(), kind.Code(), apperr.PublicMessage(err)
}

func kindForStatus(status int) apperr.Kind {
	switch status {
	case fiber.StatusUnauthorized:
		return apperr.KindUnauthorized
	case fiber.StatusForbidden:
		return apperr.KindForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return apperr.KindNotFound
	case fiber.StatusConflict:
		return apperr.KindConflict
	case fiber.StatusRequestTimeout, fiber.StatusGatewayTimeout:
		return apperr.KindTimeout
	case fiber.StatusServiceUnavailable:
		return apperr.KindUnavailable
	}
	if status >= 400 && status < 500 {
		return apperr.KindInvalidArgument
	}
	return apperr.KindInternal
}

// normalizer lets a request DTO canonicalise itself before validation.
type normalizer interface {
	normalize()
}

func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.InvalidArgument("invalid request body")
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	return utils.Validate(dst)
}

// parseID accepts only the canonical textual UUID form.
func parseID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, apperr.InvalidArgument("%s is required", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil || len(raw) != 36 || id == uuid.Nil {
		return uuid.Nil, apperr.InvalidArgument("%s must be a canonical UUID", field)
	}
	return id, nil
}

func getAuth(c *fiber.Ctx) (uuid.UUID, error) {
	uid, _, ok := middleware.Actor(c)
	if !ok {
		return uuid.Nil, apperr.New(apperr.KindUnauthorized, "unauthorized")
	}
	return uid, nil
}

func pagination(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", defaultLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
