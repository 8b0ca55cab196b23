package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/readmodel"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/audit"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/tasker"
)

// UserHandler serves the user listings, detail views and suspension.
type UserHandler struct {
	DB      *gorm.DB
	Taskers *tasker.Service
	Reader  *readmodel.Reader
	Timeout time.Duration
}

func NewUserHandler(gdb *gorm.DB, taskers *tasker.Service, reader *readmodel.Reader, timeout time.Duration) *UserHandler {
	return &UserHandler{DB: gdb, Taskers: taskers, Reader: reader, Timeout: timeout}
}

func (h *UserHandler) Routes(r fiber.Router) {
	r.Post("/users/status", h.SetStatus)
	r.Get("/users/:id", h.Get)
	r.Get("/users/:id/history", h.History)
	r.Get("/taskers", h.ListTaskers)
	r.Get("/clients", h.ListClients)
	r.Get("/stats", h.Stats)
}

type userStatusRequest struct {
	UserID string `json:"userId" validate:"required"`
	Action string `json:"action" validate:"required,oneof=suspend reinstate"`
	Reason string `json:"reason" validate:"max=500"`
}

func (r *userStatusRequest) normalize() { r.Action = lower(r.Action) }

func (h *UserHandler) SetStatus(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req userStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := parseID("userId", req.UserID)
	if err != nil {
		return err
	}

	var (
		res *tasker.Result
		msg string
	)
	switch req.Action {
	case "suspend":
		res, err = h.Taskers.Suspend(c.UserContext(), id, req.Reason, actor)
		msg = "User suspended"
		if err == nil && !res.Changed {
			msg = "User was already suspended"
		}
	default:
		res, err = h.Taskers.Reinstate(c.UserContext(), id, actor)
		msg = "User reinstated"
		if err == nil && !res.Changed {
			msg = "User was not suspended"
		}
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, msg, transitionData(res))
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := parseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	view, err := h.Reader.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", view)
}

// History returns the status events of a user, oldest first.
func (h *UserHandler) History(c *fiber.Ctx) error {
	id, err := parseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	if _, err := h.Reader.GetUser(c.UserContext(), id); err != nil {
		return err
	}

	ctx, cancel := db.Bounded(c.UserContext(), h.Timeout)
	defer cancel()
	events, err := audit.List(ctx, h.DB, models.EntityUser, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", events)
}

func (h *UserHandler) ListTaskers(c *fiber.Ctx) error {
	page, limit := pagination(c)
	f := readmodel.TaskerFilter{
		Query: c.Query("q"),
		Page:  readmodel.Page{Page: page, Limit: limit},
	}
	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseApplicationStatus(raw)
		if err != nil {
			return apperr.InvalidArgument("%v", err)
		}
		f.Status = st
	}
	if raw := c.Query("overall"); raw != "" {
		o, err := models.ParseOverallStatus(raw)
		if err != nil {
			return apperr.InvalidArgument("%v", err)
		}
		f.Overall = o
	}
	suspended, err := boolQuery(c, "suspended")
	if err != nil {
		return err
	}
	f.Suspended = suspended

	views, total, err := h.Reader.ListTaskers(c.UserContext(), f)
	if err != nil {
		return err
	}
	return respondPage(c, views, page, limit, total)
}

func (h *UserHandler) ListClients(c *fiber.Ctx) error {
	page, limit := pagination(c)
	suspended, err := boolQuery(c, "suspended")
	if err != nil {
		return err
	}
	views, total, err := h.Reader.ListClients(c.UserContext(), readmodel.ClientFilter{
		Query:     c.Query("q"),
		Suspended: suspended,
		Page:      readmodel.Page{Page: page, Limit: limit},
	})
	if err != nil {
		return err
	}
	return respondPage(c, views, page, limit, total)
}

func (h *UserHandler) Stats(c *fiber.Ctx) error {
	st, err := h.Reader.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", st)
}

func boolQuery(c *fiber.Ctx, key string) (*bool, error) {
	switch lower(c.Query(key)) {
	case "":
		return nil, nil
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	}
	return nil, apperr.InvalidArgument("%s must be true or false", key)
}
