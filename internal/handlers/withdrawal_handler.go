package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/audit"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/withdrawal"
)

type WithdrawalHandler struct {
	DB          *gorm.DB
	Withdrawals *withdrawal.Service
	Timeout     time.Duration
}

func NewWithdrawalHandler(gdb *gorm.DB, svc *withdrawal.Service, timeout time.Duration) *WithdrawalHandler {
	return &WithdrawalHandler{DB: gdb, Withdrawals: svc, Timeout: timeout}
}

func (h *WithdrawalHandler) Routes(r fiber.Router) {
	r.Put("/withdrawals", h.Review)
	r.Get("/withdrawals", h.List)
	r.Get("/withdrawals/:id", h.Get)
	r.Get("/withdrawals/:id/history", h.History)
}

type withdrawalRequest struct {
	WithdrawalID string `json:"withdrawalId" validate:"required"`
	Action       string `json:"action" validate:"required,oneof=approve reject"`
	Reason       string `json:"reason" validate:"max=500"`
}

func (r *withdrawalRequest) normalize() { r.Action = lower(r.Action) }

// Review approves or rejects a pending withdrawal.
func (h *WithdrawalHandler) Review(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req withdrawalRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := parseID("withdrawalId", req.WithdrawalID)
	if err != nil {
		return err
	}

	var (
		res *withdrawal.Result
		msg string
	)
	if req.Action == "approve" {
		res, err = h.Withdrawals.Approve(c.UserContext(), id, actor)
		msg = "Withdrawal approved"
		if err == nil && !res.Changed {
			msg = "Withdrawal was already approved"
		}
	} else {
		res, err = h.Withdrawals.Reject(c.UserContext(), id, req.Reason, actor)
		msg = "Withdrawal rejected"
		if err == nil && !res.Changed {
			msg = "Withdrawal was already rejected"
		}
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, msg, fiber.Map{
		"changed":    res.Changed,
		"withdrawal": res.Withdrawal,
	})
}

func (h *WithdrawalHandler) List(c *fiber.Ctx) error {
	page, limit := pagination(c)
	f := withdrawal.ListFilter{Page: page, Limit: limit}
	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseWithdrawalStatus(raw)
		if err != nil {
			return apperr.InvalidArgument("%v", err)
		}
		f.Status = st
	}
	if raw := c.Query("userId"); raw != "" {
		uid, err := parseID("userId", raw)
		if err != nil {
			return err
		}
		f.UserID = &uid
	}

	items, total, err := h.Withdrawals.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return respondPage(c, items, page, limit, total)
}

func (h *WithdrawalHandler) Get(c *fiber.Ctx) error {
	id, err := parseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	w, err := h.Withdrawals.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", w)
}

func (h *WithdrawalHandler) History(c *fiber.Ctx) error {
	id, err := parseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	if _, err := h.Withdrawals.Get(c.UserContext(), id); err != nil {
		return err
	}

	ctx, cancel := db.Bounded(c.UserContext(), h.Timeout)
	defer cancel()
	events, err := audit.List(ctx, h.DB, models.EntityWithdrawal, id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", events)
}
