package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/readmodel"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/tasker"
)

// TaskerHandler serves application review and stage verification.
type TaskerHandler struct {
	Taskers *tasker.Service
}

func NewTaskerHandler(svc *tasker.Service) *TaskerHandler {
	return &TaskerHandler{Taskers: svc}
}

func (h *TaskerHandler) Routes(r fiber.Router) {
	r.Post("/applications/approve", h.ApproveApplication)
	r.Post("/applications/reject", h.RejectApplication)
	r.Post("/verifications", h.Verification)
}

type applicationRequest struct {
	ApplicationID string `json:"applicationId" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
}

type verificationRequest struct {
	TaskerID string `json:"taskerId" validate:"required"`
	Stage    int    `json:"stage" validate:"required"`
	Action   string `json:"action" validate:"oneof=approve reject"`
	Reason   string `json:"reason" validate:"max=500"`
}

func (r *verificationRequest) normalize() {
	r.Action = lower(r.Action)
	if r.Action == "" {
		r.Action = "approve"
	}
}

func transitionData(res *tasker.Result) fiber.Map {
	return fiber.Map{
		"changed": res.Changed,
		"user":    readmodel.BuildUserView(res.User),
	}
}

func (h *TaskerHandler) ApproveApplication(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req applicationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := parseID("applicationId", req.ApplicationID)
	if err != nil {
		return err
	}

	res, err := h.Taskers.ApproveApplication(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	msg := "Application approved"
	if !res.Changed {
		msg = "Application was already approved"
	}
	return respond(c, fiber.StatusOK, msg, transitionData(res))
}

func (h *TaskerHandler) RejectApplication(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req applicationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := parseID("applicationId", req.ApplicationID)
	if err != nil {
		return err
	}

	res, err := h.Taskers.RejectApplication(c.UserContext(), id, req.Reason, actor)
	if err != nil {
		return err
	}
	msg := "Application rejected"
	if !res.Changed {
		msg = "Application was already rejected"
	}
	return respond(c, fiber.StatusOK, msg, transitionData(res))
}

// Verification approves or rejects one admin-gated verification stage.
func (h *TaskerHandler) Verification(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req verificationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := parseID("taskerId", req.TaskerID)
	if err != nil {
		return err
	}

	var res *tasker.Result
	if req.Action == "reject" {
		res, err = h.Taskers.RejectStage(c.UserContext(), id, req.Stage, req.Reason, actor)
	} else {
		res, err = h.Taskers.ApproveStage(c.UserContext(), id, req.Stage, actor)
	}
	if err != nil {
		return err
	}

	verb := "approved"
	if req.Action == "reject" {
		verb = "rejected"
	}
	msg := fmt.Sprintf("Stage %d (%s) %s", req.Stage, tasker.StageName(req.Stage), verb)
	if !res.Changed {
		msg = fmt.Sprintf("Stage %d (%s) was already %s", req.Stage, tasker.StageName(req.Stage), verb)
	}
	return respond(c, fiber.StatusOK, msg, transitionData(res))
}
