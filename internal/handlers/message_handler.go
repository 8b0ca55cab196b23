package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/notify"
)

// MessageHandler lets admins message a user and read back what was sent.
type MessageHandler struct {
	Notify *notify.Service
}

func NewMessageHandler(svc *notify.Service) *MessageHandler {
	return &MessageHandler{Notify: svc}
}

func (h *MessageHandler) Routes(r fiber.Router) {
	r.Post("/messages", h.Send)
	r.Get("/users/:id/messages", h.List)
}

type messageRequest struct {
	UserID string `json:"userId" validate:"required"`
	Title  string `json:"title" validate:"required,max=120"`
	Body   string `json:"body" validate:"required,max=2000"`
}

func (h *MessageHandler) Send(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req messageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := parseID("userId", req.UserID)
	if err != nil {
		return err
	}

	n, err := h.Notify.Send(c.UserContext(), id, req.Title, req.Body, actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Message sent", n)
}

func (h *MessageHandler) List(c *fiber.Ctx) error {
	id, err := parseID("id", c.Params("id"))
	if err != nil {
		return err
	}
	page, limit := pagination(c)
	items, total, err := h.Notify.List(c.UserContext(), id, page, limit)
	if err != nil {
		return err
	}
	return respondPage(c, items, page, limit, total)
}
