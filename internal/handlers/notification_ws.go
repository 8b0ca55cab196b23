package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/utils"
)

// NotificationWSHandler streams a user's notifications over WebSocket.
// Browsers cannot set headers on the upgrade, so the token comes in the
// query string.
type NotificationWSHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
	Log       *zap.Logger
}

func NewNotificationWSHandler(hub *realtime.Hub, secret string, log *zap.Logger) *NotificationWSHandler {
	return &NotificationWSHandler{Hub: hub, JWTSecret: secret, Log: log.Named("ws")}
}

func (h *NotificationWSHandler) Routes(app fiber.Router) {
	app.Get("/ws/notifications", h.Upgrade, websocket.New(h.Serve))
}

// Upgrade authenticates the request before the protocol switch.
func (h *NotificationWSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	claims, err := utils.ParseJWT(h.JWTSecret, c.Query("token"))
	if err != nil {
		return apperr.New(apperr.KindUnauthorized, "invalid or expired token")
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return apperr.New(apperr.KindUnauthorized, "token subject is not a user id")
	}
	c.Locals("userId", uid)
	return c.Next()
}

func (h *NotificationWSHandler) Serve(c *websocket.Conn) {
	userID, ok := c.Locals("userId").(uuid.UUID)
	if !ok {
		_ = c.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 64),
	}
	h.Hub.RegisterClient(client)
	h.Log.Debug("connected", zap.Stringer("user_id", userID))
	defer func() {
		h.Hub.UnregisterClient(client)
		h.Log.Debug("disconnected", zap.Stringer("user_id", userID))
	}()

	go func() {
		for msg := range client.Send {
			if err := client.Conn.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.Log.Debug("write failed", zap.Stringer("user_id", userID), zap.Error(err))
				return
			}
		}
	}()

	// The client only sends pings; reading detects the close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
