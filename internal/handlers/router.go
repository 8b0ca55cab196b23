package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/config"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/readmodel"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/notify"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/tasker"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/withdrawal"
)

type Deps struct {
	DB          *gorm.DB
	RDB         *redis.Client
	Hub         *realtime.Hub
	Taskers     *tasker.Service
	Withdrawals *withdrawal.Service
	Notify      *notify.Service
	Reader      *readmodel.Reader
	JWTSecret   string
	CORSOrigins string
	Timeout     time.Duration
	Log         *zap.Logger
}

// NewApp wires the middleware chain and every route.
func NewApp(d Deps) *fiber.App {
	errorHandler := ErrorHandler(d.Log)

	app := fiber.New(fiber.Config{
		AppName:      "tasksfy-admin",
		ErrorHandler: errorHandler,
	})

	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(d.Log.Named("http"), errorHandler))
	app.Use(recover.New())
	origins, credentials := corsOrigins(d.CORSOrigins)
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: credentials,
	}))

	app.Get("/health", NewHealthHandler(d.DB, d.RDB).Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if d.Hub != nil {
		NewNotificationWSHandler(d.Hub, d.JWTSecret, d.Log).Routes(app)
	}

	admin := app.Group("/api/admin",
		middleware.JWT(d.JWTSecret),
		middleware.AttachJWTLocals(),
		middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
	)
	NewTaskerHandler(d.Taskers).Routes(admin)
	NewUserHandler(d.DB, d.Taskers, d.Reader, d.Timeout).Routes(admin)
	NewWithdrawalHandler(d.DB, d.Withdrawals, d.Timeout).Routes(admin)
	NewMessageHandler(d.Notify).Routes(admin)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "route not found")
	})
	return app
}

// corsOrigins collapses a list holding "*" (or nothing) to the bare wildcard,
// which fiber only accepts without credentials.
func corsOrigins(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" || config.HasWildcardOrigin(raw) {
		return "*", false
	}
	return raw, true
}
