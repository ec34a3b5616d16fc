package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/telefetch/telefetch/internal/config"
	"github.com/telefetch/telefetch/internal/entitlement"
	"github.com/telefetch/telefetch/internal/middleware"
	"github.com/telefetch/telefetch/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Sessions *session.Service
	Ents     entitlement.Repository
	Logger   *slog.Logger
}

// Setup configures middlewares, the health surface and the admin API.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	admin := app.Group("/api/v1/admin", middleware.AdminToken(d.Cfg.AdminToken))
	h := entitlement.NewHandler(d.Ents)
	admin.Post("/entitlements", h.Grant)
	admin.Delete("/entitlements/:user_id", h.Revoke)
	admin.Get("/entitlements", h.List)

	return nil
}
