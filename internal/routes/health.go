package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds the liveness surface the deployment platform polls.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		count, err := d.Sessions.Count(c.UserContext())
		if err != nil {
			count = -1
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":          "alive",
			"service":         d.Cfg.AppName,
			"active_sessions": count,
		})
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		status := http.StatusOK
		if dbStatus != "ok" || redisStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	app.Get("/stats", func(c *fiber.Ctx) error {
		count, err := d.Sessions.Count(c.UserContext())
		if err != nil {
			count = -1
		}
		entitled := 0
		if grants, err := d.Ents.List(c.UserContext()); err == nil {
			entitled = len(grants)
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"total_sessions": count,
			"entitled_users": entitled,
			"bot_status":     "running",
		})
	})
}
