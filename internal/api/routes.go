package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the relay endpoints on app.
func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", h.Health)
	app.Get("/documents", h.Documents)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Post("/chat", h.Chat)
}
