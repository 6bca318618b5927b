package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/katakuxiko/kbrelay/internal/model"
)

// ServerConfig holds the HTTP settings NewApp needs.
type ServerConfig struct {
	BodyLimit        int
	CORSAllowOrigins string
}

// transportBodyLimit is the hard cap fasthttp enforces before any handler
// runs; it answers in plain text, so it sits well above the JSON-checked limit.
const transportBodyLimit = 16 << 20

// NewApp builds the fiber app with middleware and routes registered.
func NewApp(cfg ServerConfig, h *Handler, log *zap.Logger) *fiber.App {
	h.bodyLimit = cfg.BodyLimit
	limit := transportBodyLimit
	if cfg.BodyLimit > limit {
		limit = cfg.BodyLimit
	}
	app := fiber.New(fiber.Config{
		AppName:               "kbrelay",
		BodyLimit:             limit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(accessLog(log))

	RegisterRoutes(app, h)
	return app
}

func accessLog(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		reqID, _ := c.Locals("requestid").(string)
		log.Debug("http request",
			zap.String("request_id", reqID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)))
		return err
	}
}

// errorHandler renders errors escaping handlers as {"error": ...}. Only
// fiber errors expose their message.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			log.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
		}
		return c.Status(code).JSON(model.ErrorResponse{Error: msg})
	}
}
