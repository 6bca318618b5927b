package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/katakuxiko/kbrelay/internal/guard"
	"github.com/katakuxiko/kbrelay/internal/metrics"
	"github.com/katakuxiko/kbrelay/internal/model"
	"github.com/katakuxiko/kbrelay/internal/prompt"
	"github.com/katakuxiko/kbrelay/internal/service"
	"github.com/katakuxiko/kbrelay/internal/store"
	"github.com/katakuxiko/kbrelay/internal/util"
)

const upstreamErrorMessage = "AI server error"

// Replier produces a reply for a chat request.
type Replier interface {
	Reply(ctx context.Context, req model.ChatRequest) (service.Result, error)
}

// Auditor stores one audited exchange.
type Auditor interface {
	Record(ctx context.Context, e store.Exchange) error
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	chat      Replier
	audit     Auditor
	log       *zap.Logger
	bodyLimit int
}

// NewHandler builds a Handler. audit may be nil.
func NewHandler(chat Replier, audit Auditor, log *zap.Logger) *Handler {
	return &Handler{chat: chat, audit: audit, log: log}
}

// Health answers liveness checks.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// Documents lists the selection keys accepted in the "doc" field.
func (h *Handler) Documents(c *fiber.Ctx) error {
	return c.JSON(prompt.Documents())
}

// Chat relays a conversation to the model and returns {"reply": ...}.
func (h *Handler) Chat(c *fiber.Ctx) error {
	start := time.Now()
	reqID, _ := c.Locals("requestid").(string)
	log := h.log.With(zap.String("request_id", reqID))

	if h.bodyLimit > 0 && len(c.Body()) > h.bodyLimit {
		log.Info("chat rejected", zap.String("reason", "body_too_large"))
		metrics.ChatRequests.WithLabelValues(store.OutcomeRejected).Inc()
		metrics.ChatRejections.WithLabelValues("body_too_large").Inc()
		h.record(c, log, store.Exchange{RequestID: reqID, Outcome: store.OutcomeRejected, Reason: "body_too_large"}, start)
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(model.ErrorResponse{
			Error: fmt.Sprintf("request body exceeds %d bytes", h.bodyLimit),
		})
	}

	var raw struct {
		Messages json.RawMessage `json:"messages"`
		Doc      string          `json:"doc"`
	}
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return h.reject(c, log, store.Exchange{RequestID: reqID}, "invalid_json", "request body must be a JSON object", start)
	}

	ex := store.Exchange{RequestID: reqID, Doc: raw.Doc}
	trimmed := bytes.TrimSpace(raw.Messages)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return h.reject(c, log, ex, "no_messages", guard.ErrNoMessages.Error(), start)
	}
	var msgs []model.Message
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return h.reject(c, log, ex, "malformed_messages", "each message must be an object with string \"role\" and \"content\"", start)
	}
	ex.MessageCount = len(msgs)
	ex.Excerpt = lastUserExcerpt(msgs)

	res, err := h.chat.Reply(c.UserContext(), model.ChatRequest{Messages: msgs, Doc: raw.Doc})
	if err != nil {
		var v *guard.Violation
		switch {
		case errors.Is(err, guard.ErrNoMessages):
			return h.reject(c, log, ex, "no_messages", err.Error(), start)
		case errors.As(err, &v):
			return h.reject(c, log, ex, string(v.Reason), v.Error(), start)
		}

		log.Error("chat upstream failed", zap.Error(err))
		metrics.ChatRequests.WithLabelValues(store.OutcomeUpstreamError).Inc()
		ex.Outcome = store.OutcomeUpstreamError
		ex.Reason = util.TruncateRunes(err.Error(), 500)
		h.record(c, log, ex, start)
		return c.Status(fiber.StatusInternalServerError).JSON(model.ErrorResponse{Error: upstreamErrorMessage})
	}

	metrics.ChatRequests.WithLabelValues(store.OutcomeOK).Inc()
	ex.Outcome = store.OutcomeOK
	h.record(c, log, ex, start)
	log.Info("chat replied",
		zap.Int("messages", len(msgs)),
		zap.String("document", res.Document),
		zap.Bool("extracted", res.Extracted),
		zap.Duration("latency", time.Since(start)))
	return c.JSON(model.ChatResponse{Reply: res.Reply})
}

func (h *Handler) reject(c *fiber.Ctx, log *zap.Logger, ex store.Exchange, reason, msg string, start time.Time) error {
	log.Info("chat rejected", zap.String("reason", reason))
	metrics.ChatRequests.WithLabelValues(store.OutcomeRejected).Inc()
	metrics.ChatRejections.WithLabelValues(reason).Inc()
	ex.Outcome = store.OutcomeRejected
	ex.Reason = reason
	h.record(c, log, ex, start)
	return c.Status(fiber.StatusBadRequest).JSON(model.ErrorResponse{Error: msg})
}

// record never fails the request; audit problems are only logged.
func (h *Handler) record(c *fiber.Ctx, log *zap.Logger, ex store.Exchange, start time.Time) {
	if h.audit == nil {
		return
	}
	ex.Latency = time.Since(start)
	if err := h.audit.Record(c.UserContext(), ex); err != nil {
		log.Warn("audit record failed", zap.Error(err))
	}
}

func lastUserExcerpt(msgs []model.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser {
			return util.TruncateRunes(msgs[i].Content, 200)
		}
	}
	return ""
}
