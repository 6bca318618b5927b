package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/katakuxiko/kbrelay/internal/guard"
	"github.com/katakuxiko/kbrelay/internal/metrics"
	"github.com/katakuxiko/kbrelay/internal/model"
	"github.com/katakuxiko/kbrelay/internal/prompt"
)

// ErrUpstream marks failures of the Responses API call.
var ErrUpstream = errors.New("upstream request failed")

// Completer sends one Responses request.
type Completer interface {
	Create(ctx context.Context, req ResponsesRequest) (*Response, error)
}

// Result is the reply plus which document the prompt was biased toward.
type Result struct {
	Reply     string
	Document  string
	Extracted bool
}

type ChatService struct {
	guard         *guard.Guard
	llm           Completer
	model         string
	vectorStoreID string
	log           *zap.Logger
}

// NewChatService wires the guard and the upstream client together.
func NewChatService(g *guard.Guard, llm Completer, chatModel, vectorStoreID string, log *zap.Logger) *ChatService {
	return &ChatService{guard: g, llm: llm, model: chatModel, vectorStoreID: vectorStoreID, log: log}
}

// Reply validates the conversation, sends it with file search enabled and
// returns the extracted text. Validation errors come back unwrapped.
func (s *ChatService) Reply(ctx context.Context, req model.ChatRequest) (Result, error) {
	if err := s.guard.Validate(req.Messages); err != nil {
		return Result{}, err
	}

	instructions, doc := prompt.Build(req.Doc)
	if req.Doc != "" && doc == "" {
		s.log.Debug("unknown document selection ignored", zap.String("doc", req.Doc))
	}

	start := time.Now()
	resp, err := s.llm.Create(ctx, ResponsesRequest{
		Model:        s.model,
		Instructions: instructions,
		Input:        req.Messages,
		Tools: []Tool{{
			Type:           "file_search",
			VectorStoreIDs: []string{s.vectorStoreID},
		}},
	})
	metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	text, ok := ExtractReply(resp)
	if !ok {
		metrics.ReplyFallbacks.Inc()
		if resp != nil {
			s.log.Warn("response without extractable text",
				zap.String("response_id", resp.ID),
				zap.ByteString("raw", resp.Raw))
		} else {
			s.log.Warn("empty response from upstream")
		}
	}
	return Result{Reply: text, Document: doc, Extracted: ok}, nil
}
