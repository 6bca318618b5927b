package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/katakuxiko/kbrelay/internal/config"
	"github.com/katakuxiko/kbrelay/internal/model"
	"github.com/katakuxiko/kbrelay/internal/util"
)

// ResponsesClient is a thin client for the OpenAI Responses endpoint.
type ResponsesClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewResponsesClient builds a client from the OpenAI settings in cfg.
func NewResponsesClient(cfg *config.Config) *ResponsesClient {
	return &ResponsesClient{
		baseURL: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		apiKey:  cfg.OpenAIKey,
		timeout: cfg.UpstreamTimeout,
	}
}

// Tool is a hosted tool attached to a Responses call.
type Tool struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
}

// ResponsesRequest is the body posted to /responses.
type ResponsesRequest struct {
	Model        string          `json:"model"`
	Instructions string          `json:"instructions,omitempty"`
	Input        []model.Message `json:"input"`
	Tools        []Tool          `json:"tools,omitempty"`
}

// Response is the subset of the Responses payload the relay reads.
type Response struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	OutputText string       `json:"output_text,omitempty"`
	Output     []OutputItem `json:"output"`

	Raw json.RawMessage `json:"-"`
}

type OutputItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

type ContentPart struct {
	Type string     `json:"type"`
	Text *TextValue `json:"text,omitempty"`
}

// TextValue accepts both `"text": "..."` and `"text": {"value": "..."}`.
type TextValue struct {
	Value string
}

func (t *TextValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		t.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	t.Value = obj.Value
	return nil
}

func (t TextValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value string `json:"value"`
	}{t.Value})
}

// UpstreamError is a non-2xx answer from the API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("responses API returned %d: %s", e.Status, e.Body)
}

// Create posts req to {base}/responses. A missing output_text is filled in
// from the message items, the same way the official SDKs expose it.
func (c *ResponsesClient) Create(ctx context.Context, req ResponsesRequest) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	// Each call gets its own agent and host client, so connections are not
	// kept alive between chats. Acceptable at the relay's request volume.
	a := fiber.Post(c.baseURL + "/responses")
	a.Set(fiber.HeaderAuthorization, "Bearer "+c.apiKey)
	a.JSON(req)
	a.Timeout(timeout)
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return nil, fmt.Errorf("prepare request: %w", err)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("responses request: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return nil, &UpstreamError{Status: code, Body: util.TruncateRunes(string(bytes.TrimSpace(body)), 512)}
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	resp.Raw = body
	if resp.OutputText == "" {
		resp.OutputText = joinOutputText(resp.Output)
	}
	return &resp, nil
}

func joinOutputText(items []OutputItem) string {
	var sb strings.Builder
	for _, it := range items {
		if it.Type != "message" {
			continue
		}
		for _, p := range it.Content {
			if p.Type == "output_text" && p.Text != nil {
				sb.WriteString(p.Text.Value)
			}
		}
	}
	return sb.String()
}
