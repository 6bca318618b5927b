package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/katakuxiko/kbrelay/internal/guard"
	"github.com/katakuxiko/kbrelay/internal/metrics"
	"github.com/katakuxiko/kbrelay/internal/model"
)

type fakeCompleter struct {
	got  []ResponsesRequest
	resp *Response
	err  error
}

func (f *fakeCompleter) Create(_ context.Context, req ResponsesRequest) (*Response, error) {
	f.got = append(f.got, req)
	return f.resp, f.err
}

func newChat(t *testing.T, f *fakeCompleter) *ChatService {
	return NewChatService(guard.New(50), f, "gpt-4.1-mini", "vs_42", zaptest.NewLogger(t))
}

func TestReply_Success(t *testing.T) {
	f := &fakeCompleter{resp: &Response{OutputText: "answer"}}
	s := newChat(t, f)

	res, err := s.Reply(context.Background(), model.ChatRequest{
		Messages: []model.Message{{Role: "user", Content: "hello"}},
		Doc:      "faq",
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", res.Reply)
	assert.Equal(t, "faq.md", res.Document)
	assert.True(t, res.Extracted)

	require.Len(t, f.got, 1)
	req := f.got[0]
	assert.Equal(t, "gpt-4.1-mini", req.Model)
	assert.Contains(t, req.Instructions, "faq.md")
	assert.Equal(t, []model.Message{{Role: "user", Content: "hello"}}, req.Input)
	assert.Equal(t, []Tool{{Type: "file_search", VectorStoreIDs: []string{"vs_42"}}}, req.Tools)
}

func TestReply_ValidationStopsBeforeUpstream(t *testing.T) {
	f := &fakeCompleter{resp: &Response{OutputText: "answer"}}
	s := newChat(t, f)

	_, err := s.Reply(context.Background(), model.ChatRequest{
		Messages: []model.Message{{Role: "user", Content: strings.Repeat("x", 51)}},
	})
	var v *guard.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, guard.ReasonTooLong, v.Reason)
	assert.Empty(t, f.got)

	_, err = s.Reply(context.Background(), model.ChatRequest{})
	assert.ErrorIs(t, err, guard.ErrNoMessages)
	assert.Empty(t, f.got)
}

func TestReply_UpstreamErrorIsWrapped(t *testing.T) {
	cause := &UpstreamError{Status: 503, Body: "overloaded"}
	s := newChat(t, &fakeCompleter{err: cause})

	_, err := s.Reply(context.Background(), model.ChatRequest{
		Messages: []model.Message{{Role: "user", Content: "hello"}},
	})
	assert.ErrorIs(t, err, ErrUpstream)
	var ue *UpstreamError
	assert.True(t, errors.As(err, &ue))
}

func TestReply_FallbackIsCounted(t *testing.T) {
	s := newChat(t, &fakeCompleter{resp: &Response{ID: "resp_x"}})
	before := testutil.ToFloat64(metrics.ReplyFallbacks)

	res, err := s.Reply(context.Background(), model.ChatRequest{
		Messages: []model.Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, res.Reply)
	assert.False(t, res.Extracted)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ReplyFallbacks))
}

func TestReply_NilResponseFallsBack(t *testing.T) {
	s := newChat(t, &fakeCompleter{})

	res, err := s.Reply(context.Background(), model.ChatRequest{
		Messages: []model.Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, res.Reply)
	assert.False(t, res.Extracted)
}
