package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name   string
		resp   *Response
		want   string
		wantOK bool
	}{
		{
			name:   "convenience field",
			resp:   &Response{OutputText: "from shortcut", Output: []OutputItem{{Content: []ContentPart{{Text: &TextValue{Value: "ignored"}}}}}},
			want:   "from shortcut",
			wantOK: true,
		},
		{
			name:   "first output first content",
			resp:   &Response{Output: []OutputItem{{Type: "message", Content: []ContentPart{{Type: "text", Text: &TextValue{Value: "from content"}}}}}},
			want:   "from content",
			wantOK: true,
		},
		{
			name:   "first item has no content",
			resp:   &Response{Output: []OutputItem{{Type: "file_search_call"}, {Type: "message", Content: []ContentPart{{Text: &TextValue{Value: "second"}}}}}},
			want:   FallbackReply,
			wantOK: false,
		},
		{
			name:   "content without text",
			resp:   &Response{Output: []OutputItem{{Content: []ContentPart{{Type: "refusal"}}}}},
			want:   FallbackReply,
			wantOK: false,
		},
		{name: "empty", resp: &Response{}, want: FallbackReply, wantOK: false},
		{name: "nil", resp: nil, want: FallbackReply, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractReply(tt.resp)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
