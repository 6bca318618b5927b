package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat. Doc is an optional selection key
// that biases retrieval toward one known document.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Doc      string    `json:"doc,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Document is one entry of the selection catalogue exposed by GET /documents.
type Document struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}
