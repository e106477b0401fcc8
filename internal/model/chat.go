package model

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation in the upstream provider's
// wire format.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatOptions carries the caller-tunable generation parameters. Zero values
// mean "use the default"; temperature and max_tokens are clamped server-side
// regardless of what the client sends.
type ChatOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Options  ChatOptions   `json:"options"`
}

// UpstreamRequest is the payload forwarded to the provider after clamping.
type UpstreamRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
}

// UpstreamResponse mirrors the provider's completion response. Only the
// fields the gateway inspects are declared; the response is re-marshalled
// from this struct, so nothing else leaks through to clients.
type UpstreamResponse struct {
	Choices []UpstreamChoice `json:"choices"`
}

type UpstreamChoice struct {
	Message ChatMessage `json:"message"`
}

// Content returns the first choice's text, or "" when the provider sent
// an empty choice list.
func (r *UpstreamResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// FilterVerdict is the result of classifying a piece of text.
type FilterVerdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}
