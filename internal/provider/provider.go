package provider

import (
	"context"
	"fmt"
	"strings"
)

// Selector picks the backend a request is sent to.
type Selector string

const (
	PrimaryMultimodal Selector = "primary-multimodal"
	ChatCompletion    Selector = "chat-completion-compatible"
)

// ParseSelector accepts the canonical selector names as well as the
// "gemini" and "groq" aliases used by existing clients.
func ParseSelector(s string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PrimaryMultimodal), "gemini":
		return PrimaryMultimodal, nil
	case string(ChatCompletion), "groq", "openai":
		return ChatCompletion, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// Image is an inline image payload. Data is base64 and is never re-encoded.
type Image struct {
	Data     string `json:"base64Data"`
	MimeType string `json:"mimeType"`
}

// DataURI renders the image as data:<mime>;base64,<data>.
func (i *Image) DataURI() string {
	return "data:" + i.MimeType + ";base64," + i.Data
}

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

type Part struct {
	Type  PartType
	Text  string
	Image *Image
}

// Message is a single user turn. Content is used for text-only turns,
// Parts (ordered text then image) for multimodal turns.
type Message struct {
	Role    string
	Content string
	Parts   []Part
}

// Multimodal reports whether the message carries an image part.
func (m Message) Multimodal() bool {
	for _, p := range m.Parts {
		if p.Type == PartImage {
			return true
		}
	}
	return false
}

type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	JSONMode    bool
	// Metadata for logging and tracing
	RequestID string
}

type ResultKind string

const (
	KindChatCompletion ResultKind = "chat-completion"
	KindMultimodal     ResultKind = "multimodal"
)

// Result is the transport-level completion. Upstream code only reads Content.
type Result struct {
	Kind         ResultKind
	Content      string
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
}

// Transport performs one completion call against a concrete backend.
// The credential is passed per call and never stored.
type Transport interface {
	Complete(ctx context.Context, credential string, req *Request) (*Result, error)
	Name() string
}
