package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vnmchuo/grammar-gateway/internal/provider"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultLabel   = "Groq"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	baseURL string
	label   string
	client  *http.Client
}

type Option func(*OpenAIProvider)

func WithBaseURL(baseURL string) Option {
	return func(p *OpenAIProvider) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

// WithLabel sets the provider name used in fallback error messages.
func WithLabel(label string) Option {
	return func(p *OpenAIProvider) {
		if label != "" {
			p.label = label
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(p *OpenAIProvider) {
		if client != nil {
			p.client = client
		}
	}
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// openAIMessage.Content is either a string or []contentPart.
type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Model   string         `json:"model"`
}

type openAIChoice struct {
	Message struct {
		Content *string `json:"content"`
	} `json:"message"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func New(opts ...Option) *OpenAIProvider {
	p := &OpenAIProvider{
		baseURL: DefaultBaseURL,
		label:   DefaultLabel,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenAIProvider) Complete(ctx context.Context, credential string, req *provider.Request) (*provider.Result, error) {
	body, err := json.Marshal(p.mapRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", p.label, err)
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", p.label, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", credential))

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, provider.NetworkError(p.label, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.NetworkError(p.label, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, provider.StatusError(p.label, resp.StatusCode, respBody)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return nil, provider.NetworkError(p.label, fmt.Errorf("decode %s response: %w", p.label, err))
	}

	// A missing choice or null content is an empty completion, not an error.
	content := ""
	if len(openAIResp.Choices) > 0 && openAIResp.Choices[0].Message.Content != nil {
		content = *openAIResp.Choices[0].Message.Content
	}

	model := openAIResp.Model
	if model == "" {
		model = req.Model
	}

	return &provider.Result{
		Kind:         provider.KindChatCompletion,
		Content:      content,
		Model:        model,
		Provider:     p.Name(),
		InputTokens:  openAIResp.Usage.PromptTokens,
		OutputTokens: openAIResp.Usage.CompletionTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

func (p *OpenAIProvider) mapRequest(req *provider.Request) openAIRequest {
	messages := make([]openAIMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openAIMessage{
			Role:    m.Role,
			Content: mapContent(m),
		}
	}

	out := openAIRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return out
}

func mapContent(m provider.Message) any {
	if len(m.Parts) == 0 {
		return m.Content
	}
	parts := make([]contentPart, 0, len(m.Parts))
	for _, part := range m.Parts {
		switch part.Type {
		case provider.PartText:
			if part.Text == "" {
				continue
			}
			parts = append(parts, contentPart{Type: "text", Text: part.Text})
		case provider.PartImage:
			parts = append(parts, contentPart{
				Type:     "image_url",
				ImageURL: &imageURL{URL: part.Image.DataURI()},
			})
		}
	}
	return parts
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Label is the human-facing provider name used in error messages.
func (p *OpenAIProvider) Label() string {
	return p.label
}
