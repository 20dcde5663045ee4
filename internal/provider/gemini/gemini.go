package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vnmchuo/grammar-gateway/internal/provider"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	label          = "Gemini"
)

// Finish reasons for which the candidate text is withheld.
var blockedFinishReasons = map[string]bool{
	"SAFETY":     true,
	"RECITATION": true,
	"LANGUAGE":   true,
}

type GeminiProvider struct {
	baseURL string
	client  *http.Client
}

type Option func(*GeminiProvider)

func WithBaseURL(baseURL string) Option {
	return func(p *GeminiProvider) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(p *GeminiProvider) {
		if client != nil {
			p.client = client
		}
	}
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate   `json:"candidates"`
	PromptFeedback *promptFeedback     `json:"promptFeedback,omitempty"`
	UsageMetadata  geminiUsageMetadata `json:"usageMetadata"`
	ModelVersion   string              `json:"modelVersion"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

func New(opts ...Option) *GeminiProvider {
	p := &GeminiProvider{
		baseURL: DefaultBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GeminiProvider) Complete(ctx context.Context, credential string, req *provider.Request) (*provider.Result, error) {
	body, err := json.Marshal(p.mapRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", credential)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, provider.NetworkError(label, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.NetworkError(label, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, provider.StatusError(label, resp.StatusCode, respBody)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, provider.NetworkError(label, fmt.Errorf("decode gemini response: %w", err))
	}

	text, err := responseText(&geminiResp)
	if err != nil {
		return nil, err
	}

	return &provider.Result{
		Kind:         provider.KindMultimodal,
		Content:      text,
		Model:        req.Model,
		Provider:     p.Name(),
		InputTokens:  geminiResp.UsageMetadata.PromptTokenCount,
		OutputTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *geminiResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", blockedError(resp.PromptFeedback.BlockReason)
		}
		return "", nil
	}

	candidate := resp.Candidates[0]
	if blockedFinishReasons[candidate.FinishReason] {
		return "", blockedError(candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func blockedError(reason string) *provider.Error {
	return &provider.Error{
		Kind:     provider.KindTransport,
		Message:  fmt.Sprintf("Text not available. Response was blocked due to %s", reason),
		Provider: label,
	}
}

func (p *GeminiProvider) mapRequest(req *provider.Request) geminiRequest {
	contents := make([]geminiContent, len(req.Messages))
	for i, m := range req.Messages {
		contents[i] = geminiContent{
			Role:  "user",
			Parts: mapParts(m),
		}
	}

	out := geminiRequest{Contents: contents}

	var cfg generationConfig
	if req.Temperature > 0 {
		t := req.Temperature
		cfg.Temperature = &t
	}
	// Vision calls never ask for JSON; the caller wants raw text back.
	if req.JSONMode {
		cfg.ResponseMimeType = "application/json"
	}
	if cfg.Temperature != nil || cfg.ResponseMimeType != "" {
		out.GenerationConfig = &cfg
	}
	return out
}

func mapParts(m provider.Message) []geminiPart {
	if len(m.Parts) == 0 {
		return []geminiPart{{Text: m.Content}}
	}
	parts := make([]geminiPart, 0, len(m.Parts))
	for _, part := range m.Parts {
		switch part.Type {
		case provider.PartText:
			if part.Text == "" {
				continue
			}
			parts = append(parts, geminiPart{Text: part.Text})
		case provider.PartImage:
			parts = append(parts, geminiPart{InlineData: &inlineData{
				MimeType: part.Image.MimeType,
				Data:     part.Image.Data,
			}})
		}
	}
	return parts
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}
