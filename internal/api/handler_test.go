package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	extratelimit "github.com/vnmchuo/ratelimiter"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vnmchuo/grammar-gateway/internal/auth"
	"github.com/vnmchuo/grammar-gateway/internal/gateway"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
	"github.com/vnmchuo/grammar-gateway/internal/usage"
	"github.com/vnmchuo/grammar-gateway/pkg/ratelimit"
)

// Mock Generator
type mockGenerator struct {
	mu         sync.Mutex
	creds      []string
	sels       []provider.Selector
	images     []*provider.Image
	generateFn func(prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, credential string, sel provider.Selector, prompt string, image *provider.Image, opts ...gateway.CallOption) (string, error) {
	m.mu.Lock()
	m.creds = append(m.creds, credential)
	m.sels = append(m.sels, sel)
	m.images = append(m.images, image)
	m.mu.Unlock()
	if credential == "" {
		return "", &provider.Error{Kind: provider.KindMissingCredential, Message: provider.ErrMissingCredential.Error(), Cause: provider.ErrMissingCredential}
	}
	return m.generateFn(prompt)
}

// Mock Usage Store
type mockUsageStore struct {
	usage.MemoryStore
	logged chan *usage.Record
}

func (m *mockUsageStore) LogUsage(ctx context.Context, rec *usage.Record) error {
	m.logged <- rec
	return nil
}

// Mock Limiter Store
type mockLimiterStore struct {
	allowed bool
	err     error
}

func (m *mockLimiterStore) AllowN(ctx context.Context, key string, n int) (*extratelimit.Result, error) {
	return &extratelimit.Result{Allowed: m.allowed}, m.err
}

func (m *mockLimiterStore) Allow(ctx context.Context, key string) (*extratelimit.Result, error) {
	return &extratelimit.Result{Allowed: m.allowed}, m.err
}

func (m *mockLimiterStore) Status(ctx context.Context, key string) (*extratelimit.Result, error) {
	return &extratelimit.Result{Allowed: m.allowed}, m.err
}

type stubTransliterator struct {
	body        []byte
	err         error
	suggestions map[string][]string
}

func (s stubTransliterator) Raw(ctx context.Context, text string) ([]byte, error) {
	return s.body, s.err
}

func (s stubTransliterator) Suggest(ctx context.Context, word string) []string {
	if out, ok := s.suggestions[word]; ok {
		return out
	}
	return []string{}
}

type failingUsageStore struct {
	usage.NopStore
}

func (failingUsageStore) GetUsageByClient(context.Context, string, time.Time, time.Time) ([]*usage.Record, error) {
	return nil, errors.New("pq: relation \"usage_logs\" does not exist")
}

// Test Suite
func setupTest(reply string, limiterAllowed bool) (http.Handler, *mockGenerator, *mockUsageStore) {
	gen := &mockGenerator{generateFn: func(string) (string, error) { return reply, nil }}
	store := &mockUsageStore{logged: make(chan *usage.Record, 8)}
	h := NewHandler(Deps{
		Generator:       gen,
		Transliterator:  stubTransliterator{body: []byte(`["SUCCESS",[["ghar",["घर"]]]]`)},
		Usage:           store,
		Limiter:         ratelimit.NewTestLimiter(&mockLimiterStore{allowed: limiterAllowed}),
		Tracer:          noop.NewTracerProvider().Tracer("test"),
		DefaultProvider: provider.PrimaryMultimodal,
	})
	return NewRouter(h), gen, store
}

func do(t *testing.T, router http.Handler, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp["error"]
}

func TestHealthz(t *testing.T) {
	router, _, _ := setupTest("", true)
	w := do(t, router, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get(auth.RequestIDHeader) == "" {
		t.Errorf("Expected a request id header")
	}
}

func TestHandleSentence_InvalidBody(t *testing.T) {
	router, _, _ := setupTest("", true)
	w := do(t, router, http.MethodPost, "/v1/sentences", "k1", `{invalid json}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "invalid request body" {
		t.Errorf("Expected invalid request body error, got %v", msg)
	}
}

func TestHandleSentence_MissingCredential(t *testing.T) {
	router, _, _ := setupTest("{}", true)
	w := do(t, router, http.MethodPost, "/v1/sentences", "", map[string]string{
		"subject": "I", "verb": "eat", "object": "mango", "tense": "Present Indefinite",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if msg := errorOf(t, w); !strings.Contains(msg, "API Key") {
		t.Errorf("Expected missing key message, got %v", msg)
	}
}

func TestHandleSentence_Success(t *testing.T) {
	router, gen, store := setupTest(`{"sentence":[{"word":"I","pos":"Pronoun"},{"word":"eat","pos":"Verb"},{"word":"mangoes","pos":"Noun"},{"word":".","pos":"Punctuation"}]}`, true)
	w := do(t, router, http.MethodPost, "/v1/sentences", "k1", map[string]string{
		"subject": "I", "verb": "eat", "object": "mangoes", "tense": "Present Indefinite",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Sentence []map[string]string `json:"sentence"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Sentence) != 4 || resp.Sentence[2]["word"] != "mangoes" {
		t.Errorf("Unexpected sentence: %v", resp.Sentence)
	}
	if gen.creds[0] != "k1" || gen.sels[0] != provider.PrimaryMultimodal {
		t.Errorf("Expected key k1 on primary provider, got %q %q", gen.creds[0], gen.sels[0])
	}

	select {
	case rec := <-store.logged:
		if rec.Action != "sentence" || !rec.Success || rec.Status != http.StatusOK {
			t.Errorf("Unexpected usage record: %+v", rec)
		}
		if rec.ClientID != auth.ClientID("k1") || rec.Model != gateway.MultimodalModel {
			t.Errorf("Unexpected usage identity: %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("usage was not logged")
	}
}

func TestHandleTransform_ProviderFromBody(t *testing.T) {
	router, gen, _ := setupTest(`{"transformedSentence":[{"word":"The","pos":"Determiner"},{"word":"mouse","pos":"Noun"}],"hindiTranslation":"चूहा","explanation":"passive"}`, true)
	w := do(t, router, http.MethodPost, "/v1/transform/voice", "", map[string]string{
		"sentence": "The cat chased the mouse.", "apiKey": "body-key", "provider": "groq",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["hindiTranslation"] != "चूहा" || resp["explanation"] != "passive" {
		t.Errorf("Unexpected response: %v", resp)
	}
	if gen.creds[0] != "body-key" || gen.sels[0] != provider.ChatCompletion {
		t.Errorf("Expected body credentials, got %q %q", gen.creds[0], gen.sels[0])
	}
}

func TestHandleTransform_UnknownAction(t *testing.T) {
	router, gen, _ := setupTest("{}", true)
	w := do(t, router, http.MethodPost, "/v1/transform/shout", "k1", map[string]string{"sentence": "hi"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	if len(gen.creds) != 0 {
		t.Errorf("Expected no AI call")
	}
}

func TestHandleTransform_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		body   map[string]string
		status int
		msg    string
	}{
		{"invalid input", "{}", map[string]string{"sentence": " "}, http.StatusBadRequest, "Please provide a sentence."},
		{"unexpected shape", `{"hindiTranslation":"x"}`, map[string]string{"sentence": "hi"}, http.StatusUnprocessableEntity, "The AI response was not in the expected format."},
		{"model error", `{"error":"Not English."}`, map[string]string{"sentence": "hi"}, http.StatusUnprocessableEntity, "Not English."},
		{"empty completion", "", map[string]string{"sentence": "hi"}, http.StatusUnprocessableEntity, "The AI returned an empty response. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, _ := setupTest(tt.reply, true)
			w := do(t, router, http.MethodPost, "/v1/transform/analyze", "k1", tt.body)
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, w.Code)
			}
			if msg := errorOf(t, w); msg != tt.msg {
				t.Errorf("Expected %q, got %q", tt.msg, msg)
			}
		})
	}
}

func TestHandleGenerate_TransportError(t *testing.T) {
	router, gen, _ := setupTest("", true)
	gen.generateFn = func(string) (string, error) {
		return "", &provider.Error{Kind: provider.KindTransport, Message: "invalid api key", StatusCode: 401}
	}
	w := do(t, router, http.MethodPost, "/v1/generate", "k1", map[string]string{"prompt": "Say hi"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "invalid api key" {
		t.Errorf("Expected provider message verbatim, got %q", msg)
	}
}

func TestHandleGenerate_PassesImage(t *testing.T) {
	router, gen, _ := setupTest("raw text", true)
	w := do(t, router, http.MethodPost, "/v1/generate", "k1", map[string]any{
		"prompt": "Extract", "image": map[string]string{"base64Data": "AAAA", "mimeType": "image/png"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["text"] != "raw text" {
		t.Errorf("Expected raw text, got %q", resp["text"])
	}
	if img := gen.images[0]; img == nil || img.Data != "AAAA" || img.MimeType != "image/png" {
		t.Errorf("Image not forwarded: %+v", img)
	}
}

func TestHandleOCR(t *testing.T) {
	router, _, _ := setupTest("```\nHello\n```", true)
	w := do(t, router, http.MethodPost, "/v1/ocr", "k1", map[string]any{
		"image": map[string]string{"base64Data": "AAAA", "mimeType": "image/jpeg"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["text"] != "Hello" {
		t.Errorf("Expected cleaned text, got %q", resp["text"])
	}

	w = do(t, router, http.MethodPost, "/v1/ocr", "k1", map[string]any{
		"image":    map[string]string{"base64Data": "AAAA", "mimeType": "image/jpeg"},
		"language": "klingon",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown language, got %d", w.Code)
	}
}

func TestHandleSuggestions(t *testing.T) {
	router, _, _ := setupTest(`{"suggestions":[[{"word":"Hi","pos":"Interjection"}]]}`, true)
	w := do(t, router, http.MethodPost, "/v1/suggestions", "k1", map[string]any{
		"sentence": []map[string]string{{"word": "Hello", "pos": "Interjection"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Suggestions [][]map[string]string `json:"suggestions"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Suggestions) != 1 || resp.Suggestions[0][0]["word"] != "Hi" {
		t.Errorf("Unexpected suggestions: %v", resp.Suggestions)
	}
}

func TestHandleHindiTense(t *testing.T) {
	router, _, _ := setupTest(`{"identifiedEnglishTense":"Past Continuous","reasoning":"रहा था","exampleEnglishSentence":[],"englishTenseRuleKey":"PastContinuous"}`, true)
	w := do(t, router, http.MethodPost, "/v1/hindi/tense", "k1", map[string]string{"sentence": "मैं खा रहा था"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["englishTenseRuleKey"] != "PastContinuous" {
		t.Errorf("Unexpected analysis: %v", resp)
	}
}

func TestRateLimited(t *testing.T) {
	router, gen, _ := setupTest("{}", false)
	w := do(t, router, http.MethodPost, "/v1/generate", "k1", map[string]string{"prompt": "hi"})

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "rate limit exceeded" {
		t.Errorf("Expected rate limit exceeded error, got %v", msg)
	}
	if w.Header().Get("Retry-After") != "60s" {
		t.Errorf("Expected Retry-After: 60s header, got %s", w.Header().Get("Retry-After"))
	}
	if len(gen.creds) != 0 {
		t.Errorf("Expected no AI call when rate limited")
	}
}

func TestHandleTenses(t *testing.T) {
	router, _, _ := setupTest("", true)
	w := do(t, router, http.MethodGet, "/v1/tenses", "", nil)
	var resp struct {
		Tenses []tenseInfo `json:"tenses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Tenses) != 12 || resp.Tenses[6].RuleKey != "PastPerfect" {
		t.Errorf("Unexpected tenses: %+v", resp.Tenses)
	}
}

func TestHandleTransliterate(t *testing.T) {
	router, _, _ := setupTest("", true)

	w := do(t, router, http.MethodGet, "/v1/transliterate", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "Missing text parameter" {
		t.Errorf("Unexpected error %q", msg)
	}

	w = do(t, router, http.MethodGet, "/v1/transliterate?text=ghar", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "घर") {
		t.Errorf("Expected upstream body forwarded, got %s", w.Body.String())
	}
}

func TestHandleTransliterate_UpstreamFailure(t *testing.T) {
	h := NewHandler(Deps{Transliterator: stubTransliterator{err: errors.New("dial tcp: refused")}})
	w := do(t, NewRouter(h), http.MethodGet, "/v1/transliterate?text=ghar", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestHandleUsage(t *testing.T) {
	store := usage.NewMemoryStore()
	_ = store.LogUsage(context.Background(), &usage.Record{ClientID: auth.ClientID("k1"), Action: "ocr", Success: true})
	_ = store.LogUsage(context.Background(), &usage.Record{ClientID: auth.ClientID("other"), Action: "ocr"})
	router := NewRouter(NewHandler(Deps{Usage: store}))

	w := do(t, router, http.MethodGet, "/v1/usage", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/v1/usage?from=yesterday", "k1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/v1/usage", "k1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["total_requests"] != float64(1) {
		t.Errorf("Expected 1 request for this client, got %v", resp["total_requests"])
	}
}

func TestHandleUsage_StoreErrorIsNotLeaked(t *testing.T) {
	router := NewRouter(NewHandler(Deps{Usage: failingUsageStore{}}))

	w := do(t, router, http.MethodGet, "/v1/usage", "k1", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	if msg := errorOf(t, w); msg != "failed to read usage" {
		t.Errorf("Unexpected error %q", msg)
	}
	if strings.Contains(w.Body.String(), "usage_logs") {
		t.Errorf("Store error leaked to client: %s", w.Body.String())
	}
}

func TestHandleUsage_RateLimitStatus(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(5)
	if _, err := limiter.Allow(context.Background(), auth.ClientID("k1")); err != nil {
		t.Fatal(err)
	}
	router := NewRouter(NewHandler(Deps{Usage: usage.NewMemoryStore(), Limiter: limiter}))

	w := do(t, router, http.MethodGet, "/v1/usage", "k1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		RateLimit *rateLimitStatus `json:"rate_limit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RateLimit == nil {
		t.Fatalf("Expected rate_limit in %s", w.Body.String())
	}
	if resp.RateLimit.Limit != 5 || resp.RateLimit.Remaining != 4 {
		t.Errorf("Unexpected rate limit status: %+v", *resp.RateLimit)
	}
}

func TestHandleTransliterateWord(t *testing.T) {
	h := NewHandler(Deps{Transliterator: stubTransliterator{suggestions: map[string][]string{
		"naam": {"नाम", "नम"},
	}}})
	router := NewRouter(h)

	w := do(t, router, http.MethodGet, "/v1/transliterate/word?text=mera+naam&cursor=9", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp wordSuggestions
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Text != "naam" || resp.Start != 5 || resp.End != 9 {
		t.Errorf("Unexpected word: %+v", resp.Word)
	}
	if len(resp.Suggestions) != 2 || resp.Suggestions[0] != "नाम" {
		t.Errorf("Unexpected suggestions: %v", resp.Suggestions)
	}

	// Cursor defaults to the end of the text.
	w = do(t, router, http.MethodGet, "/v1/transliterate/word?text=mera+naam", "", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Text != "naam" {
		t.Errorf("Expected word at end of text, got %+v", resp.Word)
	}

	w = do(t, router, http.MethodGet, "/v1/transliterate/word?text=mera+&cursor=5", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"suggestions":[]`) {
		t.Errorf("Expected empty suggestions, got %s", w.Body.String())
	}

	for _, path := range []string{
		"/v1/transliterate/word",
		"/v1/transliterate/word?text=ghar&cursor=9",
		"/v1/transliterate/word?text=ghar&cursor=x",
	} {
		if w := do(t, router, http.MethodGet, path, "", nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}
