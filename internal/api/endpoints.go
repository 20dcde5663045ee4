package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vnmchuo/grammar-gateway/internal/auth"
	"github.com/vnmchuo/grammar-gateway/internal/gateway"
	"github.com/vnmchuo/grammar-gateway/internal/grammar"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
	"github.com/vnmchuo/grammar-gateway/internal/transliterate"
)

type generateRequest struct {
	credentialFields
	Prompt   string          `json:"prompt"`
	Image    *provider.Image `json:"image,omitempty"`
	JSONMode *bool           `json:"jsonMode,omitempty"`
}

// HandleGenerate is the raw gateway call: the completion text comes back
// unmodified.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var opts []gateway.CallOption
	if req.JSONMode != nil {
		opts = append(opts, gateway.WithJSONMode(*req.JSONMode))
	}
	call := aiCall{action: "generate", credentials: req.credentialFields, vision: gateway.HasImage(req.Image)}
	h.runAI(w, r, call, func(ctx context.Context, creds grammar.Credentials) (any, error) {
		text, err := h.gen.Generate(ctx, creds.APIKey, creds.Provider, req.Prompt, req.Image, opts...)
		if err != nil {
			return nil, err
		}
		return map[string]string{"text": text}, nil
	})
}

type sentenceRequest struct {
	credentialFields
	grammar.SentenceInput
}

func (h *Handler) HandleSentence(w http.ResponseWriter, r *http.Request) {
	var req sentenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.runAI(w, r, aiCall{action: "sentence", credentials: req.credentialFields}, func(ctx context.Context, creds grammar.Credentials) (any, error) {
		return h.svc.GenerateSentence(ctx, creds, req.SentenceInput)
	})
}

type transformRequest struct {
	credentialFields
	Sentence string `json:"sentence"`
	Option   string `json:"option,omitempty"`
}

func (h *Handler) HandleTransform(w http.ResponseWriter, r *http.Request) {
	action, err := grammar.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var req transformRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.runAI(w, r, aiCall{action: "transform." + string(action), credentials: req.credentialFields}, func(ctx context.Context, creds grammar.Credentials) (any, error) {
		return h.svc.Transform(ctx, creds, action, req.Sentence, req.Option)
	})
}

type hindiRequest struct {
	credentialFields
	Sentence string `json:"sentence"`
}

func (h *Handler) HandleHindiTense(w http.ResponseWriter, r *http.Request) {
	var req hindiRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.runAI(w, r, aiCall{action: "hindi_tense", credentials: req.credentialFields}, func(ctx context.Context, creds grammar.Credentials) (any, error) {
		return h.svc.AnalyzeHindiTense(ctx, creds, req.Sentence)
	})
}

type suggestionsRequest struct {
	credentialFields
	Sentence grammar.TaggedSentence `json:"sentence"`
}

func (h *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.runAI(w, r, aiCall{action: "suggestions", credentials: req.credentialFields}, func(ctx context.Context, creds grammar.Credentials) (any, error) {
		suggestions, err := h.svc.Suggest(ctx, creds, req.Sentence)
		if err != nil {
			return nil, err
		}
		return map[string]any{"suggestions": suggestions}, nil
	})
}

type ocrRequest struct {
	credentialFields
	Image    provider.Image `json:"image"`
	Language string         `json:"language,omitempty"`
}

func (h *Handler) HandleOCR(w http.ResponseWriter, r *http.Request) {
	var req ocrRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lang, err := grammar.ParseOCRLanguage(req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.runAI(w, r, aiCall{action: "ocr", credentials: req.credentialFields, vision: true}, func(ctx context.Context, creds grammar.Credentials) (any, error) {
		text, err := h.svc.ExtractText(ctx, creds, req.Image, lang)
		if err != nil {
			return nil, err
		}
		return map[string]string{"text": text}, nil
	})
}

type tenseInfo struct {
	Name    string `json:"name"`
	RuleKey string `json:"ruleKey"`
	Formula string `json:"formula"`
}

func (h *Handler) HandleTenses(w http.ResponseWriter, r *http.Request) {
	names := grammar.Tenses()
	out := make([]tenseInfo, len(names))
	for i, name := range names {
		out[i] = tenseInfo{Name: name, RuleKey: grammar.TenseRuleKey(name), Formula: grammar.TenseFormula(name)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenses": out})
}

// HandleTransliterate proxies Google Input Tools and forwards its JSON.
func (h *Handler) HandleTransliterate(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "Missing text parameter")
		return
	}
	body, err := h.translit.Raw(r.Context(), text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Transliteration failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type wordSuggestions struct {
	transliterate.Word
	Suggestions []string `json:"suggestions"`
}

// HandleTransliterateWord finds the romanized word ending at cursor (default:
// end of text) and returns it with its Devanagari suggestions.
func (h *Handler) HandleTransliterateWord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "Missing text parameter")
		return
	}
	cursor := len(text)
	if s := q.Get("cursor"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > len(text) {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = n
	}

	word, ok := transliterate.CurrentWord(text, cursor)
	if !ok {
		writeJSON(w, http.StatusOK, wordSuggestions{
			Word:        transliterate.Word{Start: cursor, End: cursor},
			Suggestions: []string{},
		})
		return
	}
	writeJSON(w, http.StatusOK, wordSuggestions{Word: word, Suggestions: h.translit.Suggest(r.Context(), word.Text)})
}

type rateLimitStatus struct {
	Limit        int   `json:"limit"`
	Remaining    int64 `json:"remaining"`
	ResetSeconds int64 `json:"reset_seconds"`
}

func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, _ := auth.Resolve(ctx, "", "", h.defaultProvider)
	if strings.TrimSpace(key) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	clientID := auth.ClientID(key)

	// Parse query parameters
	now := time.Now()
	from := now.AddDate(0, 0, -30) // Default: last 30 days
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' date format (use RFC3339)")
			return
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' date format (use RFC3339)")
			return
		}
		to = t
	}

	logs, err := h.usage.GetUsageByClient(ctx, clientID, from, to)
	if err != nil {
		h.logger.Error("failed to read usage", zap.String("client_id", clientID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read usage")
		return
	}
	total, err := h.usage.CountByClient(ctx, clientID, from, to)
	if err != nil {
		h.logger.Error("failed to count usage", zap.String("client_id", clientID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read usage")
		return
	}

	resp := map[string]any{
		"client_id":      clientID,
		"total_requests": total,
		"logs":           logs,
		"from":           from,
		"to":             to,
	}
	if h.limiter != nil {
		st, err := h.limiter.Status(ctx, clientID)
		if err != nil {
			h.logger.Warn("rate limiter unavailable", zap.String("client_id", clientID), zap.Error(err))
		} else {
			resp["rate_limit"] = rateLimitStatus{
				Limit:        st.Limit,
				Remaining:    st.Remaining,
				ResetSeconds: int64(st.ResetAfter.Seconds()),
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
