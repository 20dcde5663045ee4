package grammar

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/vnmchuo/grammar-gateway/internal/gateway"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
)

type OCRLanguage string

const (
	OCREnglish OCRLanguage = "english"
	OCRHindi   OCRLanguage = "hindi"
)

// ErrNoTextExtracted is returned when the cleaned OCR reply is empty.
var ErrNoTextExtracted = malformed("No text could be extracted from the image. Please try a clearer photo.")

func ParseOCRLanguage(s string) (OCRLanguage, error) {
	switch OCRLanguage(strings.ToLower(strings.TrimSpace(s))) {
	case "", OCREnglish:
		return OCREnglish, nil
	case OCRHindi:
		return OCRHindi, nil
	}
	return "", invalid(fmt.Sprintf("unsupported OCR language %q; use english or hindi", s))
}

func BuildOCRPrompt(lang OCRLanguage) string {
	if lang == OCRHindi {
		return "Extract ALL text from this image exactly as it appears. The text may be in Hindi (Devanagari script) or English or mixed. Return ONLY the extracted text, nothing else. No explanations, no formatting, no quotes. Just the raw text."
	}
	return "Extract ALL text from this image exactly as it appears. The text is likely in English. Return ONLY the extracted text, nothing else. No explanations, no formatting, no quotes. Just the raw text."
}

var (
	wrappingQuotes = regexp.MustCompile("^[\"'`]+|[\"'`]+$")
	openingFence   = regexp.MustCompile("^```[^\\n]*\\n")
	closingFence   = regexp.MustCompile("\\n```$")
)

// CleanOCRText strips the quotes and code fences models like to wrap plain
// text in.
func CleanOCRText(text string) string {
	text = strings.TrimSpace(text)
	text = wrappingQuotes.ReplaceAllString(text, "")
	text = openingFence.ReplaceAllString(text, "")
	text = closingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ExtractText reads the text out of a photo. The reply is free text, not JSON.
func (s *Service) ExtractText(ctx context.Context, creds Credentials, image provider.Image, lang OCRLanguage) (string, error) {
	if image.Data == "" || image.MimeType == "" {
		return "", invalid("An image with base64Data and mimeType is required.")
	}
	if lang == "" {
		lang = OCREnglish
	}

	text, err := s.gen.Generate(ctx, creds.APIKey, creds.Provider, BuildOCRPrompt(lang), &image, gateway.WithJSONMode(false))
	if err != nil {
		return "", err
	}
	cleaned := CleanOCRText(text)
	if cleaned == "" {
		s.logger.Info("ocr produced no text", zap.String("language", string(lang)), zap.Int("reply_len", len(text)))
		return "", ErrNoTextExtracted
	}
	return cleaned, nil
}
