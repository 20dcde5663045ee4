package gateway

import (
	"github.com/vnmchuo/grammar-gateway/internal/provider"
)

// Model constants. The multimodal provider uses one model for text and vision.
const (
	DefaultChatModel   = "llama-3.3-70b-versatile"
	VisionChatModel    = "meta-llama/llama-4-scout-17b-16e-instruct"
	MultimodalModel    = "gemini-1.5-flash"
	DefaultTemperature = 0.7
)

// ContentRequest is the provider-agnostic intent of a caller.
type ContentRequest struct {
	Prompt        string
	Image         *provider.Image
	JSONMode      bool
	ModelOverride string
	Temperature   float64
}

// HasImage reports whether img counts as an attached image. Both the base64
// data and the mime type must be non-empty; an empty string on either side
// makes the call text-only.
func HasImage(img *provider.Image) bool {
	return img != nil && img.Data != "" && img.MimeType != ""
}

// ModelFor returns the model used for a selector and modality.
func ModelFor(sel provider.Selector, multimodal bool) string {
	if sel == provider.ChatCompletion {
		if multimodal {
			return VisionChatModel
		}
		return DefaultChatModel
	}
	return MultimodalModel
}

// Build turns a ContentRequest into the transport request for sel.
// JSON mode is always dropped when an image is attached.
func Build(sel provider.Selector, cr ContentRequest) *provider.Request {
	multimodal := HasImage(cr.Image)

	msg := provider.Message{Role: "user"}
	if multimodal {
		img := *cr.Image
		// Both backends reject a text part with no text.
		if cr.Prompt != "" {
			msg.Parts = append(msg.Parts, provider.Part{Type: provider.PartText, Text: cr.Prompt})
		}
		msg.Parts = append(msg.Parts, provider.Part{Type: provider.PartImage, Image: &img})
	} else {
		msg.Content = cr.Prompt
	}

	req := &provider.Request{
		Model:       ModelFor(sel, multimodal),
		Messages:    []provider.Message{msg},
		Temperature: cr.Temperature,
		JSONMode:    cr.JSONMode && !multimodal,
	}

	// The override only applies to text calls; vision calls keep the vision model.
	if cr.ModelOverride != "" && !multimodal {
		req.Model = cr.ModelOverride
	}
	if sel == provider.ChatCompletion && req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
	return req
}
