package grammar

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// decodeJSON unmarshals a model reply into out. Replies that almost parse
// (code fences, trailing commas, single quotes) go through jsonrepair first.
func decodeJSON(text string, out any) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyCompletion
	}

	err := json.Unmarshal([]byte(text), out)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(text)
	if repairErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// replyError is embedded in reply shapes so that {"error": "..."} is detected.
type replyError struct {
	Error string `json:"error"`
}

func (r replyError) err() error {
	if strings.TrimSpace(r.Error) == "" {
		return nil
	}
	return &ModelError{Message: r.Error}
}

// taggedField decodes a raw field as a tagged sentence. It reports false when
// the field is absent, null or not an array of word/pos objects.
func taggedField(raw json.RawMessage) (TaggedSentence, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed[0] != '[' {
		return nil, false
	}
	var out TaggedSentence
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}
