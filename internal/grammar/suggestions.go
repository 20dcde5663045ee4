package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const suggestionExample = `{
    "suggestions": [
        [ { "word": "The", "pos": "Determiner" }, { "word": "cat", "pos": "Noun" }, { "word": "pursued", "pos": "Verb" }, { "word": "the", "pos": "Determiner" }, { "word": "mouse", "pos": "Noun" }, { "word": ".", "pos": "Punctuation" } ],
        [ { "word": "The", "pos": "Determiner" }, { "word": "mouse", "pos": "Noun" }, { "word": "was", "pos": "Verb" }, { "word": "chased", "pos": "Verb" }, { "word": "by", "pos": "Preposition" }, { "word": "the", "pos": "Determiner" }, { "word": "cat", "pos": "Noun" }, { "word": ".", "pos": "Punctuation" } ],
        [ { "word": "The", "pos": "Determiner" }, { "word": "feline", "pos": "Noun" }, { "word": "ran", "pos": "Verb" }, { "word": "after", "pos": "Preposition" }, { "word": "the", "pos": "Determiner" }, { "word": "rodent", "pos": "Noun" }, { "word": ".", "pos": "Punctuation" } ]
    ]
}`

// BuildSuggestPrompt renders the rewrite prompt. The words are joined with
// plain spaces, punctuation included.
func BuildSuggestPrompt(original TaggedSentence) string {
	words := make([]string, len(original))
	for i, w := range original {
		words[i] = w.Word
	}

	var b strings.Builder
	b.WriteString("You are an AI language assistant. Your task is to rewrite a sentence in three different ways.\n")
	b.WriteString("The core meaning and tense should remain the same, but the structure, vocabulary, or style should be varied.\n\n")
	fmt.Fprintf(&b, "Original Sentence: %q\n\n", strings.Join(words, " "))
	b.WriteString("Task:\n")
	b.WriteString("1. Generate exactly three alternative versions of the original sentence.\n")
	b.WriteString("2. For each new sentence, break it down into an array of objects, where each object has a \"word\" and a \"pos\" (Part-of-Speech) tag.\n")
	b.WriteString("3. Ensure the output is a JSON object with a single key \"suggestions\", which is an array containing the three tagged sentences.\n\n")
	b.WriteString("Example Output Structure:\n")
	b.WriteString(suggestionExample)
	return b.String()
}

// Suggest returns alternative phrasings of a tagged sentence, exactly as the
// model listed them.
func (s *Service) Suggest(ctx context.Context, creds Credentials, original TaggedSentence) ([]TaggedSentence, error) {
	if len(original) == 0 {
		return nil, invalid("Please provide a sentence.")
	}

	var reply struct {
		replyError
		Suggestions json.RawMessage `json:"suggestions"`
	}
	if err := s.generateJSON(ctx, creds, "suggestions", BuildSuggestPrompt(original), &reply); err != nil {
		return nil, err
	}
	if err := reply.err(); err != nil {
		return nil, err
	}

	missing := malformed("AI response did not contain a 'suggestions' array.")
	raw := strings.TrimSpace(string(reply.Suggestions))
	if raw == "" || raw[0] != '[' {
		return nil, missing
	}
	var items []json.RawMessage
	if err := json.Unmarshal(reply.Suggestions, &items); err != nil {
		return nil, missing
	}
	out := make([]TaggedSentence, 0, len(items))
	for _, item := range items {
		sentence, ok := taggedField(item)
		if !ok {
			return nil, malformed("AI response contained a suggestion that is not a tagged sentence.")
		}
		out = append(out, sentence)
	}
	return out, nil
}
