package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type Action string

const (
	ActionAnalyze     Action = "analyze"
	ActionQuestion    Action = "question"
	ActionModal       Action = "modal"
	ActionConditional Action = "conditional"
	ActionArticles    Action = "articles"
	ActionPunctuation Action = "punctuation"
	ActionVoice       Action = "voice"
	ActionSpeech      Action = "speech"
)

var (
	QuestionTypes = []string{"What", "Why", "When", "Where", "Who", "How", "Yes/No"}
	ModalVerbs    = []string{"can", "could", "may", "might", "must", "should"}
	Conditionals  = []string{"Zero", "First", "Second", "Third"}
)

// Actions lists every transform action in menu order.
func Actions() []Action {
	return []Action{
		ActionAnalyze, ActionQuestion, ActionModal, ActionConditional,
		ActionArticles, ActionPunctuation, ActionVoice, ActionSpeech,
	}
}

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Actions(), a) {
		return a, nil
	}
	return "", invalid(fmt.Sprintf("unknown action %q", s))
}

type TransformResult struct {
	Sentence         TaggedSentence `json:"sentence" yaml:"sentence"`
	HindiTranslation string         `json:"hindiTranslation,omitempty" yaml:"hindiTranslation,omitempty"`
	Explanation      string         `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

const posHint = `"word" (string) and "pos" (Part-of-Speech tag string like "Noun", "Verb", "Adjective", "Adverb", "Pronoun", "Preposition", "Conjunction", "Determiner", "Auxiliary", "Punctuation", etc.)`

// optionFor returns the validated option for actions that take one. Question
// and conditional default to their first choice; modal has no default.
func optionFor(action Action, option string) (string, error) {
	option = strings.TrimSpace(option)
	pick := func(allowed []string, fallback, label string) (string, error) {
		if option == "" {
			if fallback == "" {
				return "", invalid(fmt.Sprintf("Please select a %s.", label))
			}
			return fallback, nil
		}
		for _, a := range allowed {
			if strings.EqualFold(a, option) {
				return a, nil
			}
		}
		return "", invalid(fmt.Sprintf("%q is not a valid %s; choose one of: %s", option, label, strings.Join(allowed, ", ")))
	}

	switch action {
	case ActionQuestion:
		return pick(QuestionTypes, QuestionTypes[0], "question type")
	case ActionModal:
		return pick(ModalVerbs, "", "modal verb")
	case ActionConditional:
		return pick(Conditionals, Conditionals[0], "conditional type")
	}
	return "", nil
}

// BuildTransformPrompt renders the prompt for action. The option must already
// be validated.
func BuildTransformPrompt(action Action, sentence, option string) string {
	var b strings.Builder
	b.WriteString("You are an English grammar expert. ")

	switch action {
	case ActionAnalyze:
		fmt.Fprintf(&b, "Analyze the following sentence.\nSentence: %q\nTask:\n", sentence)
		fmt.Fprintf(&b, "1. Break down into an array of objects, each with %s.\n", posHint)
		b.WriteString("2. Translate into natural Hindi.\n")
		b.WriteString(`3. Respond with ONLY a valid JSON object (no extra text): { "taggedSentence": [{"word":"The","pos":"Determiner"},{"word":"cat","pos":"Noun"},...], "hindiTranslation": "..." }`)

	case ActionQuestion:
		fmt.Fprintf(&b, "Transform the following sentence into a %q type question.\nSentence: %q\nTask:\n", option, sentence)
		b.WriteString("1. Generate the question from the given sentence.\n")
		b.WriteString("2. Explain the grammar rule for forming this type of question in simple language.\n")
		fmt.Fprintf(&b, "3. Break down the generated question into an array of objects, each with %s.\n", posHint)
		b.WriteString("4. Translate the generated question into natural Hindi.\n")
		b.WriteString("Respond with ONLY a valid JSON object (no extra text):\n")
		b.WriteString(`{ "generatedQuestion": [{"word":"What","pos":"Pronoun"},{"word":"do","pos":"Auxiliary"},...], "hindiTranslation": "...", "explanation": "..." }`)

	case ActionModal:
		fmt.Fprintf(&b, "Rewrite the following sentence using the modal verb %q.\nSentence: %q\nTask:\n", option, sentence)
		fmt.Fprintf(&b, "1. Rewrite the sentence correctly using %q.\n", option)
		b.WriteString("2. Explain the modal verb usage rule in simple language.\n")
		fmt.Fprintf(&b, "3. Break down the rewritten sentence into an array of objects, each with %s.\n", posHint)
		b.WriteString("4. Translate the rewritten sentence into natural Hindi.\n")
		b.WriteString("Respond with ONLY a valid JSON object (no extra text):\n")
		b.WriteString(`{ "rewrittenSentence": [{"word":"He","pos":"Pronoun"},{"word":"can","pos":"Auxiliary"},...], "hindiTranslation": "...", "explanation": "..." }`)

	case ActionConditional:
		fmt.Fprintf(&b, "Transform the following sentence into a %s Conditional sentence.\nSentence: %q\nTask:\n", option, sentence)
		fmt.Fprintf(&b, "1. Rewrite the sentence as a %s conditional.\n", option)
		b.WriteString("2. Explain the conditional rule applied in simple language.\n")
		fmt.Fprintf(&b, "3. Break down the transformed sentence into an array of objects, each with %s.\n", posHint)
		b.WriteString("4. Translate the transformed sentence into natural Hindi.\n")
		b.WriteString("Respond with ONLY a valid JSON object (no extra text):\n")
		b.WriteString(`{ "transformedSentence": [{"word":"If","pos":"Conjunction"},{"word":"I","pos":"Pronoun"},...], "hindiTranslation": "...", "explanation": "..." }`)

	case ActionArticles:
		fmt.Fprintf(&b, "Analyze the articles (a, an, the) in the following sentence.\nSentence: %q\nTask:\n", sentence)
		b.WriteString("1. Check if articles are used correctly. If missing or wrong, suggest corrections.\n")
		b.WriteString("2. Explain the article rules for each used or suggested article in simple language.\n")
		fmt.Fprintf(&b, "3. Break down the corrected sentence into an array of objects, each with %s.\n", posHint)
		b.WriteString("4. Translate the corrected sentence into natural Hindi.\n")
		b.WriteString("Respond with ONLY a valid JSON object (no extra text):\n")
		b.WriteString(`{ "rewrittenSentence": [{"word":"The","pos":"Determiner"},{"word":"cat","pos":"Noun"},...], "hindiTranslation": "...", "explanation": "..." }`)

	case ActionPunctuation:
		b.WriteString("Add correct punctuation to the following sentence. The sentence may be missing commas, periods, question marks, exclamation marks, apostrophes, quotation marks, colons, semicolons, or capital letters at the start. ")
		fmt.Fprintf(&b, "Sentence: %q. Task: 1. Add all missing punctuation marks and fix capitalization. ", sentence)
		b.WriteString("2. Explain what punctuation was added and why, referencing punctuation rules. ")
		fmt.Fprintf(&b, "3. Break down the punctuated sentence into an array of objects, each with %s. ", posHint)
		b.WriteString("4. Translate the punctuated sentence into natural Hindi. ")
		b.WriteString(`Respond with ONLY a valid JSON object (no extra text): { "rewrittenSentence": [{"word":"He","pos":"Pronoun"},{"word":"said","pos":"Verb"},{"word":",","pos":"Punctuation"},{"word":"Hello","pos":"Interjection"},{"word":"!","pos":"Punctuation"}], "hindiTranslation": "...", "explanation": "..." }`)

	case ActionVoice:
		b.WriteString("Transform the following sentence to the other grammatical voice (active to passive or passive to active). ")
		fmt.Fprintf(&b, "Sentence: %q. Task: 1. Transform the voice. 2. Explain the rule. ", sentence)
		b.WriteString(`3. Break down into array of objects with "word" (string) and "pos" (string like "Noun","Verb","Auxiliary", etc.). 4. Translate to Hindi. `)
		b.WriteString(`Respond with ONLY valid JSON: { "transformedSentence": [{"word":"The","pos":"Determiner"},...], "hindiTranslation": "...", "explanation": "..." }`)

	case ActionSpeech:
		b.WriteString("Transform the following sentence between direct and indirect (reported) speech. ")
		fmt.Fprintf(&b, "Sentence: %q. Task: 1. Transform the speech type. 2. Explain the rule. ", sentence)
		b.WriteString(`3. Break down into array of objects with "word" (string) and "pos" (string like "Noun","Verb","Auxiliary", etc.). 4. Translate to Hindi. `)
		b.WriteString(`Respond with ONLY valid JSON: { "transformedSentence": [{"word":"He","pos":"Pronoun"},...], "hindiTranslation": "...", "explanation": "..." }`)
	}
	return b.String()
}

type transformReply struct {
	replyError
	Sentence            json.RawMessage `json:"sentence"`
	TransformedSentence json.RawMessage `json:"transformedSentence"`
	RewrittenSentence   json.RawMessage `json:"rewrittenSentence"`
	GeneratedQuestion   json.RawMessage `json:"generatedQuestion"`
	TaggedSentence      json.RawMessage `json:"taggedSentence"`
	HindiTranslation    string          `json:"hindiTranslation"`
	Explanation         string          `json:"explanation"`
}

func (r *transformReply) result() (*TransformResult, error) {
	for _, raw := range []json.RawMessage{r.Sentence, r.TransformedSentence, r.RewrittenSentence, r.GeneratedQuestion} {
		if s, ok := taggedField(raw); ok {
			return &TransformResult{Sentence: s, HindiTranslation: r.HindiTranslation, Explanation: r.Explanation}, nil
		}
	}
	// Analysis replies carry no explanation.
	if s, ok := taggedField(r.TaggedSentence); ok {
		return &TransformResult{Sentence: s, HindiTranslation: r.HindiTranslation}, nil
	}
	return nil, malformed("The AI response was not in the expected format.")
}

// Transform applies a grammar action to a sentence and returns the tagged
// result with its Hindi translation.
func (s *Service) Transform(ctx context.Context, creds Credentials, action Action, sentence, option string) (*TransformResult, error) {
	if !slices.Contains(Actions(), action) {
		return nil, invalid(fmt.Sprintf("unknown action %q", action))
	}
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return nil, invalid("Please provide a sentence.")
	}
	opt, err := optionFor(action, option)
	if err != nil {
		return nil, err
	}

	var reply transformReply
	if err := s.generateJSON(ctx, creds, string(action), BuildTransformPrompt(action, sentence, opt), &reply); err != nil {
		return nil, err
	}
	if err := reply.err(); err != nil {
		return nil, err
	}
	return reply.result()
}
