package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type SentenceInput struct {
	Subject      string `json:"subject"`
	Verb         string `json:"verb"`
	Object       string `json:"object"`
	Tense        string `json:"tense"`
	Adjective    string `json:"adjective,omitempty"`
	Adverb       string `json:"adverb,omitempty"`
	Preposition  string `json:"preposition,omitempty"`
	Conjunction  string `json:"conjunction,omitempty"`
	Determiner   string `json:"determiner,omitempty"`
	Interjection string `json:"interjection,omitempty"`
	OtherWords   string `json:"otherWords,omitempty"`
}

func (in SentenceInput) validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"subject", in.Subject},
		{"verb", in.Verb},
		{"object", in.Object},
		{"tense", in.Tense},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return invalid(fmt.Sprintf("missing required field(s): %s", strings.Join(missing, ", ")))
	}
	return nil
}

type SentenceOutput struct {
	Sentence TaggedSentence `json:"sentence" yaml:"sentence"`
}

// BuildSentencePrompt renders the sentence generation prompt.
func BuildSentencePrompt(in SentenceInput) string {
	optional := []struct{ label, value string }{
		{"Adjective", in.Adjective},
		{"Adverb", in.Adverb},
		{"Preposition", in.Preposition},
		{"Conjunction", in.Conjunction},
		{"Determiner", in.Determiner},
		{"Interjection", in.Interjection},
		{"Other", in.OtherWords},
	}
	var lines []string
	for _, o := range optional {
		if o.value != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", o.label, o.value))
		}
	}
	optionalBlock := ""
	if len(lines) > 0 {
		optionalBlock = "Optional additions:\n" + strings.Join(lines, "\n")
	}

	formula := TenseFormula(in.Tense)
	if formula == "" {
		formula = fmt.Sprintf("Use the correct verb form for %q tense.", in.Tense)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert English grammar teacher. You must be VERY STRICT about tense accuracy.\n")
	fmt.Fprintf(&b, "Generate a natural, grammatically correct English sentence in the %q tense.\n\n", in.Tense)
	fmt.Fprintf(&b, "CRITICAL TENSE RULE: You MUST follow this formula exactly:\n%s\n\n", formula)
	b.WriteString("WARNING: Do NOT confuse similar tenses. For example:\n")
	b.WriteString("- \"Present Perfect\" uses \"have/has + V3\" (e.g., \"I have studied\"), NOT \"have been + V-ing\"\n")
	b.WriteString("- \"Present Perfect Continuous\" uses \"have/has + been + V-ing\" (e.g., \"I have been studying\")\n")
	b.WriteString("- \"Past Indefinite\" uses \"V2\" (e.g., \"I studied\"), NOT \"was/were + V-ing\"\n")
	fmt.Fprintf(&b, "These are DIFFERENT tenses. Use ONLY the formula for %q.\n\n", in.Tense)
	b.WriteString("Core Components:\n")
	fmt.Fprintf(&b, "- Subject: %s\n- Verb: %s\n- Object: %s\n\n", in.Subject, in.Verb, in.Object)
	if optionalBlock != "" {
		b.WriteString(optionalBlock + "\n\n")
	}
	b.WriteString("Instructions:\n")
	b.WriteString("1. Construct the sentence naturally using the EXACT tense formula above.\n")
	fmt.Fprintf(&b, "2. Double-check: does the verb form match %q exactly? If not, fix it.\n", in.Tense)
	b.WriteString("3. Break the sentence into an array of objects where each object has \"word\" and \"pos\" (e.g., \"Noun\", \"Verb\", \"Punctuation\").\n")
	b.WriteString("4. If a determiner is needed for correct grammar, add it automatically.\n")
	b.WriteString("5. Respond with ONLY a JSON object: { \"sentence\": [ { \"word\": \"...\", \"pos\": \"...\" }, ... ] }")
	return b.String()
}

// GenerateSentence asks the model for a tagged sentence in the requested tense.
func (s *Service) GenerateSentence(ctx context.Context, creds Credentials, in SentenceInput) (*SentenceOutput, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var reply struct {
		replyError
		Sentence json.RawMessage `json:"sentence"`
	}
	if err := s.generateJSON(ctx, creds, "sentence", BuildSentencePrompt(in), &reply); err != nil {
		return nil, err
	}
	if err := reply.err(); err != nil {
		return nil, err
	}
	sentence, ok := taggedField(reply.Sentence)
	if !ok {
		return nil, malformed("AI failed to generate a sentence output.")
	}
	return &SentenceOutput{Sentence: sentence}, nil
}
