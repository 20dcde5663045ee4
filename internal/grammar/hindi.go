package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// InvalidHindiMessage is what the model is told to answer for non-Hindi input.
const InvalidHindiMessage = "The provided text does not appear to be a valid Hindi sentence."

type HindiTenseAnalysis struct {
	IdentifiedEnglishTense string         `json:"identifiedEnglishTense" yaml:"identifiedEnglishTense"`
	Reasoning              string         `json:"reasoning" yaml:"reasoning"`
	ExampleEnglishSentence TaggedSentence `json:"exampleEnglishSentence" yaml:"exampleEnglishSentence"`
	EnglishTenseRuleKey    string         `json:"englishTenseRuleKey" yaml:"englishTenseRuleKey"`
}

func BuildHindiTensePrompt(hindi string) string {
	var b strings.Builder
	b.WriteString("You are an expert English teacher who is fluent in Hindi.\n")
	b.WriteString("Analyze the following Hindi sentence to determine the most appropriate English tense to convey the same meaning.\n\n")
	fmt.Fprintf(&b, "Hindi Sentence: %q\n\n", hindi)
	b.WriteString("Task:\n")
	b.WriteString("1. Identify the most suitable English tense (e.g., \"Present Perfect\", \"Past Indefinite\").\n")
	b.WriteString("2. Provide a clear, concise reasoning for your choice, referencing cues from the Hindi sentence (like \"रहा था\", \"चुका है\", etc.).\n")
	b.WriteString("3. Create a simple, clear example English sentence that uses this tense and reflects the meaning of the Hindi sentence.\n")
	b.WriteString("4. Break down your example English sentence into an array of objects, with each object having a \"word\" and its \"pos\" (Part-of-Speech) tag.\n")
	b.WriteString("5. Provide the exact key for the English tense (e.g., \"PastPerfect\") for rule lookup.\n\n")
	b.WriteString("Respond with ONLY a JSON object with the following keys: \"identifiedEnglishTense\", \"reasoning\", \"exampleEnglishSentence\", \"englishTenseRuleKey\".\n")
	fmt.Fprintf(&b, "If the input is not valid Hindi, respond with { \"error\": %q }.", InvalidHindiMessage)
	return b.String()
}

// AnalyzeHindiTense picks the English tense that best renders a Hindi sentence.
func (s *Service) AnalyzeHindiTense(ctx context.Context, creds Credentials, hindi string) (*HindiTenseAnalysis, error) {
	hindi = strings.TrimSpace(hindi)
	if hindi == "" {
		return nil, invalid("कृपया विश्लेषण के लिए एक हिंदी वाक्य दर्ज करें।")
	}

	var reply struct {
		replyError
		IdentifiedEnglishTense string          `json:"identifiedEnglishTense"`
		Reasoning              string          `json:"reasoning"`
		ExampleEnglishSentence json.RawMessage `json:"exampleEnglishSentence"`
		EnglishTenseRuleKey    string          `json:"englishTenseRuleKey"`
	}
	if err := s.generateJSON(ctx, creds, "hindi-tense", BuildHindiTensePrompt(hindi), &reply); err != nil {
		return nil, err
	}
	if err := reply.err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply.IdentifiedEnglishTense) == "" {
		return nil, malformed("The AI response did not identify an English tense.")
	}

	out := &HindiTenseAnalysis{
		IdentifiedEnglishTense: reply.IdentifiedEnglishTense,
		Reasoning:              reply.Reasoning,
		EnglishTenseRuleKey:    reply.EnglishTenseRuleKey,
	}
	if example, ok := taggedField(reply.ExampleEnglishSentence); ok {
		out.ExampleEnglishSentence = example
	}
	if out.EnglishTenseRuleKey == "" {
		out.EnglishTenseRuleKey = TenseRuleKey(out.IdentifiedEnglishTense)
	}
	return out, nil
}
