package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vnmchuo/grammar-gateway/internal/grammar"
)

// textRenderer is implemented by results that have a human-readable form.
type textRenderer interface {
	renderText(w io.Writer)
}

func (a *app) print(v any) error {
	switch a.outputFlag {
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	if r, ok := v.(textRenderer); ok {
		r.renderText(a.stdout)
		return nil
	}
	_, err := fmt.Fprintln(a.stdout, v)
	return err
}

func writeTagged(w io.Writer, s grammar.TaggedSentence) {
	fmt.Fprintln(w, s.Text())
	tags := make([]string, len(s))
	for i, wp := range s {
		tags[i] = fmt.Sprintf("%s/%s", wp.Word, wp.POS)
	}
	fmt.Fprintln(w, "  "+strings.Join(tags, " "))
}

type sentenceView struct {
	grammar.SentenceOutput `yaml:",inline"`
}

func (v sentenceView) renderText(w io.Writer) { writeTagged(w, v.Sentence) }

type transformView struct {
	grammar.TransformResult `yaml:",inline"`
}

func (v transformView) renderText(w io.Writer) {
	writeTagged(w, v.Sentence)
	if v.HindiTranslation != "" {
		fmt.Fprintf(w, "Hindi: %s\n", v.HindiTranslation)
	}
	if v.Explanation != "" {
		fmt.Fprintf(w, "Why: %s\n", v.Explanation)
	}
}

type hindiView struct {
	grammar.HindiTenseAnalysis `yaml:",inline"`
}

func (v hindiView) renderText(w io.Writer) {
	fmt.Fprintf(w, "Tense: %s (%s)\n", v.IdentifiedEnglishTense, v.EnglishTenseRuleKey)
	fmt.Fprintf(w, "Reasoning: %s\n", v.Reasoning)
	if len(v.ExampleEnglishSentence) > 0 {
		fmt.Fprint(w, "Example: ")
		writeTagged(w, v.ExampleEnglishSentence)
	}
}

type tenseRow struct {
	Name    string `json:"name" yaml:"name"`
	RuleKey string `json:"ruleKey" yaml:"ruleKey"`
	Formula string `json:"formula" yaml:"formula"`
}

type tenseTable []tenseRow

func (t tenseTable) renderText(w io.Writer) {
	for _, row := range t {
		fmt.Fprintf(w, "%-28s %s\n", row.Name, row.Formula)
	}
}

type textResult struct {
	Text string `json:"text" yaml:"text"`
}

func (t textResult) renderText(w io.Writer) { fmt.Fprintln(w, t.Text) }

type suggestionList struct {
	Word        string   `json:"word" yaml:"word"`
	Suggestions []string `json:"suggestions" yaml:"suggestions"`
}

func (s suggestionList) renderText(w io.Writer) {
	for i, sug := range s.Suggestions {
		fmt.Fprintf(w, "%d. %s\n", i+1, sug)
	}
}

type appliedText struct {
	Text   string `json:"text" yaml:"text"`
	Cursor int    `json:"cursor" yaml:"cursor"`
}

func (t appliedText) renderText(w io.Writer) { fmt.Fprintln(w, t.Text) }
