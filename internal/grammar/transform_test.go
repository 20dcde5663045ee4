package grammar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_ResultFieldPrecedence(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		want        string
		explanation string
	}{
		{
			name:        "generated question",
			reply:       `{"generatedQuestion":[{"word":"Why","pos":"Adverb"},{"word":"?","pos":"Punctuation"}],"hindiTranslation":"क्यों?","explanation":"wh-question"}`,
			want:        "Why?",
			explanation: "wh-question",
		},
		{
			name:        "sentence beats transformedSentence",
			reply:       `{"transformedSentence":[{"word":"B","pos":"Noun"}],"sentence":[{"word":"A","pos":"Noun"}],"explanation":"x"}`,
			want:        "A",
			explanation: "x",
		},
		{
			name:  "analysis drops explanation",
			reply: `{"taggedSentence":[{"word":"The","pos":"Determiner"},{"word":"cat","pos":"Noun"}],"hindiTranslation":"बिल्ली","explanation":"ignored"}`,
			want:  "The cat",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(replying(tt.reply), nil)
			res, err := svc.Transform(context.Background(), testCreds, ActionQuestion, "He runs.", "Why")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Sentence.Text())
			assert.Equal(t, tt.explanation, res.Explanation)
		})
	}
}

func TestTransform_HindiTranslation(t *testing.T) {
	svc := NewService(replying(`{"taggedSentence":[{"word":"Go","pos":"Verb"}],"hindiTranslation":"जाओ"}`), nil)
	res, err := svc.Transform(context.Background(), testCreds, ActionAnalyze, "Go", "")
	require.NoError(t, err)
	assert.Equal(t, "जाओ", res.HindiTranslation)
	assert.Empty(t, res.Explanation)
}

func TestTransform_UnexpectedShape(t *testing.T) {
	svc := NewService(replying(`{"hindiTranslation":"x"}`), nil)
	_, err := svc.Transform(context.Background(), testCreds, ActionVoice, "The cat chased the mouse.", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, "The AI response was not in the expected format.", err.Error())
}

func TestTransform_ModelError(t *testing.T) {
	svc := NewService(replying(`{"error":"That is not a sentence."}`), nil)
	_, err := svc.Transform(context.Background(), testCreds, ActionArticles, "asdf", "")
	var merr *ModelError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "That is not a sentence.", merr.Message)
}

func TestTransform_InputValidation(t *testing.T) {
	tests := []struct {
		name     string
		action   Action
		sentence string
		option   string
		message  string
	}{
		{"blank sentence", ActionAnalyze, "   ", "", "Please provide a sentence."},
		{"modal without verb", ActionModal, "He swims.", "", "Please select a modal verb."},
		{"bad modal", ActionModal, "He swims.", "would", `"would" is not a valid modal verb`},
		{"bad conditional", ActionConditional, "He swims.", "Fourth", `"Fourth" is not a valid conditional type`},
		{"bad question", ActionQuestion, "He swims.", "Which", `"Which" is not a valid question type`},
		{"unknown action", Action("shout"), "He swims.", "", `unknown action "shout"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := replying("{}")
			_, err := NewService(gen, nil).Transform(context.Background(), testCreds, tt.action, tt.sentence, tt.option)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.message)
			assert.Empty(t, gen.calls, "no AI call for invalid input")
		})
	}
}

func TestTransform_OptionsReachPrompt(t *testing.T) {
	gen := replying(`{"rewrittenSentence":[{"word":"He","pos":"Pronoun"}]}`)
	svc := NewService(gen, nil)

	_, err := svc.Transform(context.Background(), testCreds, ActionModal, "He swims.", "MIGHT")
	require.NoError(t, err)
	_, err = svc.Transform(context.Background(), testCreds, ActionConditional, "He swims.", "")
	require.NoError(t, err)
	_, err = svc.Transform(context.Background(), testCreds, ActionQuestion, "He swims.", "yes/no")
	require.NoError(t, err)

	require.Len(t, gen.calls, 3)
	assert.Contains(t, gen.calls[0].prompt, `using the modal verb "might"`)
	assert.Contains(t, gen.calls[1].prompt, "into a Zero Conditional sentence")
	assert.Contains(t, gen.calls[2].prompt, `into a "Yes/No" type question`)
	for _, c := range gen.calls {
		assert.True(t, c.jsonMode)
	}
}

func TestBuildTransformPrompt_EveryAction(t *testing.T) {
	keys := map[Action]string{
		ActionAnalyze:     `"taggedSentence"`,
		ActionQuestion:    `"generatedQuestion"`,
		ActionModal:       `"rewrittenSentence"`,
		ActionConditional: `"transformedSentence"`,
		ActionArticles:    `"rewrittenSentence"`,
		ActionPunctuation: `"rewrittenSentence"`,
		ActionVoice:       `"transformedSentence"`,
		ActionSpeech:      `"transformedSentence"`,
	}
	require.Len(t, keys, len(Actions()))
	for action, key := range keys {
		prompt := BuildTransformPrompt(action, "the cat sat", "can")
		assert.Contains(t, prompt, `"the cat sat"`, action)
		assert.Contains(t, prompt, key, action)
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Voice ")
	require.NoError(t, err)
	assert.Equal(t, ActionVoice, a)

	_, err = ParseAction("nope")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
