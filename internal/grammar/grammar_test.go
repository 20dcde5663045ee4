package grammar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/grammar-gateway/internal/gateway"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
)

type generateCall struct {
	credential string
	sel        provider.Selector
	prompt     string
	image      *provider.Image
	jsonMode   bool
}

type mockGenerator struct {
	calls      []generateCall
	generateFn func(prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, credential string, sel provider.Selector, prompt string, image *provider.Image, opts ...gateway.CallOption) (string, error) {
	cr := gateway.ContentRequest{JSONMode: true}
	for _, opt := range opts {
		opt(&cr)
	}
	m.calls = append(m.calls, generateCall{credential: credential, sel: sel, prompt: prompt, image: image, jsonMode: cr.JSONMode})
	return m.generateFn(prompt)
}

func replying(text string) *mockGenerator {
	return &mockGenerator{generateFn: func(string) (string, error) { return text, nil }}
}

var testCreds = Credentials{APIKey: "k1", Provider: provider.ChatCompletion}

func TestTaggedSentenceText(t *testing.T) {
	s := TaggedSentence{
		{"He", "Pronoun"}, {"said", "Verb"}, {",", "Punctuation"},
		{"hello", "Interjection"}, {"!", "Punctuation"}, {"Really", "Adverb"}, {"?", "Punctuation"},
		{"Yes", "Interjection"}, {".", "Punctuation"},
	}
	assert.Equal(t, "He said, hello! Really? Yes.", s.Text())
	assert.Equal(t, "", TaggedSentence(nil).Text())
}

func TestDecodeJSON(t *testing.T) {
	var out map[string]any
	assert.ErrorIs(t, decodeJSON("  \n", &out), ErrEmptyCompletion)

	require.NoError(t, decodeJSON(`{"a":1,}`, &out))
	assert.EqualValues(t, 1, out["a"])

	require.NoError(t, decodeJSON("```json\n{\"b\": 2}\n```", &out))
	assert.EqualValues(t, 2, out["b"])
}

func TestReplyErrorSurfacesModelMessage(t *testing.T) {
	svc := NewService(replying(`{"error":"`+InvalidHindiMessage+`"}`), nil)
	_, err := svc.AnalyzeHindiTense(context.Background(), testCreds, "hello there")

	var merr *ModelError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, InvalidHindiMessage, err.Error())
}

func TestGenerateSentence(t *testing.T) {
	gen := replying(`{"sentence":[{"word":"She","pos":"Pronoun"},{"word":"has","pos":"Auxiliary"},{"word":"read","pos":"Verb"},{"word":"books","pos":"Noun"},{"word":".","pos":"Punctuation"}]}`)
	svc := NewService(gen, nil)

	out, err := svc.GenerateSentence(context.Background(), testCreds, SentenceInput{
		Subject: "She", Verb: "read", Object: "books", Tense: "Present Perfect", Adverb: "already",
	})
	require.NoError(t, err)
	assert.Equal(t, "She has read books.", out.Sentence.Text())

	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	assert.True(t, call.jsonMode)
	assert.Nil(t, call.image)
	assert.Equal(t, "k1", call.credential)
	assert.Contains(t, call.prompt, TenseFormula("Present Perfect"))
	assert.Contains(t, call.prompt, "- Adverb: already")
	assert.NotContains(t, call.prompt, "- Adjective:")
}

func TestGenerateSentence_UnknownTenseFallback(t *testing.T) {
	prompt := BuildSentencePrompt(SentenceInput{Subject: "I", Verb: "go", Object: "home", Tense: "Aorist"})
	assert.Contains(t, prompt, `Use the correct verb form for "Aorist" tense.`)
	assert.NotContains(t, prompt, "Optional additions:")
}

func TestGenerateSentence_Errors(t *testing.T) {
	valid := SentenceInput{Subject: "I", Verb: "go", Object: "home", Tense: "Past Indefinite"}

	t.Run("missing fields", func(t *testing.T) {
		gen := replying("{}")
		_, err := NewService(gen, nil).GenerateSentence(context.Background(), testCreds, SentenceInput{Subject: "I"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "verb, object, tense")
		assert.Empty(t, gen.calls)
	})

	for name, reply := range map[string]string{
		"no sentence":    `{"other":1}`,
		"string":         `{"sentence":"I went home."}`,
		"null":           `{"sentence":null}`,
		"object instead": `{"sentence":{"word":"I"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewService(replying(reply), nil).GenerateSentence(context.Background(), testCreds, valid)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, "AI failed to generate a sentence output.", err.Error())
		})
	}

	t.Run("empty completion", func(t *testing.T) {
		_, err := NewService(replying(""), nil).GenerateSentence(context.Background(), testCreds, valid)
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := NewService(replying("I went home."), nil).GenerateSentence(context.Background(), testCreds, valid)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("gateway error passes through", func(t *testing.T) {
		boom := &provider.Error{Kind: provider.KindTransport, Message: "quota exceeded"}
		gen := &mockGenerator{generateFn: func(string) (string, error) { return "", boom }}
		_, err := NewService(gen, nil).GenerateSentence(context.Background(), testCreds, valid)
		assert.True(t, errors.Is(err, boom))
	})
}

func TestTenses(t *testing.T) {
	names := Tenses()
	require.Len(t, names, 12)
	assert.Equal(t, "Present Indefinite", names[0])
	assert.Equal(t, "Future Perfect Continuous", names[11])
	for _, name := range names {
		assert.NotEmpty(t, TenseFormula(name), name)
	}

	names[0] = "mutated"
	assert.Equal(t, "Present Indefinite", Tenses()[0])

	assert.Equal(t, "PastPerfect", TenseRuleKey("Past Perfect"))
	assert.Equal(t, "PresentPerfectContinuous", TenseRuleKey(" Present  Perfect Continuous "))
}
