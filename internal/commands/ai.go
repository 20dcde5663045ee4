package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vnmchuo/grammar-gateway/internal/gateway"
	"github.com/vnmchuo/grammar-gateway/internal/grammar"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
	"github.com/vnmchuo/grammar-gateway/internal/transliterate"
)

// loadImage reads a photo from disk as the base64 payload the gateway sends.
func loadImage(path string) (*provider.Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, exitWithCode(ExitValidation, fmt.Errorf("failed to read image: %w", err))
	}
	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		return nil, exitWithCode(ExitValidation, fmt.Errorf("%s does not look like an image (%s)", path, mime))
	}
	return &provider.Image{Data: base64.StdEncoding.EncodeToString(raw), MimeType: mime}, nil
}

// textArg joins positional args, or reads a line from stdin when there are none.
func (a *app) textArg(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	return readLine(a.stdin)
}

func (a *app) generateCommand() *cobra.Command {
	var (
		promptText string
		imagePath  string
		jsonMode   bool
		model      string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Send a raw prompt through the gateway and print the reply unchanged",
		Example: `  grammarlab generate --prompt "Say hi as JSON"
  grammarlab generate --provider groq --json-mode=false --prompt "Describe this" --image photo.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.credentials()
			if err != nil {
				return err
			}
			var img *provider.Image
			if imagePath != "" {
				if img, err = loadImage(imagePath); err != nil {
					return err
				}
			}
			opts := []gateway.CallOption{gateway.WithJSONMode(jsonMode)}
			if model != "" {
				opts = append(opts, gateway.WithModel(model))
			}
			_, gen := a.service()
			text, err := gen.Generate(cmd.Context(), creds.APIKey, creds.Provider, promptText, img, opts...)
			if err != nil {
				return classify(err)
			}
			return a.print(textResult{Text: text})
		},
	}
	cmd.Flags().StringVar(&promptText, "prompt", "", "prompt text (required)")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to an image to attach")
	cmd.Flags().BoolVar(&jsonMode, "json-mode", true, "ask the provider for a JSON reply")
	cmd.Flags().StringVar(&model, "model", "", "override the model for text calls")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func (a *app) sentenceCommand() *cobra.Command {
	var in grammar.SentenceInput
	cmd := &cobra.Command{
		Use:   "sentence",
		Short: "Build a tagged sentence in a given tense",
		Example: `  grammarlab sentence --subject She --verb read --object books --tense "Present Perfect"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.credentials()
			if err != nil {
				return err
			}
			svc, _ := a.service()
			out, err := svc.GenerateSentence(cmd.Context(), creds, in)
			if err != nil {
				return classify(err)
			}
			return a.print(sentenceView{*out})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Subject, "subject", "", "subject (required)")
	f.StringVar(&in.Verb, "verb", "", "verb (required)")
	f.StringVar(&in.Object, "object", "", "object (required)")
	f.StringVar(&in.Tense, "tense", "", "one of the tenses listed by 'grammarlab tenses' (required)")
	f.StringVar(&in.Adjective, "adjective", "", "optional adjective")
	f.StringVar(&in.Adverb, "adverb", "", "optional adverb")
	f.StringVar(&in.Preposition, "preposition", "", "optional preposition")
	f.StringVar(&in.Conjunction, "conjunction", "", "optional conjunction")
	f.StringVar(&in.Determiner, "determiner", "", "optional determiner")
	f.StringVar(&in.Interjection, "interjection", "", "optional interjection")
	f.StringVar(&in.OtherWords, "other", "", "other words to weave in")
	return cmd
}

func (a *app) transformCommand() *cobra.Command {
	var option string
	actions := make([]string, 0, len(grammar.Actions()))
	for _, act := range grammar.Actions() {
		actions = append(actions, string(act))
	}
	cmd := &cobra.Command{
		Use:       "transform <action> [sentence...]",
		Short:     "Analyze or rewrite a sentence",
		Long:      "Actions: " + strings.Join(actions, ", ") + ".\nThe sentence is read from stdin when not given.",
		Example:   `  grammarlab transform question --option Why "She goes to school."`,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: actions,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := grammar.ParseAction(args[0])
			if err != nil {
				return classify(err)
			}
			creds, err := a.credentials()
			if err != nil {
				return err
			}
			svc, _ := a.service()
			res, err := svc.Transform(cmd.Context(), creds, action, a.textArg(args[1:]), option)
			if err != nil {
				return classify(err)
			}
			return a.print(transformView{*res})
		},
	}
	cmd.Flags().StringVar(&option, "option", "", "question type, modal verb or conditional type")
	return cmd
}

func (a *app) hindiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hindi [sentence...]",
		Short: "Find the English tense for a Hindi sentence",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.credentials()
			if err != nil {
				return err
			}
			svc, _ := a.service()
			res, err := svc.AnalyzeHindiTense(cmd.Context(), creds, a.textArg(args))
			if err != nil {
				return classify(err)
			}
			return a.print(hindiView{*res})
		},
	}
}

func (a *app) ocrCommand() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "ocr <image>",
		Short: "Read the text out of a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := grammar.ParseOCRLanguage(language)
			if err != nil {
				return classify(err)
			}
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			creds, err := a.credentials()
			if err != nil {
				return err
			}
			svc, _ := a.service()
			text, err := svc.ExtractText(cmd.Context(), creds, *img, lang)
			if err != nil {
				return classify(err)
			}
			return a.print(textResult{Text: text})
		},
	}
	cmd.Flags().StringVar(&language, "language", "english", "expected script: english or hindi")
	return cmd
}

func (a *app) tensesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tenses",
		Short: "List the supported tenses and their formulas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows tenseTable
			for _, name := range grammar.Tenses() {
				rows = append(rows, tenseRow{Name: name, RuleKey: grammar.TenseRuleKey(name), Formula: grammar.TenseFormula(name)})
			}
			return a.print(rows)
		},
	}
}

func (a *app) transliterateCommand() *cobra.Command {
	var (
		cursor int
		pick   int
	)
	cmd := &cobra.Command{
		Use:   "transliterate <text>",
		Short: "Suggest Devanagari spellings for a romanized Hindi word",
		Long: `Without --cursor the whole argument is looked up as one word.
With --cursor the word ending at that byte offset is looked up, and --pick N
replaces it with the Nth suggestion and prints the new text.`,
		Example: `  grammarlab transliterate namaste
  grammarlab transliterate "mera naam" --cursor 9 --pick 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := transliterate.New(
				transliterate.WithBaseURL(a.cfg.TransliterateURL),
				transliterate.WithLogger(a.logger),
			)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			text := args[0]
			if !cmd.Flags().Changed("cursor") {
				if pick > 0 {
					return exitWithCode(ExitValidation, fmt.Errorf("--pick needs --cursor"))
				}
				return a.print(suggestionList{Word: text, Suggestions: client.Suggest(ctx, text)})
			}
			if cursor < 0 || cursor > len(text) {
				return exitWithCode(ExitValidation, fmt.Errorf("cursor %d is outside the text (0-%d)", cursor, len(text)))
			}

			word, ok := transliterate.CurrentWord(text, cursor)
			if !ok {
				return exitWithCode(ExitValidation, fmt.Errorf("no romanized word before cursor %d", cursor))
			}
			suggestions := client.Suggest(ctx, word.Text)
			if pick <= 0 {
				return a.print(suggestionList{Word: word.Text, Suggestions: suggestions})
			}
			if pick > len(suggestions) {
				return exitWithCode(ExitValidation, fmt.Errorf("--pick %d: only %d suggestions for %q", pick, len(suggestions), word.Text))
			}
			out, next := transliterate.ApplySuggestion(text, word.Start, word.End, suggestions[pick-1])
			return a.print(appliedText{Text: out, Cursor: next})
		},
	}
	cmd.Flags().IntVar(&cursor, "cursor", 0, "byte offset of the cursor in the text")
	cmd.Flags().IntVar(&pick, "pick", 0, "apply the Nth suggestion (1-based)")
	return cmd
}
