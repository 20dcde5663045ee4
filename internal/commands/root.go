// Package commands implements the grammarlab command line using Cobra.
package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vnmchuo/grammar-gateway/config"
	"github.com/vnmchuo/grammar-gateway/internal/gateway"
	"github.com/vnmchuo/grammar-gateway/internal/grammar"
	"github.com/vnmchuo/grammar-gateway/internal/logging"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
)

// APIKeyEnv is read when --api-key is not given.
const APIKeyEnv = "GRAMMARLAB_API_KEY"

type app struct {
	// Global flags
	providerFlag string
	outputFlag   string
	apiKeyFlag   string

	cfg    *config.Config
	logger *zap.Logger

	stdin  io.Reader
	stdout io.Writer

	// newGenerator is swapped in tests.
	newGenerator func(a *app) grammar.Generator
}

// NewRootCommand builds the command tree writing to stdout.
func NewRootCommand(stdin io.Reader, stdout io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, newGenerator: defaultGenerator}
	return a.rootCommand()
}

// Execute runs the CLI against the process streams.
func Execute() error {
	return NewRootCommand(os.Stdin, os.Stdout).Execute()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "grammarlab",
		Short: "English grammar practice backed by Gemini or a chat-completion provider",
		Long: `grammarlab builds tense-accurate English sentences, rewrites them,
explains Hindi tenses and reads text out of photos.

Your own provider key is used for every call. Pass it with --api-key,
set ` + APIKeyEnv + `, or type it when prompted.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)

	root.PersistentFlags().StringVar(&a.providerFlag, "provider", "", "AI provider: gemini or groq (default from DEFAULT_PROVIDER)")
	root.PersistentFlags().StringVarP(&a.outputFlag, "output", "o", "text", "output format: text, json or yaml")
	root.PersistentFlags().StringVar(&a.apiKeyFlag, "api-key", "", "provider API key (default $"+APIKeyEnv+")")

	root.AddCommand(
		a.serveCommand(),
		a.generateCommand(),
		a.sentenceCommand(),
		a.transformCommand(),
		a.hindiCommand(),
		a.ocrCommand(),
		a.tensesCommand(),
		a.transliterateCommand(),
		versionCommand(a),
	)
	return root
}

func (a *app) init() error {
	switch a.outputFlag {
	case "text", "json", "yaml":
	default:
		return exitWithCode(ExitValidation, fmt.Errorf("unknown output format %q: use text, json or yaml", a.outputFlag))
	}
	cfg, err := config.Load()
	if err != nil {
		return exitWithCode(ExitValidation, fmt.Errorf("failed to load config: %w", err))
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	return nil
}

func (a *app) selector() provider.Selector {
	p := a.providerFlag
	if p == "" {
		p = a.cfg.DefaultProvider
	}
	sel, err := provider.ParseSelector(p)
	if err != nil {
		return provider.PrimaryMultimodal
	}
	return sel
}

// apiKey resolves the credential from flag, environment, or a hidden prompt
// when stdin is a terminal. An empty result is passed on; the gateway rejects
// it before any network call.
func (a *app) apiKey() (string, error) {
	if k := strings.TrimSpace(a.apiKeyFlag); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(os.Getenv(APIKeyEnv)); k != "" {
		return k, nil
	}
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", nil
	}

	fmt.Fprint(os.Stderr, "Enter API key: ")
	keyBytes, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(os.Stderr) // Newline after hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(string(keyBytes)), nil
}

func (a *app) credentials() (grammar.Credentials, error) {
	key, err := a.apiKey()
	if err != nil {
		return grammar.Credentials{}, exitWithCode(ExitValidation, err)
	}
	return grammar.Credentials{APIKey: key, Provider: a.selector()}, nil
}

func (a *app) service() (*grammar.Service, grammar.Generator) {
	gen := a.newGenerator(a)
	return grammar.NewService(gen, a.logger), gen
}

func defaultGenerator(a *app) grammar.Generator {
	return gateway.NewDefault(gatewaySettings(a.cfg), gateway.WithLogger(a.logger))
}

func gatewaySettings(cfg *config.Config) gateway.Settings {
	return gateway.Settings{
		GeminiBaseURL: cfg.GeminiBaseURL,
		ChatBaseURL:   cfg.ChatCompletionBaseURL,
		ChatLabel:     cfg.ChatCompletionLabel,
		Timeout:       cfg.RequestTimeout,
	}
}

// readLine reads one line of input for commands that accept piped text.
func readLine(r io.Reader) string {
	line, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimSpace(line)
}
