package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/fmueller/voxnotes/internal/config"
	"github.com/fmueller/voxnotes/internal/logging"
	"github.com/fmueller/voxnotes/internal/version"
)

type appState struct {
	verbose      bool
	jsonLogs     bool
	noProgress   bool
	configPath   string
	model        string
	modelDir     string
	language     string
	autoDownload bool
	mockEngine   bool
	silenceGate  bool
	silenceDBFS  float64

	logger *zap.Logger
	now    func() time.Time
	out    io.Writer

	transcribeFn   func(ctx context.Context, audioPath string) (string, error)
	resolveModelFn func(ctx context.Context, tier string) (string, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		language:     "auto",
		autoDownload: true,
		silenceGate:  true,
		silenceDBFS:  -65,
		now:          time.Now,
		out:          os.Stdout,
	}
	app.transcribeFn = app.transcribeAudio
	app.resolveModelFn = app.ensureModelAvailable

	cmd := &cobra.Command{
		Use:           "voxnotes",
		Short:         "Upload audio in a browser and get a text transcript back",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Optional .env keeps API keys out of shell history.
			_ = godotenv.Load()

			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.language = sanitizeLanguage(app.language)
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndDownloadFlags(cmd, app)
	bindConfigFlag(cmd, app)

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.model, "model", app.model, "Model tier (fast|balanced|standard|accurate) or weights file path")
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func bindLanguageAndDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.language, "language", app.language, "Language code (auto|en|de|...) for transcription")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindConfigFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.configPath, "config", app.configPath, "Path to YAML config file")
}

func (a *appState) loadConfig() (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, err
	}

	// Flags override the file when set.
	if strings.TrimSpace(a.model) != "" {
		cfg.Transcribe.Model = a.model
	}
	if strings.TrimSpace(a.modelDir) != "" {
		cfg.Transcribe.ModelDir = a.modelDir
	}
	if strings.TrimSpace(a.language) != "" && a.language != "auto" {
		cfg.Transcribe.Language = a.language
	}
	cfg.Transcribe.AutoDownload = cfg.Transcribe.AutoDownload && a.autoDownload

	return cfg, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
