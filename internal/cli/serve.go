package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fmueller/voxnotes/internal/audio"
	"github.com/fmueller/voxnotes/internal/minutes"
	"github.com/fmueller/voxnotes/internal/platform"
	"github.com/fmueller/voxnotes/internal/server"
	"github.com/fmueller/voxnotes/internal/transcriber"
)

func newServeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}

	bindLoggingFlags(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndDownloadFlags(cmd, app)
	bindConfigFlag(cmd, app)
	cmd.Flags().BoolVar(&app.mockEngine, "mock-engine", app.mockEngine, "Use a fake engine instead of whisper-cli (for trying the UI)")
	return cmd
}

func (a *appState) runServe(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if a.modelDir == "" {
		a.modelDir = cfg.Transcribe.ModelDir
	}

	engine, err := a.buildEngine(cfg.Transcribe.EngineCommand)
	if err != nil {
		return err
	}

	decoder := audio.NewDecoder(cfg.Transcribe.SampleRate, cfg.Transcribe.Channels, a.log())
	if err := decoder.CheckFFmpeg(ctx); err != nil {
		return err
	}

	uploadDir, err := platform.ResolveUploadDir()
	if err != nil {
		return err
	}

	tr := transcriber.New(cfg.Transcribe, engine, decoder, a.log())
	tr.SetTempDir(uploadDir)

	var minutesGen *minutes.Generator
	if gen, err := minutes.New(cfg.Minutes, a.log()); err == nil {
		minutesGen = gen
	} else if errors.Is(err, minutes.ErrNotConfigured) {
		a.log().Info("minutes generation disabled", zap.Error(err))
	} else {
		return err
	}

	resolveModel := a.resolveModelFn
	if resolveModel == nil {
		resolveModel = a.ensureModelAvailable
	}

	// Fetch the default tier up front so the first upload is not stuck
	// behind a model download.
	if _, err := resolveModel(ctx, cfg.Transcribe.Model); err != nil {
		return err
	}

	srv := server.New(server.Options{
		Config:       cfg,
		Logger:       a.log(),
		Transcriber:  tr,
		Minutes:      minutesGen,
		UploadDir:    uploadDir,
		ResolveModel: resolveModel,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log().Info("shutting down")
		return srv.Shutdown()
	}
}
