package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fmueller/voxnotes/internal/audio"
	"github.com/fmueller/voxnotes/internal/transcriber"
	"github.com/fmueller/voxnotes/internal/whisper"
)

const blankAudioToken = "[BLANK_AUDIO]"

func newTranscribeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcribeFn := app.transcribeFn
			if transcribeFn == nil {
				transcribeFn = app.transcribeAudio
			}

			transcript, err := transcribeFn(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), transcript)
			if isBlankTranscript(transcript) {
				app.log().Warn("no speech detected in the input")
			}
			return nil
		},
	}

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndDownloadFlags(cmd, app)
	bindConfigFlag(cmd, app)
	cmd.Flags().BoolVar(&app.mockEngine, "mock-engine", app.mockEngine, "Use a fake engine instead of whisper-cli (for trying the flow)")
	cmd.Flags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Detect near-silent WAV audio and skip transcription")
	cmd.Flags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
	return cmd
}

func (a *appState) transcribeAudio(ctx context.Context, audioPath string) (string, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("audio file not found: %w", err)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return "", err
	}
	if a.modelDir == "" {
		a.modelDir = cfg.Transcribe.ModelDir
	}

	if skipped, err := a.silenceGateHit(audioPath); err != nil {
		return "", err
	} else if skipped {
		return blankAudioToken, nil
	}

	engine, err := a.buildEngine(cfg.Transcribe.EngineCommand)
	if err != nil {
		return "", err
	}

	resolveModel := a.resolveModelFn
	if resolveModel == nil {
		resolveModel = a.ensureModelAvailable
	}
	modelPath, err := resolveModel(ctx, cfg.Transcribe.Model)
	if err != nil {
		return "", err
	}

	decoder := audio.NewDecoder(cfg.Transcribe.SampleRate, cfg.Transcribe.Channels, a.log())
	if err := decoder.CheckFFmpeg(ctx); err != nil {
		return "", err
	}

	tr := transcriber.New(cfg.Transcribe, engine, decoder, a.log())

	a.log().Info("transcribing...",
		zap.String("audio", audioPath),
		zap.String("model", modelPath),
		zap.String("language", cfg.Transcribe.Language),
	)
	progress, stopProgress := segmentProgress(a.progressEnabled(), "Transcribing")
	started := time.Now()

	result, err := tr.Transcribe(ctx, audioPath, filepath.Base(audioPath), transcriber.Options{
		Language:  cfg.Transcribe.Language,
		ModelPath: modelPath,
	}, progress)
	stopProgress()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", err
	}
	a.log().Info("transcription finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("segments", result.Segments),
		zap.String("language", result.Language),
	)

	return result.Text, nil
}

func (a *appState) buildEngine(commandOverride string) (whisper.Engine, error) {
	if a.mockEngine {
		return whisper.NewMockEngine(), nil
	}
	return whisper.NewExecEngine(commandOverride, a.log())
}

// silenceGateHit short-circuits obviously silent WAV uploads before any
// engine work. Non-WAV inputs skip the gate; they need a decode first.
func (a *appState) silenceGateHit(audioPath string) (bool, error) {
	if !a.silenceGate {
		return false, nil
	}
	if !strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		return false, nil
	}

	clip, err := audio.ReadWAV(audioPath)
	if err != nil {
		a.log().Warn("silence gate analysis failed; continuing transcription", zap.Error(err), zap.String("audio", audioPath))
		return false, nil
	}

	if !clip.IsSilent(a.silenceDBFS) {
		return false, nil
	}

	metrics := clip.Measure()
	a.log().Info("audio considered silent; skipping transcription",
		zap.String("audio", audioPath),
		zap.Float64("rms_dbfs", metrics.RMSdBFS),
		zap.Float64("peak_dbfs", metrics.PeakdBFS),
		zap.Float64("threshold_dbfs", a.silenceDBFS),
	)
	return true, nil
}

func isBlankTranscript(transcript string) bool {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return true
	}
	return strings.EqualFold(trimmed, blankAudioToken)
}
