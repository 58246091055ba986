package transcriber

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmueller/voxnotes/internal/audio"
	"github.com/fmueller/voxnotes/internal/config"
	"github.com/fmueller/voxnotes/internal/whisper"
	"go.uber.org/zap"
)

// Options are the user-chosen knobs for one request. Immutable once the
// request starts.
type Options struct {
	// Language is an ISO code or whisper.LanguageAuto.
	Language string
	// ModelPath points at resolved ggml weights.
	ModelPath string
}

// Result is the assembled transcript for a whole input.
type Result struct {
	Text     string
	Language string
	Segments int
	Duration time.Duration
}

// ProgressFunc is called after each segment completes with the number
// of finished segments and the constant total. A cached result skips
// the per-segment sequence and reports a single (total, total) call.
type ProgressFunc func(completed, total int)

// Decoder turns an uploaded file into the uniform clip representation.
// Satisfied by audio.Decoder; tests substitute their own.
type Decoder interface {
	Decode(ctx context.Context, path string) (audio.Clip, error)
}

// Transcriber decodes an upload, cuts it into bounded segments, and
// runs the engine over them strictly in order. One instance is safe for
// concurrent requests; each call owns its own clip and accumulator.
type Transcriber struct {
	cfg     config.TranscribeConfig
	engine  whisper.Engine
	decoder Decoder
	cache   *resultCache
	tempDir string
	logger  *zap.Logger
}

func New(cfg config.TranscribeConfig, engine whisper.Engine, decoder Decoder, logger *zap.Logger) *Transcriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcriber{
		cfg:     cfg,
		engine:  engine,
		decoder: decoder,
		cache:   newResultCache(),
		logger:  logger,
	}
}

// SetTempDir overrides where per-segment WAV files are written.
func (t *Transcriber) SetTempDir(dir string) {
	t.tempDir = dir
}

// Transcribe runs the whole pipeline for the file at path. The filename
// is validated separately from the path so uploads keep their original
// name for the format gate. Progress may be nil.
func (t *Transcriber) Transcribe(ctx context.Context, path, filename string, opts Options, progress ProgressFunc) (Result, error) {
	if _, err := audio.DetectFormat(filename); err != nil {
		return Result{}, err
	}

	lang := normalizeLanguage(opts.Language)
	if !t.cfg.SupportsLanguage(lang) {
		return Result{}, fmt.Errorf("%w: language %q", ErrInvalidOption, opts.Language)
	}
	if strings.TrimSpace(opts.ModelPath) == "" {
		return Result{}, fmt.Errorf("%w: no model resolved", ErrInvalidOption)
	}

	cacheKey, err := t.cache.keyFor(path, lang, opts.ModelPath)
	if err != nil {
		return Result{}, fmt.Errorf("hash input: %w", err)
	}
	if cached, ok := t.cache.get(cacheKey); ok {
		t.logger.Debug("serving cached transcript", zap.String("file", filename))
		if progress != nil && cached.Segments > 0 {
			progress(cached.Segments, cached.Segments)
		}
		return cached, nil
	}

	clip, err := t.decoder.Decode(ctx, path)
	if err != nil {
		return Result{}, err
	}

	result, err := t.transcribeClip(ctx, clip, lang, opts.ModelPath, progress)
	if err != nil {
		return Result{}, err
	}

	t.cache.put(cacheKey, result)
	return result, nil
}

func (t *Transcriber) transcribeClip(ctx context.Context, clip audio.Clip, lang, modelPath string, progress ProgressFunc) (Result, error) {
	chunkDuration := time.Duration(t.cfg.ChunkSeconds) * time.Second
	chunker, err := audio.NewChunker(clip, chunkDuration)
	if err != nil {
		return Result{}, fmt.Errorf("chunk audio: %w", err)
	}

	total := chunker.Total()
	t.logger.Info("transcribing",
		zap.Duration("audio", clip.Duration()),
		zap.Int("segments", total),
		zap.String("language", lang),
	)

	detected := ""
	if lang != whisper.LanguageAuto {
		detected = lang
	}

	var parts []string
	completed := 0
	for {
		// Cancellation granularity is one segment: stop before
		// starting the next, never mid-call.
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("transcription cancelled: %w", err)
		}

		seg, ok := chunker.Next()
		if !ok {
			break
		}

		text, segLang, err := t.transcribeSegment(ctx, seg, clip, lang, modelPath)
		if err != nil {
			return Result{}, &SegmentError{Index: seg.Index, Err: err}
		}

		if text != "" {
			parts = append(parts, text)
		}
		if detected == "" && segLang != "" {
			detected = segLang
		}

		completed++
		if progress != nil {
			progress(completed, total)
		}
	}

	return Result{
		Text:     strings.Join(parts, " "),
		Language: detected,
		Segments: total,
		Duration: clip.Duration(),
	}, nil
}

func (t *Transcriber) transcribeSegment(ctx context.Context, seg audio.Segment, clip audio.Clip, lang, modelPath string) (string, string, error) {
	tmpDir := t.tempDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	segPath := filepath.Join(tmpDir, fmt.Sprintf("voxnotes-seg-%d-%d.wav", time.Now().UnixNano(), seg.Index))
	if err := audio.WriteWAV(segPath, seg.Clip(clip.SampleRate, clip.Channels)); err != nil {
		return "", "", fmt.Errorf("write segment wav: %w", err)
	}
	defer os.Remove(segPath)

	res, err := t.engine.Transcribe(ctx, whisper.Request{
		AudioPath: segPath,
		ModelPath: modelPath,
		Language:  lang,
	})
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(res.Text), res.Language, nil
}

func normalizeLanguage(input string) string {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return whisper.LanguageAuto
	}
	return trimmed
}
