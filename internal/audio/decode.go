package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrDecode marks inputs whose container looked fine but whose contents
// could not be turned into PCM samples.
var ErrDecode = errors.New("audio decode failed")

// Decoder turns uploaded media into the uniform clip representation via
// ffmpeg. The binary name is overridable for tests and exotic installs.
type Decoder struct {
	FFmpeg     string
	SampleRate int
	Channels   int
	TempDir    string
	Logger     *zap.Logger
}

func NewDecoder(sampleRate, channels int, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{
		FFmpeg:     "ffmpeg",
		SampleRate: sampleRate,
		Channels:   channels,
		Logger:     logger,
	}
}

// CheckFFmpeg verifies the decoder binary is runnable. Called once at
// startup so a missing install fails fast instead of on first upload.
func (d *Decoder) CheckFFmpeg(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.binary(), "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg not available (%s): %w", d.binary(), err)
	}
	return nil
}

// Decode converts the file at inputPath into a Clip at the decoder's
// sample rate and channel count. The format must already have passed
// DetectFormat; ffmpeg errors surface as ErrDecode.
func (d *Decoder) Decode(ctx context.Context, inputPath string) (Clip, error) {
	tmpDir := d.TempDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	out := filepath.Join(tmpDir, fmt.Sprintf("%s_%d_decoded.wav", base, time.Now().UnixNano()))
	defer os.Remove(out)

	args := []string{
		"-y", "-i", inputPath,
		"-vn",
		"-ac", strconv.Itoa(d.Channels),
		"-ar", strconv.Itoa(d.SampleRate),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		out,
	}

	cmd := exec.CommandContext(ctx, d.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	d.Logger.Debug("decoding upload", zap.String("input", inputPath), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		detail := lastStderrLine(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Clip{}, fmt.Errorf("%w: %s", ErrDecode, detail)
	}

	clip, err := ReadWAV(out)
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return clip, nil
}

func (d *Decoder) binary() string {
	if strings.TrimSpace(d.FFmpeg) == "" {
		return "ffmpeg"
	}
	return d.FFmpeg
}

func lastStderrLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
