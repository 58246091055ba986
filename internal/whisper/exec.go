package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

// detectedLanguagePattern matches whisper-cli's stderr note, e.g.
// "whisper_full_with_state: auto-detected language: en (p = 0.976029)".
var detectedLanguagePattern = regexp.MustCompile(`auto-detected language:\s*([a-z]{2,3})`)

// ExecEngine shells out to a whisper-cli binary for each segment.
type ExecEngine struct {
	command []string
	logger  *zap.Logger
}

// NewExecEngine builds the engine from a configured command line, or
// falls back to VOXNOTES_WHISPER_PATH and then a whisper-cli found on
// PATH when the override is empty.
func NewExecEngine(commandOverride string, logger *zap.Logger) (*ExecEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if strings.TrimSpace(commandOverride) != "" {
		parser := shellwords.NewParser()
		args, err := parser.Parse(commandOverride)
		if err != nil {
			return nil, fmt.Errorf("parse engine command: %w", err)
		}
		if len(args) == 0 {
			return nil, errors.New("engine command is empty")
		}
		if err := ensureExecutable(args[0]); err != nil {
			return nil, fmt.Errorf("engine command not executable: %w", err)
		}
		return &ExecEngine{command: args, logger: logger}, nil
	}

	if override := strings.TrimSpace(os.Getenv("VOXNOTES_WHISPER_PATH")); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("VOXNOTES_WHISPER_PATH is not executable: %w", err)
		}
		return &ExecEngine{command: []string{override}, logger: logger}, nil
	}

	path, err := exec.LookPath(engineBinaryName())
	if err != nil {
		return nil, fmt.Errorf("whisper-cli not found on PATH; install whisper.cpp or set VOXNOTES_WHISPER_PATH: %w", err)
	}
	return &ExecEngine{command: []string{path}, logger: logger}, nil
}

func (e *ExecEngine) Transcribe(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return Result{}, errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return Result{}, errors.New("model path is required")
	}

	outBase := filepath.Join(os.TempDir(), fmt.Sprintf("voxnotes-%d", time.Now().UnixNano()))
	txtOut := outBase + ".txt"

	args := append([]string{}, e.command[1:]...)
	args = append(args, "-m", req.ModelPath, "-f", req.AudioPath, "-nt", "-otxt", "-of", outBase)
	lang := strings.TrimSpace(strings.ToLower(req.Language))
	if lang == "" {
		lang = LanguageAuto
	}
	args = append(args, "-l", lang)

	cmd := exec.CommandContext(ctx, e.command[0], args...)
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	e.logger.Debug("running whisper engine", zap.String("engine", e.command[0]), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if isMissingSharedLibraryError(errText) {
			return Result{}, fmt.Errorf("whisper engine at %s is missing required shared libraries (%s); rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", e.command[0], errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return Result{}, errors.New("whisper engine crashed with an illegal CPU instruction; point VOXNOTES_WHISPER_PATH at a whisper-cli built for this CPU")
		}
		return Result{}, fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
	}

	defer os.Remove(txtOut)
	content, err := os.ReadFile(txtOut)
	if err != nil {
		return Result{}, fmt.Errorf("read whisper output: %w", err)
	}

	detected := lang
	if lang == LanguageAuto {
		detected = parseDetectedLanguage(stderr.String())
	}

	return Result{
		Text:     strings.TrimSpace(string(content)),
		Language: detected,
	}, nil
}

func parseDetectedLanguage(stderr string) string {
	match := detectedLanguagePattern.FindStringSubmatch(stderr)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
