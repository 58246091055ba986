package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fmueller/voxnotes/internal/download"
	"github.com/fmueller/voxnotes/internal/platform"
	"github.com/fmueller/voxnotes/internal/whisper"
)

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

// ensureModelAvailable resolves a tier (or weights path) to a local
// file, downloading the weights when allowed.
func (a *appState) ensureModelAvailable(ctx context.Context, tier string) (string, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return "", err
	}

	resolved, err := whisper.ResolveModel(tier, modelDir)
	if err != nil {
		return "", err
	}

	if !resolved.NeedsDownload {
		return resolved.Path, nil
	}

	if !a.autoDownload {
		return "", fmt.Errorf("model %q is missing at %s; run `voxnotes setup --model %s` or use --auto-download=true", resolved.Tier, resolved.Path, resolved.Tier)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Tier), zap.String("destination", resolved.Path))
	if err := download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return "", fmt.Errorf("download model %q: %w", resolved.Tier, err)
	}

	return resolved.Path, nil
}
