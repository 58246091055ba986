package whisper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierNamesAreSorted(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"accurate", "balanced", "fast", "standard"}, TierNames())
}

func TestLookupTierNormalizesInput(t *testing.T) {
	t.Parallel()

	model, ok := LookupTier("  Balanced ")
	require.True(t, ok)
	require.Equal(t, "ggml-base.bin", model.FileName)

	_, ok = LookupTier("turbo")
	require.False(t, ok)
}

func TestResolveModelDefaultsToBalancedTier(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	resolved, err := ResolveModel("", dir)
	require.NoError(t, err)

	require.Equal(t, "balanced", resolved.Tier)
	require.Equal(t, filepath.Join(dir, "ggml-base.bin"), resolved.Path)
	require.True(t, resolved.NeedsDownload)
	require.False(t, resolved.IsCustomPath)
	require.NotEmpty(t, resolved.SHA256)
}

func TestResolveModelFindsExistingWeights(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ggml-tiny.bin"), []byte("weights"), 0o644))

	resolved, err := ResolveModel("fast", dir)
	require.NoError(t, err)
	require.False(t, resolved.NeedsDownload)
}

func TestResolveModelRequiresDirForTier(t *testing.T) {
	t.Parallel()

	_, err := ResolveModel("fast", "")
	require.Error(t, err)
}

func TestResolveModelCustomPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "my-finetune.bin")
	require.NoError(t, os.WriteFile(path, []byte("weights"), 0o644))

	resolved, err := ResolveModel(path, "")
	require.NoError(t, err)
	require.True(t, resolved.IsCustomPath)
	require.Equal(t, path, resolved.Path)
	require.False(t, resolved.NeedsDownload)
}

func TestResolveModelMissingCustomPath(t *testing.T) {
	t.Parallel()

	_, err := ResolveModel(filepath.Join(t.TempDir(), "gone.bin"), "")
	require.ErrorContains(t, err, "does not exist")
}

func TestResolveModelRejectsUnknownTier(t *testing.T) {
	t.Parallel()

	_, err := ResolveModel("enormous", t.TempDir())
	require.ErrorContains(t, err, "unknown model tier")
}
