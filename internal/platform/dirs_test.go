package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveModelDirPrefersOverride(t *testing.T) {
	t.Parallel()

	dir, err := ResolveModelDir("/opt/models/./whisper")
	require.NoError(t, err)
	require.Equal(t, filepath.Clean("/opt/models/whisper"), dir)
}

func TestDefaultModelDirLinux(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("linux", "/home/alex", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/home/alex", ".local", "share", "voxnotes", "models"), dir)
}

func TestDefaultModelDirLinuxHonorsXDG(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("linux", "/home/alex", "/home/alex/xdg-data")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/home/alex/xdg-data", "voxnotes", "models"), dir)
}

func TestDefaultModelDirDarwin(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("darwin", "/Users/alex", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/Users/alex", "Library", "Application Support", "voxnotes", "models"), dir)
}

func TestDefaultModelDirRejectsUnsupportedOS(t *testing.T) {
	t.Parallel()

	_, err := DefaultModelDirFor("plan9", "/home/alex", "")
	require.ErrorContains(t, err, "unsupported OS")
}

func TestDefaultModelDirRequiresHome(t *testing.T) {
	t.Parallel()

	_, err := DefaultModelDirFor("linux", "", "")
	require.Error(t, err)
}

func TestResolveUploadDirCreatesScratchSpace(t *testing.T) {
	t.Parallel()

	dir, err := ResolveUploadDir()
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, "voxnotes", filepath.Base(dir))
}
