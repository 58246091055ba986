package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func checksumOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestDownloadFileWritesVerifiedFile(t *testing.T) {
	t.Parallel()

	payload := []byte("pretend these are model weights")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "voxnotes/1", r.Header.Get("User-Agent"))
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "models", "ggml-base.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            ts.URL,
		Destination:    dest,
		ExpectedSHA256: checksumOf(payload),
		NoProgress:     true,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// The staging file must be gone after the rename.
	_, err = os.Stat(dest + ".part")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDownloadFileChecksumMismatchLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tampered content"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "model.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            ts.URL,
		Destination:    dest,
		ExpectedSHA256: checksumOf([]byte("expected content")),
		Retries:        1,
		NoProgress:     true,
	})
	require.ErrorContains(t, err, "checksum mismatch")

	_, err = os.Stat(dest)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(dest + ".part")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDownloadFileRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	payload := []byte("weights")
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "model.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            ts.URL,
		Destination:    dest,
		ExpectedSHA256: checksumOf(payload),
		Retries:        3,
		NoProgress:     true,
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, attempts.Load())
}

func TestDownloadFileGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	err := DownloadFile(context.Background(), Options{
		URL:         ts.URL,
		Destination: filepath.Join(t.TempDir(), "model.bin"),
		Retries:     2,
		NoProgress:  true,
	})
	require.ErrorContains(t, err, "unexpected status code: 404")
}

func TestDownloadFileRequiresURLAndDestination(t *testing.T) {
	t.Parallel()

	require.Error(t, DownloadFile(context.Background(), Options{Destination: "/tmp/x"}))
	require.Error(t, DownloadFile(context.Background(), Options{URL: "http://example.com"}))
}

func TestVerifyFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.bin")
	payload := []byte("verified weights")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	require.NoError(t, VerifyFileChecksum(path, checksumOf(payload)))
	require.NoError(t, VerifyFileChecksum(path, ""))
	require.ErrorContains(t, VerifyFileChecksum(path, checksumOf([]byte("other"))), "checksum mismatch")
	require.Error(t, VerifyFileChecksum(filepath.Join(t.TempDir(), "missing"), checksumOf(payload)))
}
