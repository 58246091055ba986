package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJobSnapshotStartsRunning(t *testing.T) {
	t.Parallel()

	job := newJob("talk.mp3", nil)
	require.NotEmpty(t, job.ID)

	snapshot := job.Snapshot()
	require.Equal(t, JobRunning, snapshot.State)
	require.Zero(t, snapshot.Completed)
	require.Zero(t, snapshot.Total)
}

func TestJobSubscribeReceivesProgressThenClose(t *testing.T) {
	t.Parallel()

	job := newJob("talk.mp3", nil)
	events := job.Subscribe()

	// Initial snapshot arrives before any progress.
	first := <-events
	require.Equal(t, JobRunning, first.State)

	job.progress(1, 3)
	second := <-events
	require.Equal(t, 1, second.Completed)
	require.Equal(t, 3, second.Total)

	job.finish(JobDone, "hello world", "en", "", "")
	final := <-events
	require.Equal(t, JobDone, final.State)
	require.Equal(t, "hello world", final.Text)
	require.Equal(t, "en", final.Language)

	_, open := <-events
	require.False(t, open)
}

func TestJobSubscribeAfterFinishGetsTerminalSnapshot(t *testing.T) {
	t.Parallel()

	job := newJob("talk.mp3", nil)
	job.finish(JobFailed, "", "", "model crashed", "transcription_error")

	events := job.Subscribe()
	snapshot := <-events
	require.Equal(t, JobFailed, snapshot.State)
	require.Equal(t, "model crashed", snapshot.Error)
	require.Equal(t, "transcription_error", snapshot.ErrorKind)

	_, open := <-events
	require.False(t, open)
}

func TestJobFinishReturnsWithStalledSubscriber(t *testing.T) {
	t.Parallel()

	job := newJob("talk.mp3", nil)
	events := job.Subscribe()

	// Overrun the subscriber buffer without anyone reading.
	for i := 0; i < 32; i++ {
		job.progress(i+1, 32)
	}

	done := make(chan struct{})
	go func() {
		job.finish(JobDone, "hello world", "en", "", "")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("finish did not return while a subscriber had stopped reading")
	}

	// The channel still closes, so a late reader drains and exits.
	for range events {
	}

	snapshot := job.Snapshot()
	require.Equal(t, JobDone, snapshot.State)
	require.Equal(t, "hello world", snapshot.Text)
}

func TestJobFinishIsIdempotent(t *testing.T) {
	t.Parallel()

	job := newJob("talk.mp3", nil)
	job.finish(JobDone, "first", "en", "", "")
	job.finish(JobFailed, "", "", "late failure", "internal")

	snapshot := job.Snapshot()
	require.Equal(t, JobDone, snapshot.State)
	require.Equal(t, "first", snapshot.Text)
	require.Empty(t, snapshot.Error)
}

func TestJobCancelInvokesCancelFunc(t *testing.T) {
	t.Parallel()

	cancelled := false
	job := newJob("talk.mp3", func() { cancelled = true })
	job.Cancel()
	require.True(t, cancelled)

	// Nil cancel func must not panic.
	newJob("other.mp3", nil).Cancel()
}

func TestRegistryStoresAndFindsJobs(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	job := newJob("talk.mp3", nil)
	registry.Add(job)

	found, ok := registry.Get(job.ID)
	require.True(t, ok)
	require.Same(t, job, found)

	_, ok = registry.Get("missing")
	require.False(t, ok)
}
