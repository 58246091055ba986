package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChunkerShortClipYieldsSingleSegment(t *testing.T) {
	t.Parallel()

	clip := Clip{Samples: make([]int16, 4000), SampleRate: 16000, Channels: 1}

	chunker, err := NewChunker(clip, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, chunker.Total())

	seg, ok := chunker.Next()
	require.True(t, ok)
	require.Equal(t, 0, seg.Index)
	require.Len(t, seg.Samples, 4000)
	require.Equal(t, time.Duration(0), seg.Start)
	require.Equal(t, 250*time.Millisecond, seg.End)

	_, ok = chunker.Next()
	require.False(t, ok)
}

func TestChunkerExactMultipleYieldsAdjacentSegments(t *testing.T) {
	t.Parallel()

	// Exactly two chunks of one second at 16 kHz.
	clip := Clip{Samples: make([]int16, 32000), SampleRate: 16000, Channels: 1}

	chunker, err := NewChunker(clip, time.Second)
	require.NoError(t, err)
	require.Equal(t, 2, chunker.Total())

	first, ok := chunker.Next()
	require.True(t, ok)
	second, ok := chunker.Next()
	require.True(t, ok)
	_, ok = chunker.Next()
	require.False(t, ok)

	require.Equal(t, 0, first.Index)
	require.Equal(t, 1, second.Index)
	require.Len(t, first.Samples, 16000)
	require.Len(t, second.Samples, 16000)

	// No overlap and no gap at the boundary.
	require.Equal(t, first.End, second.Start)
	require.Equal(t, time.Second, first.End)
	require.Equal(t, 2*time.Second, second.End)
}

func TestChunkerFinalSegmentMayBeShorter(t *testing.T) {
	t.Parallel()

	clip := Clip{Samples: make([]int16, 40000), SampleRate: 16000, Channels: 1}

	chunker, err := NewChunker(clip, time.Second)
	require.NoError(t, err)
	require.Equal(t, 3, chunker.Total())

	var lengths []int
	for {
		seg, ok := chunker.Next()
		if !ok {
			break
		}
		lengths = append(lengths, len(seg.Samples))
	}
	require.Equal(t, []int{16000, 16000, 8000}, lengths)
}

func TestChunkerEmptyClipYieldsNoSegments(t *testing.T) {
	t.Parallel()

	clip := Clip{SampleRate: 16000, Channels: 1}

	chunker, err := NewChunker(clip, time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, chunker.Total())

	_, ok := chunker.Next()
	require.False(t, ok)
}

func TestChunkerStereoCountsFrames(t *testing.T) {
	t.Parallel()

	// One second of stereo at 16 kHz is 32000 interleaved samples.
	clip := Clip{Samples: make([]int16, 32000), SampleRate: 16000, Channels: 2}

	chunker, err := NewChunker(clip, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, chunker.Total())

	seg, ok := chunker.Next()
	require.True(t, ok)
	require.Len(t, seg.Samples, 32000)
	require.Equal(t, time.Second, seg.End)
}

func TestChunkerRejectsNonPositiveChunk(t *testing.T) {
	t.Parallel()

	clip := Clip{Samples: make([]int16, 100), SampleRate: 16000, Channels: 1}
	_, err := NewChunker(clip, 0)
	require.Error(t, err)
}
