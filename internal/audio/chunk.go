package audio

import (
	"errors"
	"time"
)

// Segment is one bounded slice of a clip, fed to the engine on its own.
// Segments of one clip are adjacent and strictly ordered by Index.
type Segment struct {
	Index   int
	Samples []int16
	Start   time.Duration
	End     time.Duration
}

func (s Segment) Clip(sampleRate, channels int) Clip {
	return Clip{Samples: s.Samples, SampleRate: sampleRate, Channels: channels}
}

// Chunker partitions a clip into fixed-maximum-duration segments,
// producing them one at a time so large inputs never materialize all
// segments at once. The final segment may be shorter than the maximum.
type Chunker struct {
	clip            Clip
	samplesPerChunk int
	total           int
	next            int
}

func NewChunker(clip Clip, maxChunk time.Duration) (*Chunker, error) {
	if maxChunk <= 0 {
		return nil, errors.New("chunk duration must be positive")
	}
	if clip.SampleRate <= 0 || clip.Channels <= 0 {
		return nil, errors.New("clip has no sample format")
	}

	framesPerChunk := int(maxChunk.Seconds() * float64(clip.SampleRate))
	if framesPerChunk <= 0 {
		framesPerChunk = 1
	}
	samplesPerChunk := framesPerChunk * clip.Channels

	total := (len(clip.Samples) + samplesPerChunk - 1) / samplesPerChunk

	return &Chunker{
		clip:            clip,
		samplesPerChunk: samplesPerChunk,
		total:           total,
	}, nil
}

// Total is known up front and constant for the life of the chunker.
func (c *Chunker) Total() int {
	return c.total
}

// Next returns the next segment in index order. The second return value
// is false once all segments have been produced.
func (c *Chunker) Next() (Segment, bool) {
	if c.next >= c.total {
		return Segment{}, false
	}

	start := c.next * c.samplesPerChunk
	end := start + c.samplesPerChunk
	if end > len(c.clip.Samples) {
		end = len(c.clip.Samples)
	}

	seg := Segment{
		Index:   c.next,
		Samples: c.clip.Samples[start:end],
		Start:   c.offsetDuration(start),
		End:     c.offsetDuration(end),
	}
	c.next++
	return seg, true
}

func (c *Chunker) offsetDuration(sampleOffset int) time.Duration {
	frames := sampleOffset / c.clip.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.clip.SampleRate)
}
