package transcriber

import (
	"errors"
	"fmt"
)

// ErrInvalidOption marks a request whose language or model tier is not
// supported. It fires before any decoding work happens.
var ErrInvalidOption = errors.New("invalid transcription option")

// SegmentError reports a model invocation failure on one segment. The
// whole request aborts; partial transcripts are never returned.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("transcription failed on segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}
