package whisper

import "context"

// LanguageAuto asks the engine to detect the spoken language.
const LanguageAuto = "auto"

type Request struct {
	AudioPath string
	ModelPath string
	// Language is an ISO code hint, or LanguageAuto.
	Language string
}

type Result struct {
	Text string
	// Language the engine recognized, or the hint it was given.
	Language string
}

// Engine abstracts one synchronous, possibly slow model invocation on a
// single bounded audio file.
type Engine interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}
