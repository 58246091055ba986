package whisper

import (
	"context"
	"fmt"
	"path/filepath"
)

// MockEngine fakes transcription for tests and for trying the UI
// without model weights installed.
type MockEngine struct {
	// Language reported when the request asks for auto-detection.
	Language string
}

func NewMockEngine() *MockEngine {
	return &MockEngine{Language: "en"}
}

func (m *MockEngine) Transcribe(_ context.Context, req Request) (Result, error) {
	lang := req.Language
	if lang == "" || lang == LanguageAuto {
		lang = m.Language
	}
	return Result{
		Text:     fmt.Sprintf("[mock transcript of %s]", filepath.Base(req.AudioPath)),
		Language: lang,
	}, nil
}
