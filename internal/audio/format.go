package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format identifies a supported upload container by file extension.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatM4A  Format = "m4a"
	FormatOGG  Format = "ogg"
	FormatFLAC Format = "flac"
	FormatMP4  Format = "mp4"
)

var supportedFormats = map[string]Format{
	".mp3":  FormatMP3,
	".wav":  FormatWAV,
	".m4a":  FormatM4A,
	".ogg":  FormatOGG,
	".flac": FormatFLAC,
	".mp4":  FormatMP4,
}

// DetectFormat maps a filename to a supported format. The check runs
// before any decoding so unsupported uploads are rejected cheaply.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if format, ok := supportedFormats[ext]; ok {
		return format, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// SupportedFormat reports whether the filename carries a known
// audio/video extension.
func SupportedFormat(filename string) bool {
	_, err := DetectFormat(filename)
	return err == nil
}

// SupportedExtensions lists accepted extensions without the dot, for
// display in upload forms and error messages.
func SupportedExtensions() []string {
	return []string{"mp3", "wav", "m4a", "ogg", "flac", "mp4"}
}
