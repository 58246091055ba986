// Package subtitle extracts plain text from caption files so meeting
// minutes can be generated from an existing WebVTT transcript instead
// of re-running speech recognition.
package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var ErrNotVTT = errors.New("not a webvtt file")

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// ExtractVTT pulls the cue text out of a WebVTT stream, dropping
// timestamps, cue identifiers, styling blocks, and inline tags. Cue
// lines are joined with single spaces.
func ExtractVTT(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sawHeader := false
	inCue := false
	var lines []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if !sawHeader {
			if !strings.HasPrefix(strings.TrimPrefix(line, "\uFEFF"), "WEBVTT") {
				return "", ErrNotVTT
			}
			sawHeader = true
			continue
		}

		if strings.Contains(line, "-->") {
			inCue = true
			continue
		}
		if line == "" {
			inCue = false
			continue
		}
		if isCueIdentifier(line) {
			continue
		}
		if strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "STYLE") || strings.HasPrefix(line, "REGION") {
			continue
		}

		if inCue {
			clean := strings.TrimSpace(tagPattern.ReplaceAllString(line, ""))
			if clean != "" {
				lines = append(lines, clean)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan vtt: %w", err)
	}
	if !sawHeader {
		return "", ErrNotVTT
	}

	return strings.Join(lines, " "), nil
}

func isCueIdentifier(line string) bool {
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return line != ""
}

// ExtractText handles the caption and document upload types: .vtt goes
// through the cue parser, .docx through the Word parser, and .txt and
// .md pass through verbatim.
func ExtractText(filename string, r io.Reader) (string, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".vtt"):
		return ExtractVTT(r)
	case strings.HasSuffix(lower, ".docx"):
		return ExtractDocx(r)
	case strings.HasSuffix(lower, ".doc"):
		return "", fmt.Errorf("legacy .doc is not supported; save %q as .docx", filename)
	case strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".md"):
		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read text upload: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	default:
		return "", fmt.Errorf("unsupported text upload %q (want .vtt, .docx, .txt, or .md)", filename)
	}
}
