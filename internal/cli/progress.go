package cli

import (
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/fmueller/voxnotes/internal/transcriber"
)

type stopFunc func()

// segmentProgress adapts the transcriber's per-segment callback to a
// terminal progress bar. The bar is created on the first callback since
// the segment total is only known once the audio is decoded.
func segmentProgress(enabled bool, description string) (transcriber.ProgressFunc, stopFunc) {
	if !enabled {
		return nil, func() {}
	}

	var mu sync.Mutex
	var bar *progressbar.ProgressBar

	progress := func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(
				total,
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(20),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(completed)
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			mu.Lock()
			defer mu.Unlock()
			if bar != nil {
				_ = bar.Finish()
			}
		})
	}

	return progress, stop
}
