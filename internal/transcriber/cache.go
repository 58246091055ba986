package transcriber

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"lukechampine.com/blake3"
)

// resultCache remembers finished transcripts by content hash so that
// re-uploading the same file with the same options costs nothing. It is
// process-local; nothing survives a restart.
type resultCache struct {
	mu      sync.RWMutex
	results map[string]Result
}

func newResultCache() *resultCache {
	return &resultCache{results: make(map[string]Result)}
}

func (c *resultCache) keyFor(path, language, modelPath string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}

	return fmt.Sprintf("%s|%s|%s", hex.EncodeToString(h.Sum(nil)), language, modelPath), nil
}

func (c *resultCache) get(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.results[key]
	return result, ok
}

func (c *resultCache) put(key string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key] = result
}
