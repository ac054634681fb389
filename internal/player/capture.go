package player

import "sync"

const defaultCaptureLimit = 16 * 1024

// capture keeps the tail of the player's combined output.
type capture struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func newCapture(limit int) *capture {
	if limit <= 0 {
		limit = defaultCaptureLimit
	}
	return &capture{limit: limit}
}

func (c *capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf = append(c.buf, p...)
	if over := len(c.buf) - c.limit; over > 0 {
		c.buf = append(c.buf[:0], c.buf[over:]...)
	}
	return len(p), nil
}

func (c *capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.buf)
}
