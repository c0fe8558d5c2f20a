package bufferpool

import (
	"time"

	"ledgerpool/pkg/lock"
	"ledgerpool/pkg/page"
)

// DefaultNumPages is the buffer pool's default capacity.
const DefaultNumPages = 50

// Config configures a BufferPool at construction. Page size lives here
// as an ordinary constructor argument rather than a mutable process
// global.
type Config struct {
	// NumPages is the cache capacity. Zero means DefaultNumPages.
	NumPages int
	// PageSize is informational for collaborators that need it (e.g. a
	// file-backed DbFile); the core never inspects page contents. Zero
	// means page.DefaultSize.
	PageSize int
	// RetryMax and RetryWait tune the lock manager's bounded-retry
	// acquisition loop. Zero values mean the package defaults.
	RetryMax  int
	RetryWait time.Duration
}

// DefaultConfig returns the defaults: 50 pages, 4096-byte pages, 3
// retries at ~100ms apart.
func DefaultConfig() Config {
	return Config{
		NumPages:  DefaultNumPages,
		PageSize:  page.DefaultSize,
		RetryMax:  lock.DefaultRetryMax,
		RetryWait: lock.DefaultRetryWait,
	}
}

func (c Config) withDefaults() Config {
	if c.NumPages <= 0 {
		c.NumPages = DefaultNumPages
	}
	if c.PageSize <= 0 {
		c.PageSize = page.DefaultSize
	}
	if c.RetryMax <= 0 {
		c.RetryMax = lock.DefaultRetryMax
	}
	if c.RetryWait <= 0 {
		c.RetryWait = lock.DefaultRetryWait
	}
	return c
}
