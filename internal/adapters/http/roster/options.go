package roster

import "github.com/okian/vitals/pkg/logger"

// Option applies a configuration option to the Fetcher.
type Option func(*Fetcher)

// WithPageLimit sets the page size requested from upstream.
func WithPageLimit(limit int) Option {
	return func(f *Fetcher) {
		if limit > 0 {
			f.limit = limit
		}
	}
}

// WithMaxPages caps the pages one FetchAll may request. Zero means no cap.
func WithMaxPages(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxPages = n
		}
	}
}

// WithLogger sets a custom logger for the fetcher.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}
