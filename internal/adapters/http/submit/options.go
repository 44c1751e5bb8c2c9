package submit

import "github.com/okian/vitals/pkg/logger"

// Option applies a configuration option to the Submitter.
type Option func(*Submitter)

// WithPath overrides the submission endpoint path.
func WithPath(path string) Option {
	return func(s *Submitter) {
		if path != "" {
			s.path = path
		}
	}
}

// WithLogger sets a custom logger for the submitter.
func WithLogger(l logger.Logger) Option {
	return func(s *Submitter) {
		if l != nil {
			s.logger = l
		}
	}
}
