// Package submit delivers a finished assessment to the upstream API.
package submit

import (
	"context"
	"fmt"

	"github.com/okian/vitals/internal/domain/assessment"
	"github.com/okian/vitals/pkg/logger"
	"github.com/okian/vitals/pkg/metrics"
)

// SubmitPath is the submission endpoint relative to the API base URL.
const SubmitPath = "/submit-assessment"

// Submission outcomes reported to metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Poster is the transport capability the submitter needs.
type Poster interface {
	PostJSON(ctx context.Context, path string, body any) ([]byte, error)
}

// Submitter posts assessment results.
type Submitter struct {
	client Poster
	path   string
	logger logger.Logger
}

// New creates a Submitter over client.
func New(client Poster, opts ...Option) *Submitter {
	s := &Submitter{
		client: client,
		path:   SubmitPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("submit")
	}
	return s
}

// Submit sends result and returns the raw response body, which is opaque
// to this package.
func (s *Submitter) Submit(ctx context.Context, result assessment.Result) ([]byte, error) {
	counts := result.Counts()
	s.logger.Info(ctx, "submitting assessment",
		logger.String("path", s.path),
		logger.Int("high_risk", counts.HighRisk),
		logger.Int("fever", counts.Fever),
		logger.Int("data_quality_issues", counts.DataQualityIssues))

	body, err := s.client.PostJSON(ctx, s.path, result)
	if err != nil {
		metrics.RecordSubmission(OutcomeFailure)
		metrics.RecordErrorByComponent("submit", "post")
		return nil, fmt.Errorf("%w: %w", ErrSubmit, err)
	}

	metrics.RecordSubmission(OutcomeSuccess)
	s.logger.Info(ctx, "assessment submitted", logger.Int("response_bytes", len(body)))
	return body, nil
}
