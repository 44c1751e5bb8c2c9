// Package service runs one assessment: it drains the roster, scores every
// patient, logs the buckets and submits them.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vitals/internal/adapters/http/roster"
	"github.com/okian/vitals/internal/domain/assessment"
	"github.com/okian/vitals/internal/domain/scoring"
	"github.com/okian/vitals/pkg/logger"
	"github.com/okian/vitals/pkg/metrics"
)

// Fetcher drains the patient roster. Failures are reported on the Result.
type Fetcher interface {
	FetchAll(ctx context.Context) roster.Result
}

// Submitter delivers the assessment and returns the upstream response body.
type Submitter interface {
	Submit(ctx context.Context, result assessment.Result) ([]byte, error)
}

// Report describes one finished run.
type Report struct {
	RunID  string
	Fetch  roster.Result
	Result assessment.Result
	Counts assessment.Counts
	// Response is the raw submission response, nil when nothing was submitted.
	Response  []byte
	Submitted bool
	Duration  time.Duration
}

// Service wires the fetcher and submitter together.
type Service struct {
	fetcher   Fetcher
	submitter Submitter
	dryRun    bool
	runID     string
	now       func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFetcher sets the roster fetcher.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithSubmitter sets the assessment submitter.
func WithSubmitter(sub Submitter) Option {
	return func(s *Service) {
		s.submitter = sub
	}
}

// WithDryRun computes and logs the buckets without submitting them.
func WithDryRun(enabled bool) Option {
	return func(s *Service) {
		s.dryRun = enabled
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service.
func New(opts ...Option) *Service {
	s := &Service{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("runner")
	}
	s.logger = s.logger.With(logger.String("run_id", s.runID))
	return s
}

// RunID returns the identifier attached to this service's logs and metrics.
func (s *Service) RunID() string {
	return s.runID
}

// Run performs one fetch, score and submit cycle. A partial fetch is not an
// error: the run continues with what was received. A failed submission is.
func (s *Service) Run(ctx context.Context) (report Report, err error) {
	if s.fetcher == nil {
		return Report{}, ErrNoFetcher
	}
	if s.submitter == nil && !s.dryRun {
		return Report{}, ErrNoSubmitter
	}

	start := s.now()
	report.RunID = s.runID
	defer func() {
		report.Duration = s.now().Sub(start)
		metrics.SetRunDuration(report.Duration.Seconds())
	}()

	s.logger.Info(ctx, "assessment run started", logger.Bool("dry_run", s.dryRun))

	report.Fetch = s.fetcher.FetchAll(ctx)
	if !report.Fetch.Complete {
		metrics.RecordErrorByComponent("roster", "partial_fetch")
		s.logger.Warn(ctx, "scoring a partial roster",
			logger.Int("patients", len(report.Fetch.Patients)),
			logger.Int("failed_page", report.Fetch.FailedPage),
			logger.Error(report.Fetch.Err))
	}

	b := assessment.NewBuilder()
	for _, p := range report.Fetch.Patients {
		br := scoring.Evaluate(p)
		metrics.RecordPatientScored(br.Total)
		s.logger.Debug(ctx, "patient scored",
			logger.String("patient_id", p.PatientID),
			logger.Int("bp_score", br.BloodPressureScore),
			logger.Int("temp_score", br.TemperatureScore),
			logger.Int("age_score", br.AgeScore),
			logger.Int("total", br.Total))
		b.Add(p.PatientID, br)
	}
	report.Result = b.Result()
	report.Counts = b.Counts()

	metrics.SetBucketSizes(report.Counts.HighRisk, report.Counts.Fever, report.Counts.DataQualityIssues)
	s.logger.Info(ctx, "assessment computed",
		logger.Int("patients", report.Counts.Patients),
		logger.Bool("complete", report.Fetch.Complete),
		logger.Strings("high_risk_patients", report.Result.HighRisk),
		logger.Strings("fever_patients", report.Result.Fever),
		logger.Strings("data_quality_issues", report.Result.DataQualityIssues))

	if s.dryRun {
		s.logger.Info(ctx, "dry run, submission skipped")
		return report, nil
	}

	resp, err := s.submitter.Submit(ctx, report.Result)
	if err != nil {
		s.logger.Error(ctx, "assessment submission failed", logger.Error(err))
		return report, fmt.Errorf("run %s: %w", s.runID, err)
	}
	report.Response = resp
	report.Submitted = true
	s.logger.Info(ctx, "assessment run finished",
		logger.String("response", string(resp)))
	return report, nil
}
