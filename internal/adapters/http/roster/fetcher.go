// Package roster drains the paginated patient roster. Shape detection lives
// in Decode; the loop in FetchAll only sees canonical Envelopes.
package roster

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/okian/vitals/internal/domain/model"
	"github.com/okian/vitals/pkg/logger"
	"github.com/okian/vitals/pkg/metrics"
)

// PatientsPath is the roster endpoint relative to the API base URL.
const PatientsPath = "/patients"

const (
	defaultPageLimit = 5
	defaultMaxPages  = 1000
	maxLoggedBody    = 256
)

// Getter is the transport capability the fetcher needs. Retries happen
// behind it; an error means the request failed for good.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// Result is the outcome of FetchAll. Patients holds every record received,
// in order, even when the fetch stopped early.
type Result struct {
	Patients []model.Patient
	// Pages counts pages that returned a response.
	Pages int
	// Complete is false when the loop stopped because of Err.
	Complete bool
	// FailedPage is the page that ended a partial fetch, 0 when complete.
	FailedPage int
	Err        error
}

// Fetcher retrieves roster pages sequentially.
type Fetcher struct {
	client   Getter
	limit    int
	maxPages int
	logger   logger.Logger
}

// NewFetcher creates a Fetcher over client.
func NewFetcher(client Getter, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   client,
		limit:    defaultPageLimit,
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Get().Named("roster")
	}
	return f
}

// FetchPage requests one page and reconciles it into an Envelope. An error
// is returned only when the transport gave up.
func (f *Fetcher) FetchPage(ctx context.Context, page, limit int) (Envelope, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	body, err := f.client.Get(ctx, PatientsPath, query)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: page %d: %w", ErrFetchPage, page, err)
	}

	env := Decode(body, page, limit)
	metrics.RecordPageFetched(string(env.Shape), len(env.Records), env.Skipped)

	switch {
	case env.Shape == ShapeUnknown:
		f.logger.Warn(ctx, "unrecognized response shape",
			logger.Int("page", page),
			logger.String("body", snippet(body)))
	case env.MalformedPagination:
		f.logger.Warn(ctx, "pagination metadata could not be read",
			logger.Int("page", page),
			logger.String("shape", string(env.Shape)),
			logger.String("body", snippet(body)))
	}
	if env.MalformedRecords {
		f.logger.Warn(ctx, "records member is not an array",
			logger.Int("page", page),
			logger.String("shape", string(env.Shape)))
	}
	if env.Skipped > 0 {
		f.logger.Warn(ctx, "skipped entries that are not patient records",
			logger.Int("page", page),
			logger.Int("skipped", env.Skipped))
	}

	f.logger.Debug(ctx, "page fetched",
		logger.Int("page", page),
		logger.String("shape", string(env.Shape)),
		logger.Int("records", len(env.Records)),
		logger.Int("total_pages", env.TotalPages),
		logger.Bool("has_next", env.HasNext))
	return env, nil
}

// FetchAll drains the roster from page 1. It never returns an error
// directly: failures stop the loop and are reported on Result.
func (f *Fetcher) FetchAll(ctx context.Context) Result {
	res := Result{Patients: []model.Patient{}}
	f.logger.Info(ctx, "fetching patient roster", logger.Int("limit", f.limit))

	for page := 1; ; page++ {
		if f.maxPages > 0 && page > f.maxPages {
			res.FailedPage = page
			res.Err = fmt.Errorf("%w: %d", ErrPageLimit, f.maxPages)
			break
		}
		if err := ctx.Err(); err != nil {
			res.FailedPage = page
			res.Err = err
			break
		}

		env, err := f.FetchPage(ctx, page, f.limit)
		if err != nil {
			metrics.RecordPageFetchFailure()
			res.FailedPage = page
			res.Err = err
			break
		}
		res.Pages++
		res.Patients = append(res.Patients, env.Records...)

		if env.Shape == ShapeUnknown {
			res.FailedPage = page
			res.Err = fmt.Errorf("%w: page %d", ErrUnknownShape, page)
			break
		}
		if env.MalformedPagination {
			res.FailedPage = page
			res.Err = fmt.Errorf("%w: page %d", ErrPagination, page)
			break
		}
		if !hasMore(page, env) {
			res.Complete = true
			break
		}
	}

	metrics.SetFetchComplete(res.Complete)
	if res.Complete {
		f.logger.Info(ctx, "roster fetched",
			logger.Int("patients", len(res.Patients)),
			logger.Int("pages", res.Pages))
	} else {
		f.logger.Warn(ctx, "roster fetch stopped early, continuing with partial data",
			logger.Int("patients", len(res.Patients)),
			logger.Int("pages", res.Pages),
			logger.Int("failed_page", res.FailedPage),
			logger.Error(res.Err))
	}
	return res
}

// hasMore reports whether another page should be requested. Bare arrays end
// on an empty page through their HasNext.
func hasMore(page int, env Envelope) bool {
	return env.HasNext && page < env.TotalPages
}

func snippet(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}
