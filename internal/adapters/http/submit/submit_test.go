package submit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/vitals/internal/adapters/http/transport"
	"github.com/okian/vitals/internal/domain/assessment"
	"github.com/okian/vitals/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

type fakePoster struct {
	path  string
	body  any
	reply []byte
	err   error
}

func (p *fakePoster) PostJSON(_ context.Context, path string, body any) ([]byte, error) {
	p.path = path
	p.body = body
	return p.reply, p.err
}

func TestSubmit(t *testing.T) {
	result := assessment.Result{
		HighRisk:          []string{"DEMO002"},
		Fever:             []string{"DEMO002", "DEMO005"},
		DataQualityIssues: []string{},
	}

	Convey("Given a poster that accepts the submission", t, func() {
		p := &fakePoster{reply: []byte(`{"success": true}`)}
		s := New(p)

		body, err := s.Submit(context.Background(), result)

		Convey("Then the result is posted to the submission path", func() {
			So(err, ShouldBeNil)
			So(string(body), ShouldEqual, `{"success": true}`)
			So(p.path, ShouldEqual, SubmitPath)
			So(p.body, ShouldResemble, result)
		})
	})

	Convey("Given a custom path", t, func() {
		p := &fakePoster{}
		_, _ = New(p, WithPath("/v2/submit")).Submit(context.Background(), result)

		Convey("Then it is used", func() {
			So(p.path, ShouldEqual, "/v2/submit")
		})
	})

	Convey("Given a poster that fails", t, func() {
		cause := errors.New("retries exhausted")
		p := &fakePoster{err: cause}

		body, err := New(p).Submit(context.Background(), result)

		Convey("Then the error is wrapped as a submit failure", func() {
			So(body, ShouldBeNil)
			So(errors.Is(err, ErrSubmit), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
		})
	})
}

func TestSubmitOverTransport(t *testing.T) {
	Convey("Given an upstream that records the posted payload", t, func() {
		var (
			gotMethod string
			gotPath   string
			gotKey    string
			payload   map[string][]string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			gotKey = r.Header.Get(transport.HeaderAPIKey)
			_ = json.NewDecoder(r.Body).Decode(&payload)
			_, _ = io.WriteString(w, `{"success": true, "results": {"score": 100}}`)
		}))
		defer srv.Close()

		client := transport.New(srv.URL+"/api",
			transport.WithAPIKey("ak_test"),
			transport.WithHTTPClient(srv.Client()),
			transport.WithBackoff(time.Millisecond, 0),
		)
		empty := assessment.NewBuilder().Result()

		body, err := New(client).Submit(context.Background(), empty)

		Convey("Then empty buckets are sent as arrays", func() {
			So(err, ShouldBeNil)
			So(string(body), ShouldContainSubstring, `"success": true`)
			So(gotMethod, ShouldEqual, http.MethodPost)
			So(gotPath, ShouldEqual, "/api"+SubmitPath)
			So(gotKey, ShouldEqual, "ak_test")
			So(payload, ShouldContainKey, "high_risk_patients")
			So(payload["high_risk_patients"], ShouldNotBeNil)
			So(payload["high_risk_patients"], ShouldBeEmpty)
			So(payload["fever_patients"], ShouldNotBeNil)
			So(payload["data_quality_issues"], ShouldNotBeNil)
		})
	})

	Convey("Given an upstream that rejects the payload", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error": "bad payload"}`)
		}))
		defer srv.Close()

		client := transport.New(srv.URL,
			transport.WithHTTPClient(srv.Client()),
			transport.WithBackoff(time.Millisecond, 0),
		)

		_, err := New(client).Submit(context.Background(), assessment.NewBuilder().Result())

		Convey("Then the failure is not retried and surfaces as a submit error", func() {
			So(errors.Is(err, ErrSubmit), ShouldBeTrue)
			So(errors.Is(err, transport.ErrUnexpectedStatus), ShouldBeTrue)
		})
	})
}
