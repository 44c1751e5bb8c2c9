package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/okian/vitals/internal/adapters/http/submit"
	"github.com/okian/vitals/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

// upstream fakes the roster API: one canonical page and a submission sink.
type upstream struct {
	mu        sync.Mutex
	submitted []map[string][]string
	apiKeys   []string
	failPost  bool
}

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/patients", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.apiKeys = append(u.apiKeys, r.Header.Get("x-api-key"))
		u.mu.Unlock()
		_, _ = io.WriteString(w, `{
			"data": [
				{"patient_id": "DEMO001", "age": 45, "blood_pressure": "120/80", "temperature": 98.6},
				{"patient_id": "DEMO002", "age": 67, "blood_pressure": "150/95", "temperature": 101.5},
				{"patient_id": "DEMO003", "age": "unknown", "blood_pressure": "N/A", "temperature": 99.6}
			],
			"pagination": {"page": 1, "limit": 5, "total": 3, "totalPages": 1, "hasNext": false, "hasPrevious": false}
		}`)
	})
	mux.HandleFunc("/api/submit-assessment", func(w http.ResponseWriter, r *http.Request) {
		if u.failPost {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		var body map[string][]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		u.submitted = append(u.submitted, body)
		u.mu.Unlock()
		_, _ = io.WriteString(w, `{"success": true}`)
	})
	return mux
}

func clearEnv() {
	for _, k := range []string{"VITALS_API_KEY", "VITALS_CONFIG", "VITALS_BASE_URL", "VITALS_DRY_RUN", "VITALS_PAGE_LIMIT", "VITALS_PUSHGATEWAY_URL"} {
		_ = os.Unsetenv(k)
	}
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		cmd := newRootCmd(io.Discard)

		convey.Convey("Then it exposes the documented flags", func() {
			for _, name := range []string{"config", "base-url", "limit", "log-level", "dry-run"} {
				convey.So(cmd.Flags().Lookup(name), convey.ShouldNotBeNil)
			}
			convey.So(cmd.Use, convey.ShouldEqual, "vitals")
		})

		convey.Convey("When only some flags are set", func() {
			convey.So(cmd.Flags().Parse([]string{"--limit", "9", "--dry-run"}), convey.ShouldBeNil)
			fv := flagValues{limit: 9, dryRun: true, baseURL: "ignored"}

			cfg := config.New()
			for _, o := range overrides(cmd, fv) {
				o(cfg)
			}

			convey.Convey("Then only those override the config", func() {
				convey.So(cfg.PageLimit, convey.ShouldEqual, 9)
				convey.So(cfg.DryRun, convey.ShouldBeTrue)
				convey.So(cfg.BaseURL, convey.ShouldEqual, config.New().BaseURL)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a healthy upstream", t, func() {
		clearEnv()
		defer clearEnv()
		u := &upstream{}
		srv := httptest.NewServer(u.handler())
		defer srv.Close()
		_ = os.Setenv("VITALS_API_KEY", "ak_test")

		var logs bytes.Buffer
		cmd := newRootCmd(&logs)
		cmd.SetArgs([]string{"--base-url", srv.URL + "/api"})

		err := cmd.ExecuteContext(context.Background())

		convey.Convey("Then the assessment is submitted", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(u.apiKeys, convey.ShouldResemble, []string{"ak_test"})
			convey.So(len(u.submitted), convey.ShouldEqual, 1)
			convey.So(u.submitted[0]["high_risk_patients"], convey.ShouldResemble, []string{"DEMO002"})
			convey.So(u.submitted[0]["fever_patients"], convey.ShouldResemble, []string{"DEMO002", "DEMO003"})
			convey.So(u.submitted[0]["data_quality_issues"], convey.ShouldResemble, []string{"DEMO003"})
			convey.So(logs.String(), convey.ShouldContainSubstring, "assessment computed")
		})
	})

	convey.Convey("Given a configured Pushgateway", t, func() {
		clearEnv()
		defer clearEnv()
		u := &upstream{}
		srv := httptest.NewServer(u.handler())
		defer srv.Close()

		var (
			pushMu    sync.Mutex
			pushPaths []string
		)
		gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pushMu.Lock()
			pushPaths = append(pushPaths, r.URL.Path)
			pushMu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer gw.Close()
		_ = os.Setenv("VITALS_PUSHGATEWAY_URL", gw.URL)

		cmd := newRootCmd(io.Discard)
		cmd.SetArgs([]string{"--base-url", srv.URL + "/api", "--dry-run"})

		err := cmd.ExecuteContext(context.Background())

		convey.Convey("Then run metrics are pushed under the job name", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(pushPaths), convey.ShouldEqual, 1)
			convey.So(pushPaths[0], convey.ShouldStartWith, "/metrics/job/vitals_assessment/run_id/")
		})
	})

	convey.Convey("Given the dry-run flag", t, func() {
		clearEnv()
		defer clearEnv()
		u := &upstream{}
		srv := httptest.NewServer(u.handler())
		defer srv.Close()

		cmd := newRootCmd(io.Discard)
		cmd.SetArgs([]string{"--base-url", srv.URL + "/api", "--dry-run"})

		err := cmd.ExecuteContext(context.Background())

		convey.Convey("Then no API key is needed and nothing is submitted", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(u.apiKeys), convey.ShouldEqual, 1)
			convey.So(u.submitted, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given an upstream that rejects the submission", t, func() {
		clearEnv()
		defer clearEnv()
		u := &upstream{failPost: true}
		srv := httptest.NewServer(u.handler())
		defer srv.Close()
		_ = os.Setenv("VITALS_API_KEY", "ak_test")

		cmd := newRootCmd(io.Discard)
		cmd.SetArgs([]string{"--base-url", srv.URL + "/api"})

		err := cmd.ExecuteContext(context.Background())

		convey.Convey("Then the command fails with a submit error", func() {
			convey.So(errors.Is(err, submit.ErrSubmit), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given no API key outside dry-run", t, func() {
		clearEnv()
		defer clearEnv()

		cmd := newRootCmd(io.Discard)
		cmd.SetArgs([]string{"--base-url", "http://127.0.0.1:1/api"})

		err := cmd.ExecuteContext(context.Background())

		convey.Convey("Then configuration is rejected", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an unexpected argument", t, func() {
		cmd := newRootCmd(io.Discard)
		cmd.SetArgs([]string{"extra"})

		convey.Convey("Then the command refuses it", func() {
			convey.So(cmd.ExecuteContext(context.Background()), convey.ShouldNotBeNil)
		})
	})
}
