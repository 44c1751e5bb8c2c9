package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/vitals/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.BaseURL, convey.ShouldEqual, "https://assessment.ksensetech.com/api")
			convey.So(cfg.APIKey, convey.ShouldBeEmpty)
			convey.So(cfg.PageLimit, convey.ShouldEqual, 5)
			convey.So(cfg.MaxPages, convey.ShouldEqual, 1000)
			convey.So(cfg.MaxAttempts, convey.ShouldEqual, 5)
			convey.So(cfg.RetryBaseDelay(), convey.ShouldEqual, time.Second)
			convey.So(cfg.RetryMaxJitter(), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.DryRun, convey.ShouldBeFalse)
		})

		convey.Convey("Then validation requires an api key", func() {
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)

			cfg.DryRun = true
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
