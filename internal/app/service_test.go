package service_test

import (
	"context"
	"errors"
	"image"
	"io"
	"path/filepath"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/proctorwatch/internal/app"
	"github.com/okian/proctorwatch/internal/config"
	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/pkg/logger"
)

func init() {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
}

// fakeRecognizer returns preset faces and objects.
type fakeRecognizer struct {
	mu      sync.Mutex
	faces   []model.Box
	objects []string
	err     error
}

func (f *fakeRecognizer) set(faces []model.Box, objects []string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faces, f.objects, f.err = faces, objects, err
}

func (f *fakeRecognizer) DetectFaces(context.Context, *image.Gray) ([]model.Box, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faces, f.err
}

func (f *fakeRecognizer) DetectObjects(context.Context, *image.Gray) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects, nil
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.New()
	cfg.DatabasePath = filepath.Join(dir, "events.db")
	cfg.ReportDir = filepath.Join(dir, "reports")
	cfg.TemplateDir = ""
	cfg.SinkWorkerCount = 2
	cfg.SinkQueueSize = 100
	return cfg
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default configuration", t, func() {
		svc := service.New(nil)

		Convey("Then it should not be started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("And calls before Start should fail", func() {
			_, err := svc.ListCandidates(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.GenerateReport(context.Background(), "c")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("And Stop should be a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a configured service", t, func() {
		ctx := context.Background()
		svc := service.New(testConfig(t), service.WithRecognizer(&fakeRecognizer{}))

		Convey("When it is started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueCapacity"], ShouldEqual, 100)
			So(stats["totalCandidates"], ShouldEqual, 0)

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it should report stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the deduction table is invalid", func() {
			cfg := testConfig(t)
			cfg.Deductions = map[string]float64{"book": -1}
			bad := service.New(cfg, service.WithRecognizer(&fakeRecognizer{}))

			Convey("Then Start should fail", func() {
				So(bad.Start(ctx), ShouldNotBeNil)
			})
		})

		Convey("When no detector and no templates are configured", func() {
			cfg := testConfig(t)
			cfg.TemplateDir = filepath.Join(t.TempDir(), "missing")
			plain := service.New(cfg)

			Convey("Then Start should still succeed and frames degrade", func() {
				So(plain.Start(ctx), ShouldBeNil)
				defer func() { _ = plain.Stop(ctx) }()

				c, err := plain.CreateCandidate(ctx, "Ada")
				So(err, ShouldBeNil)
				res, err := plain.AnalyzeFrame(ctx, c.ID, image.NewGray(image.Rect(0, 0, 64, 48)))
				So(err, ShouldBeNil)
				So(res.Degraded, ShouldBeTrue)
				So(res.Score, ShouldEqual, 100)
			})
		})
	})
}
