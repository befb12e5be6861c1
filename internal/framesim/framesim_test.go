package framesim_test

import (
	"context"
	"image"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/proctorwatch/internal/adapters/http/api"
	service "github.com/okian/proctorwatch/internal/app"
	"github.com/okian/proctorwatch/internal/config"
	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/internal/framesim"
	"github.com/okian/proctorwatch/pkg/frame"
	"github.com/okian/proctorwatch/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

// centeredFace reports one face in the middle of every frame.
type centeredFace struct{}

func (centeredFace) DetectFaces(_ context.Context, g *image.Gray) ([]model.Box, error) {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	return []model.Box{{X: w/2 - 10, Y: h/2 - 10, W: 20, H: 20}}, nil
}

func (centeredFace) DetectObjects(context.Context, *image.Gray) ([]string, error) { return nil, nil }

func TestRender(t *testing.T) {
	Convey("Given the synthetic scenes", t, func() {
		Convey("Then each should render at the requested size", func() {
			for _, s := range []framesim.Scene{framesim.SceneCentered, framesim.SceneAway, framesim.SceneEmpty, framesim.SceneTwoFaces} {
				img := framesim.Render(s, 160, 120)
				So(img.Bounds().Dx(), ShouldEqual, 160)
				So(img.Bounds().Dy(), ShouldEqual, 120)
			}
		})

		Convey("Then a centered face should brighten the middle of the frame", func() {
			empty := frame.Gray(framesim.Render(framesim.SceneEmpty, 160, 120))
			centered := frame.Gray(framesim.Render(framesim.SceneCentered, 160, 120))
			So(centered.GrayAt(80, 70).Y, ShouldBeGreaterThan, empty.GrayAt(80, 70).Y)
			So(centered.GrayAt(5, 5).Y, ShouldEqual, empty.GrayAt(5, 5).Y)
		})

		Convey("Then scene names should be stable", func() {
			So(framesim.SceneTwoFaces.String(), ShouldEqual, "two_faces")
			So(framesim.Scene(99).String(), ShouldEqual, "unknown")
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a live server backed by a real service", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		cfg := config.New()
		cfg.DatabasePath = filepath.Join(dir, "events.db")
		cfg.ReportDir = dir
		cfg.TemplateDir = ""

		svc := service.New(cfg, service.WithRecognizer(centeredFace{}))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, api.WithFrameRate(0, 1)).Register(ctx, mux)
		ts := httptest.NewServer(mux)
		defer ts.Close()

		Convey("When a simulation runs", func() {
			stats, err := framesim.Run(ctx, &framesim.Config{
				BaseURL:    ts.URL,
				Candidates: 3,
				Frames:     20,
				Workers:    2,
				Width:      96,
				Height:     72,
				Seed:       rand.Uint64(),
			})

			Convey("Then every candidate should be driven to a report", func() {
				So(err, ShouldBeNil)
				So(stats.CandidatesCreated, ShouldEqual, 3)
				So(stats.FramesSent, ShouldEqual, 60)
				So(stats.FramesAnalyzed, ShouldEqual, 60)
				So(stats.FramesFailed, ShouldEqual, 0)
				So(stats.EventsLogged, ShouldEqual, 6)
				So(stats.SessionsEnded, ShouldEqual, 3)
				So(stats.ReportsWritten, ShouldEqual, 3)
			})
		})

		Convey("When the server is unreachable", func() {
			_, err := framesim.Run(ctx, &framesim.Config{BaseURL: "http://127.0.0.1:1", Candidates: 1, Frames: 1})

			Convey("Then the health check should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
