package service_test

import (
	"context"
	"errors"
	"image"
	"os"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/proctorwatch/internal/adapters/repository"
	service "github.com/okian/proctorwatch/internal/app"
	"github.com/okian/proctorwatch/internal/domain/model"
)

// waitPersisted polls until the worker pool has written n incidents.
func waitPersisted(svc *service.Service, n int64) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := svc.GetStats()["incidentsPersisted"].(int64); got >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service over a fresh database", t, func() {
		ctx := context.Background()
		t0 := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
		mock := clock.NewMock()
		mock.Set(t0)
		rec := &fakeRecognizer{}

		svc := service.New(testConfig(t), service.WithRecognizer(rec), service.WithClock(mock))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		frame := image.NewGray(image.Rect(0, 0, 64, 48))
		centered := model.Box{X: 22, Y: 10, W: 20, H: 20}
		c, err := svc.CreateCandidate(ctx, "Ada Lovelace")
		So(err, ShouldBeNil)
		So(c.IntegrityScore, ShouldEqual, 100)
		So(c.StartedAt, ShouldEqual, t0)

		score := func() float64 {
			list, err := svc.ListCandidates(ctx)
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 1)
			return list[0].IntegrityScore
		}

		Convey("When a proctoring session runs end to end", func() {
			rec.set([]model.Box{centered}, nil, nil)
			res, err := svc.AnalyzeFrame(ctx, c.ID, frame)
			So(err, ShouldBeNil)
			So(res.Focused, ShouldBeTrue)
			So(res.Score, ShouldEqual, 100)

			rec.set([]model.Box{centered, {X: 0, Y: 0, W: 10, H: 10}}, nil, nil)
			res, err = svc.AnalyzeFrame(ctx, c.ID, frame)
			So(err, ShouldBeNil)
			So(res.Events, ShouldResemble, []string{"multiple_faces_detected"})
			So(res.Score, ShouldEqual, 85)
			So(score(), ShouldEqual, 85)

			rec.set([]model.Box{centered}, []string{"Cell Phone"}, nil)
			res, err = svc.AnalyzeFrame(ctx, c.ID, frame)
			So(err, ShouldBeNil)
			So(res.Focused, ShouldBeTrue)
			So(res.Events, ShouldResemble, []string{"cell phone"})
			So(res.Score, ShouldEqual, 80)

			logged, err := svc.LogEvents(ctx, c.ID, []string{"Book", "  "})
			So(err, ShouldBeNil)
			So(logged, ShouldResemble, []string{"book"})
			So(score(), ShouldEqual, 75)

			rec.set(nil, nil, errors.New("detector down"))
			res, err = svc.AnalyzeFrame(ctx, c.ID, frame)
			So(err, ShouldBeNil)
			So(res.Degraded, ShouldBeTrue)
			So(score(), ShouldEqual, 75)

			So(waitPersisted(svc, 2), ShouldBeTrue)
			So(svc.GetStats()["activeSessions"], ShouldEqual, 1)

			mock.Add(time.Hour)
			ended, err := svc.EndSession(ctx, c.ID)
			So(err, ShouldBeNil)

			Convey("Then the session should be closed", func() {
				So(ended.EndedAt, ShouldNotBeNil)
				So(*ended.EndedAt, ShouldEqual, t0.Add(time.Hour))
				So(svc.GetStats()["activeSessions"], ShouldEqual, 0)
			})

			Convey("And the report should list every incident", func() {
				path, err := svc.GenerateReport(ctx, c.ID)
				So(err, ShouldBeNil)
				body, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				text := string(body)
				So(text, ShouldContainSubstring, "Candidate ID,Candidate Name,Timestamp,Event,Score Change")
				So(text, ShouldContainSubstring, "multiple_faces_detected,15")
				So(text, ShouldContainSubstring, "cell phone,20")
				So(text, ShouldContainSubstring, "book,5")
				So(text, ShouldContainSubstring, "Final Integrity Score,75")
			})
		})

		Convey("When an unknown candidate is used", func() {
			_, err := svc.AnalyzeFrame(ctx, "ghost", frame)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = svc.LogEvents(ctx, "ghost", []string{"book"})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = svc.EndSession(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = svc.GenerateReport(ctx, "ghost")

			Convey("Then every operation should report not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the candidate stays absent past the threshold", func() {
			rec.set(nil, nil, nil)
			_, err := svc.AnalyzeFrame(ctx, c.ID, frame)
			So(err, ShouldBeNil)
			mock.Add(11 * time.Second)
			res, err := svc.AnalyzeFrame(ctx, c.ID, frame)

			Convey("Then absence should be reported and scored", func() {
				So(err, ShouldBeNil)
				So(res.Focused, ShouldBeFalse)
				So(res.Events, ShouldResemble, []string{"no_face_detected"})
				So(res.Score, ShouldEqual, 90)
				So(score(), ShouldEqual, 90)
			})
		})
	})
}
