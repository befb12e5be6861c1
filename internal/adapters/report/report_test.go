package report_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/proctorwatch/internal/adapters/report"
	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

var errMissing = errors.New("candidate not found")

type fakeSource struct {
	candidates map[string]model.Candidate
	incidents  map[string][]model.Incident
}

func (f fakeSource) GetCandidate(_ context.Context, id string) (model.Candidate, error) {
	c, ok := f.candidates[id]
	if !ok {
		return model.Candidate{}, errMissing
	}
	return c, nil
}

func (f fakeSource) ListIncidents(_ context.Context, id string) ([]model.Incident, error) {
	return f.incidents[id], nil
}

func fixture() (model.Candidate, []model.Incident) {
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	c := model.Candidate{ID: "c-1", Name: "Ada Lovelace", IntegrityScore: 75, StartedAt: start, EndedAt: &end}
	incs := []model.Incident{
		{CandidateID: "c-1", Label: "no_face_detected", Deduction: 10, At: start.Add(time.Minute)},
		{CandidateID: "c-1", Label: "cell phone", Deduction: 20, At: start.Add(2 * time.Minute)},
	}
	return c, incs
}

func TestWrite(t *testing.T) {
	Convey("Given a finished candidate with two incidents", t, func() {
		c, incs := fixture()
		var buf bytes.Buffer

		Convey("When the report is written", func() {
			err := report.Write(&buf, c, incs)

			Convey("Then it should follow the audit layout", func() {
				So(err, ShouldBeNil)
				want := strings.Join([]string{
					"Candidate ID,Candidate Name,Timestamp,Event,Score Change",
					"c-1,Ada Lovelace,2026-05-04T10:01:00Z,no_face_detected,10",
					"c-1,Ada Lovelace,2026-05-04T10:02:00Z,cell phone,20",
					"",
					"Final Integrity Score,75",
					"Session Start Time,2026-05-04T10:00:00Z",
					"Session End Time,2026-05-04T11:00:00Z",
					"",
				}, "\n")
				So(buf.String(), ShouldEqual, want)
			})
		})

		Convey("When the session has not ended", func() {
			c.EndedAt = nil
			_ = report.Write(&buf, c, nil)

			Convey("Then the end time should be blank", func() {
				So(buf.String(), ShouldEndWith, "Session End Time,\n")
			})
		})
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given a generator over a report directory", t, func() {
		c, incs := fixture()
		dir := filepath.Join(t.TempDir(), "reports")
		src := fakeSource{
			candidates: map[string]model.Candidate{c.ID: c},
			incidents:  map[string][]model.Incident{c.ID: incs},
		}
		g, err := report.NewGenerator(dir, src)
		So(err, ShouldBeNil)

		Convey("When a report is generated", func() {
			path, err := g.Generate(context.Background(), c.ID)

			Convey("Then the file should exist with a safe name", func() {
				So(err, ShouldBeNil)
				So(filepath.Base(path), ShouldEqual, "Ada_Lovelace_c-1_report.csv")
				body, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(body), ShouldStartWith, "Candidate ID,Candidate Name")

				entries, _ := os.ReadDir(dir)
				So(entries, ShouldHaveLength, 1)
			})
		})

		Convey("When the candidate is unknown", func() {
			_, err := g.Generate(context.Background(), "ghost")

			Convey("Then the source error should be returned", func() {
				So(errors.Is(err, errMissing), ShouldBeTrue)
			})
		})
	})

	Convey("Given no directory", t, func() {
		_, err := report.NewGenerator(" ", fakeSource{})

		Convey("Then construction should fail", func() {
			So(errors.Is(err, report.ErrNoDirectory), ShouldBeTrue)
		})
	})
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"Ada":         "Ada_x_report.csv",
		"../../etc":   "etc_x_report.csv",
		"":            "candidate_x_report.csv",
		"José Müller": "Jos_M_ller_x_report.csv",
	}
	for name, want := range cases {
		if got := report.FileName(model.Candidate{ID: "x", Name: name}); got != want {
			t.Errorf("FileName(%q) = %q, want %q", name, got, want)
		}
	}
}
