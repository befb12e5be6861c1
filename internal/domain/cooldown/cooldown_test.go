package cooldown_test

import (
	"testing"
	"time"

	"github.com/okian/proctorwatch/internal/domain/cooldown"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGate(t *testing.T) {
	Convey("Given a gate with a five second cooldown", t, func() {
		g := cooldown.New(cooldown.WithCooldown(5 * time.Second))
		t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

		Convey("When a label is seen for the first time", func() {
			ok := g.ShouldEmit("book", t0)

			Convey("Then it should log and start cooling", func() {
				So(ok, ShouldBeTrue)
				So(g.State("book"), ShouldEqual, cooldown.CoolingDown)
				last, seen := g.LastEmit("book")
				So(seen, ShouldBeTrue)
				So(last, ShouldEqual, t0)
			})
		})

		Convey("When the label recurs inside the cooldown", func() {
			g.ShouldEmit("book", t0)
			ok := g.ShouldEmit("book", t0.Add(4999*time.Millisecond))

			Convey("Then it should be suppressed and keep the first timestamp", func() {
				So(ok, ShouldBeFalse)
				last, _ := g.LastEmit("book")
				So(last, ShouldEqual, t0)
			})
		})

		Convey("When the label recurs exactly at the cooldown", func() {
			g.ShouldEmit("book", t0)
			ok := g.ShouldEmit("book", t0.Add(5*time.Second))

			Convey("Then it should log again", func() {
				So(ok, ShouldBeTrue)
				last, _ := g.LastEmit("book")
				So(last, ShouldEqual, t0.Add(5*time.Second))
			})
		})

		Convey("When a cooling label is cleared", func() {
			g.ShouldEmit("book", t0)
			g.Clear("book")

			Convey("Then it should be cleared and log immediately next time", func() {
				So(g.State("book"), ShouldEqual, cooldown.Cleared)
				So(g.ShouldEmit("book", t0.Add(time.Second)), ShouldBeTrue)
				So(g.State("book"), ShouldEqual, cooldown.CoolingDown)
			})
		})

		Convey("When an unknown label is cleared", func() {
			g.Clear("tv")

			Convey("Then it should stay inactive", func() {
				So(g.State("tv"), ShouldEqual, cooldown.Inactive)
				_, seen := g.LastEmit("tv")
				So(seen, ShouldBeFalse)
			})
		})

		Convey("When labels are independent", func() {
			g.ShouldEmit("book", t0)
			ok := g.ShouldEmit("cell phone", t0.Add(time.Second))

			Convey("Then one label should not gate another", func() {
				So(ok, ShouldBeTrue)
				So(g.Cooling(), ShouldResemble, []string{"book", "cell phone"})
			})
		})

		Convey("When time goes backwards", func() {
			g.ShouldEmit("book", t0)
			ok := g.ShouldEmit("book", t0.Add(-time.Minute))

			Convey("Then it should be suppressed", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a gate with defaults", t, func() {
		g := cooldown.New(cooldown.WithCooldown(-time.Second))

		Convey("Then the default cooldown should apply", func() {
			So(g.Cooldown(), ShouldEqual, cooldown.DefaultCooldown)
		})
	})
}

func TestStateString(t *testing.T) {
	cases := map[cooldown.State]string{
		cooldown.Inactive:    "inactive",
		cooldown.CoolingDown: "cooling_down",
		cooldown.Cleared:     "cleared",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
