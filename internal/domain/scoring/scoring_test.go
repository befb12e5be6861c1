package scoring_test

import (
	"errors"
	"math"
	"testing"

	scoring "github.com/okian/proctorwatch/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func defaultTable() *scoring.DeductionTable {
	table, err := scoring.NewDeductionTable(map[string]float64{
		"no_face_detected":                10,
		"candidate_not_looking_at_screen": 5,
		"multiple_faces_detected":         15,
		"cell phone":                      20,
		"book":                            5,
	})
	if err != nil {
		panic(err)
	}
	return table
}

func TestCalculator_Score(t *testing.T) {
	Convey("Given a calculator over the default deductions", t, func() {
		calc := scoring.NewCalculator(defaultTable())

		Convey("When no events occurred", func() {
			Convey("Then the score should be the maximum", func() {
				So(calc.Score(nil), ShouldEqual, 100)
				So(calc.Score([]string{}), ShouldEqual, 100)
			})
		})

		Convey("When known events occurred", func() {
			Convey("Then deductions should add up", func() {
				So(calc.Score([]string{"no_face_detected"}), ShouldEqual, 90)
				So(calc.Score([]string{"multiple_faces_detected", "book"}), ShouldEqual, 80)
				So(calc.Score([]string{"book", "book"}), ShouldEqual, 90)
			})
		})

		Convey("When labels differ in case and padding", func() {
			Convey("Then they should match the table", func() {
				So(calc.Score([]string{"  Cell Phone "}), ShouldEqual, 80)
				So(calc.Score([]string{"BOOK"}), ShouldEqual, 95)
			})
		})

		Convey("When a label is not in the table", func() {
			Convey("Then it should cost nothing", func() {
				So(calc.Score([]string{"headphones"}), ShouldEqual, 100)
				So(calc.Score([]string{"headphones", "book"}), ShouldEqual, 95)
			})
		})

		Convey("When deductions exceed the maximum", func() {
			labels := make([]string, 0, 25)
			for i := 0; i < 25; i++ {
				labels = append(labels, "book")
			}

			Convey("Then the score should clamp at zero", func() {
				So(calc.Score(labels), ShouldEqual, 0)
				So(calc.Score([]string{"cell phone", "cell phone", "cell phone", "cell phone", "cell phone", "cell phone"}), ShouldEqual, 0)
			})
		})

		Convey("When the same multiset is given in another order", func() {
			a := calc.Score([]string{"book", "no_face_detected", "cell phone"})
			b := calc.Score([]string{"cell phone", "book", "no_face_detected"})

			Convey("Then the score should be the same", func() {
				So(a, ShouldEqual, b)
				So(a, ShouldEqual, 65)
			})
		})
	})

	Convey("Given a calculator with a custom maximum", t, func() {
		calc := scoring.NewCalculator(defaultTable(), scoring.WithMaxScore(50))

		Convey("Then deductions should start from that maximum", func() {
			So(calc.MaxScore(), ShouldEqual, 50)
			So(calc.Score([]string{"no_face_detected"}), ShouldEqual, 40)
		})
	})
}

func TestDeductionTable(t *testing.T) {
	Convey("Given deduction table construction", t, func() {
		Convey("When a negative deduction is supplied", func() {
			_, err := scoring.NewDeductionTable(map[string]float64{"book": -1})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, scoring.ErrInvalidDeduction), ShouldBeTrue)
			})
		})

		Convey("When a NaN deduction is supplied", func() {
			_, err := scoring.NewDeductionTable(map[string]float64{"book": math.NaN()})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, scoring.ErrInvalidDeduction), ShouldBeTrue)
			})
		})

		Convey("When an empty label is supplied", func() {
			_, err := scoring.NewDeductionTable(map[string]float64{"  ": 3})

			Convey("Then it should be rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When looking up labels", func() {
			table := defaultTable()
			d, ok := table.Lookup("Cell Phone")
			_, unknown := table.Lookup("headphones")

			Convey("Then known labels report their weight and unknown ones report absence", func() {
				So(ok, ShouldBeTrue)
				So(float64(d), ShouldEqual, 20)
				So(unknown, ShouldBeFalse)
				So(table.Points("headphones"), ShouldEqual, 0)
			})
		})

		Convey("When checking a provider vocabulary", func() {
			table := defaultTable()
			missing := table.Unweighted([]string{"book", "Headphones", "headphones", "calculator"})

			Convey("Then only unknown labels should be reported once each", func() {
				So(missing, ShouldResemble, []string{"calculator", "headphones"})
			})
		})

		Convey("When the table is nil", func() {
			var table *scoring.DeductionTable
			_, ok := table.Lookup("book")

			Convey("Then lookups should be zero-weight", func() {
				So(ok, ShouldBeFalse)
				So(table.Points("book"), ShouldEqual, 0)
			})

			Convey("And listing should not panic", func() {
				So(table.Labels(), ShouldBeEmpty)
				So(table.Unweighted([]string{"Book", "laptop"}), ShouldResemble, []string{"book", "laptop"})
			})
		})
	})
}

func TestIsCondition(t *testing.T) {
	for _, label := range scoring.ConditionLabels {
		if !scoring.IsCondition(label) {
			t.Errorf("expected %q to be a condition label", label)
		}
	}
	if scoring.IsCondition("cell phone") {
		t.Error("object label reported as condition")
	}
}
