package frame_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/proctorwatch/pkg/frame"
)

func TestGray(t *testing.T) {
	Convey("Given images of different kinds", t, func() {
		Convey("When the image is nil or empty", func() {
			Convey("Then Gray should return nil", func() {
				So(frame.Gray(nil), ShouldBeNil)
				So(frame.Gray(image.NewRGBA(image.Rect(3, 3, 3, 10))), ShouldBeNil)
			})
		})

		Convey("When the image is already gray at the origin", func() {
			g := image.NewGray(image.Rect(0, 0, 4, 4))

			Convey("Then it should be returned as is", func() {
				So(frame.Gray(g), ShouldEqual, g)
			})
		})

		Convey("When the image is color with an offset origin", func() {
			src := image.NewRGBA(image.Rect(5, 5, 9, 7))
			src.Set(5, 5, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			g := frame.Gray(src)

			Convey("Then the gray copy should start at the origin and keep luma", func() {
				So(g.Bounds(), ShouldResemble, image.Rect(0, 0, 4, 2))
				So(g.GrayAt(0, 0).Y, ShouldEqual, 255)
				So(g.GrayAt(1, 0).Y, ShouldEqual, 0)
			})
		})
	})
}

func TestScale(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 100, 40))
	if got := frame.Scale(g, 0.25).Bounds(); got != image.Rect(0, 0, 25, 10) {
		t.Fatalf("unexpected bounds %v", got)
	}
	if frame.Scale(g, 1) != g {
		t.Fatal("factor 1 should not resize")
	}
	if got := frame.Scale(image.NewGray(image.Rect(0, 0, 2, 2)), 0.1).Bounds(); got != image.Rect(0, 0, 1, 1) {
		t.Fatalf("expected 1x1 floor, got %v", got)
	}
}

func TestDecode(t *testing.T) {
	Convey("Given encoded payloads", t, func() {
		Convey("When the payload is a PNG", func() {
			var buf bytes.Buffer
			So(imaging.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 6)), imaging.PNG), ShouldBeNil)
			img, err := frame.Decode(&buf)

			Convey("Then it should decode with its size", func() {
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 8)
				So(img.Bounds().Dy(), ShouldEqual, 6)
			})
		})

		Convey("When the payload is not an image", func() {
			_, err := frame.Decode(strings.NewReader("not an image"))

			Convey("Then a decode error should be returned", func() {
				So(errors.Is(err, frame.ErrDecode), ShouldBeTrue)
			})
		})
	})
}
