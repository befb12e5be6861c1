package model_test

import (
	"testing"

	"github.com/okian/proctorwatch/internal/domain/model"
)

func TestBoxCenterX(t *testing.T) {
	cases := []struct {
		box  model.Box
		want float64
	}{
		{model.Box{X: 0, W: 10}, 5},
		{model.Box{X: 100, W: 41}, 120.5},
		{model.Box{X: 7, W: 0}, 7},
	}
	for _, c := range cases {
		if got := c.box.CenterX(); got != c.want {
			t.Errorf("%+v.CenterX() = %v, want %v", c.box, got, c.want)
		}
	}
}
