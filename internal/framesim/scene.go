package framesim

import (
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/disintegration/imaging"
)

// Scene is what a synthetic frame depicts.
type Scene int

// Scenes, weighted towards a candidate sitting still in front of the camera.
const (
	SceneCentered Scene = iota
	SceneAway
	SceneEmpty
	SceneTwoFaces
)

var sceneWeights = []struct {
	scene  Scene
	weight int
}{
	{SceneCentered, 70},
	{SceneAway, 12},
	{SceneEmpty, 10},
	{SceneTwoFaces, 8},
}

func (s Scene) String() string {
	switch s {
	case SceneCentered:
		return "centered"
	case SceneAway:
		return "away"
	case SceneEmpty:
		return "empty"
	case SceneTwoFaces:
		return "two_faces"
	default:
		return "unknown"
	}
}

// pickScene draws a weighted scene.
func pickScene(r *rand.Rand) Scene {
	total := 0
	for _, w := range sceneWeights {
		total += w.weight
	}
	n := r.IntN(total)
	for _, w := range sceneWeights {
		if n < w.weight {
			return w.scene
		}
		n -= w.weight
	}
	return SceneCentered
}

var (
	background = color.NRGBA{R: 40, G: 44, B: 52, A: 255}
	skin       = color.NRGBA{R: 224, G: 172, B: 105, A: 255}
	eye        = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
)

// Render draws a w x h frame for scene. Faces are light ovals with two eyes.
func Render(scene Scene, w, h int) image.Image {
	img := imaging.New(w, h, background)
	face := h / 3
	switch scene {
	case SceneCentered:
		img = drawFace(img, w/2, h/2, face)
	case SceneAway:
		img = drawFace(img, w/8+face/2, h/2, face)
	case SceneTwoFaces:
		img = drawFace(img, w/3, h/2, face)
		img = drawFace(img, 2*w/3, h/2, face)
	}
	return img
}

func drawFace(dst *image.NRGBA, cx, cy, size int) *image.NRGBA {
	r := size / 2
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			// Taller than wide.
			if 4*x*x+3*y*y <= 3*r*r {
				dst.SetNRGBA(cx+x, cy+y, skin)
			}
		}
	}
	eyeR := size / 12
	for _, ex := range []int{cx - size/5, cx + size/5} {
		for y := -eyeR; y <= eyeR; y++ {
			for x := -eyeR; x <= eyeR; x++ {
				if x*x+y*y <= eyeR*eyeR {
					dst.SetNRGBA(ex+x, cy-size/8+y, eye)
				}
			}
		}
	}
	return dst
}
