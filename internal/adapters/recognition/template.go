package recognition

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/okian/proctorwatch/pkg/frame"
)

// Template matching defaults.
const (
	DefaultMatchThreshold = 0.6
	DefaultMatchScale     = 0.25
)

var templateExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
}

// Template is a reference image for one object label. Pixels are stored
// zero-mean so correlation against a window needs no window mean.
type Template struct {
	Label string
	w, h  int
	px    []float64
	norm  float64
}

func newTemplate(label string, g *image.Gray) Template {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	px := make([]float64, w*h)
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(g.Pix[y*g.Stride+x])
			px[y*w+x] = v
			sum += v
		}
	}
	mean := sum / float64(len(px))
	var sq float64
	for i := range px {
		px[i] -= mean
		sq += px[i] * px[i]
	}
	return Template{Label: label, w: w, h: h, px: px, norm: math.Sqrt(sq)}
}

// TemplateMatcher reports an object label when its template correlates with
// some window of the frame at or above the threshold.
type TemplateMatcher struct {
	templates []Template
	threshold float64
	scale     float64
}

// MatcherOption configures a TemplateMatcher.
type MatcherOption func(*TemplateMatcher)

// WithThreshold sets the minimum normalized correlation for a match.
func WithThreshold(t float64) MatcherOption {
	return func(m *TemplateMatcher) {
		if t > 0 && t <= 1 {
			m.threshold = t
		}
	}
}

// WithScale downsamples frames and templates by factor before matching.
// A factor of 1 matches at full resolution.
func WithScale(f float64) MatcherOption {
	return func(m *TemplateMatcher) {
		if f > 0 && f <= 1 {
			m.scale = f
		}
	}
}

// NewTemplateMatcher creates a matcher over named gray templates.
func NewTemplateMatcher(templates map[string]*image.Gray, opts ...MatcherOption) *TemplateMatcher {
	m := &TemplateMatcher{threshold: DefaultMatchThreshold, scale: DefaultMatchScale}
	for _, opt := range opts {
		opt(m)
	}
	for label, g := range templates {
		g = frame.Scale(g, m.scale)
		if g == nil {
			continue
		}
		m.templates = append(m.templates, newTemplate(strings.ToLower(label), g))
	}
	sort.Slice(m.templates, func(i, j int) bool { return m.templates[i].Label < m.templates[j].Label })
	return m
}

// LoadTemplates reads every image in dir. The label is the lower-cased file
// name without extension.
func LoadTemplates(dir string, opts ...MatcherOption) (*TemplateMatcher, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplateDir, dir, err)
	}
	templates := make(map[string]*image.Gray, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !templateExts[ext] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplateImage, path, err)
		}
		g := frame.Gray(img)
		if g == nil {
			return nil, fmt.Errorf("%w: %s: empty image", ErrTemplateImage, path)
		}
		templates[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = g
	}
	return NewTemplateMatcher(templates, opts...), nil
}

// Labels returns the labels this matcher can report, sorted.
func (m *TemplateMatcher) Labels() []string {
	out := make([]string, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t.Label)
	}
	return out
}

// DetectObjects returns the labels whose template matched, sorted.
func (m *TemplateMatcher) DetectObjects(ctx context.Context, gray *image.Gray) ([]string, error) {
	if gray == nil || len(m.templates) == 0 {
		return nil, nil
	}
	g := frame.Scale(gray, m.scale)
	integ := newIntegral(g)

	var found []string
	for _, t := range m.templates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.matches(g, integ, t) {
			found = append(found, t.Label)
		}
	}
	return found, nil
}

// matches slides t over g and stops at the first window at or above threshold.
// Flat templates and templates larger than the frame never match.
func (m *TemplateMatcher) matches(g *image.Gray, integ *integral, t Template) bool {
	fw, fh := g.Bounds().Dx(), g.Bounds().Dy()
	if t.w > fw || t.h > fh || t.norm == 0 {
		return false
	}
	n := float64(t.w * t.h)
	for y := 0; y+t.h <= fh; y++ {
		for x := 0; x+t.w <= fw; x++ {
			sum, sq := integ.window(x, y, t.w, t.h)
			variance := sq - sum*sum/n
			if variance <= 0 {
				continue
			}
			var dot float64
			for ty := 0; ty < t.h; ty++ {
				row := g.Pix[(y+ty)*g.Stride+x : (y+ty)*g.Stride+x+t.w]
				tp := t.px[ty*t.w : (ty+1)*t.w]
				for tx, v := range row {
					dot += float64(v) * tp[tx]
				}
			}
			if dot/(math.Sqrt(variance)*t.norm) >= m.threshold {
				return true
			}
		}
	}
	return false
}

// integral holds summed-area tables of pixel values and their squares.
type integral struct {
	w   int
	sum []float64
	sq  []float64
}

func newIntegral(g *image.Gray) *integral {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	stride := w + 1
	in := &integral{w: stride, sum: make([]float64, stride*(h+1)), sq: make([]float64, stride*(h+1))}
	for y := 1; y <= h; y++ {
		var rowSum, rowSq float64
		for x := 1; x <= w; x++ {
			v := float64(g.Pix[(y-1)*g.Stride+x-1])
			rowSum += v
			rowSq += v * v
			in.sum[y*stride+x] = in.sum[(y-1)*stride+x] + rowSum
			in.sq[y*stride+x] = in.sq[(y-1)*stride+x] + rowSq
		}
	}
	return in
}

func (in *integral) window(x, y, w, h int) (sum, sq float64) {
	a := y*in.w + x
	b := y*in.w + x + w
	c := (y+h)*in.w + x
	d := (y+h)*in.w + x + w
	return in.sum[d] - in.sum[b] - in.sum[c] + in.sum[a], in.sq[d] - in.sq[b] - in.sq[c] + in.sq[a]
}
