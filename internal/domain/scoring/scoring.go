// Package scoring turns event labels into integrity scores.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultMaxScore is the score of a frame without deductions.
const DefaultMaxScore = 100

// Condition labels raised by the focus engine itself.
const (
	LabelNoFace        = "no_face_detected"
	LabelMultipleFaces = "multiple_faces_detected"
	LabelLookingAway   = "candidate_not_looking_at_screen"
)

// ConditionLabels lists the closed vocabulary of condition events.
var ConditionLabels = []string{LabelNoFace, LabelMultipleFaces, LabelLookingAway}

// IsCondition reports whether label is one of the condition events.
func IsCondition(label string) bool {
	switch NormalizeLabel(label) {
	case LabelNoFace, LabelMultipleFaces, LabelLookingAway:
		return true
	}
	return false
}

// NormalizeLabel trims and lower-cases a label so table lookups are case-insensitive.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Deduction is a non-negative number of integrity points.
type Deduction float64

// DeductionTable maps normalized event labels to deductions. It is immutable after construction.
type DeductionTable struct {
	entries map[string]Deduction
}

// NewDeductionTable validates and normalizes a label -> points mapping.
func NewDeductionTable(points map[string]float64) (*DeductionTable, error) {
	t := &DeductionTable{entries: make(map[string]Deduction, len(points))}
	for label, p := range points {
		key := NormalizeLabel(label)
		if key == "" {
			return nil, fmt.Errorf("%w: empty label", ErrInvalidDeduction)
		}
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: %q has %v", ErrInvalidDeduction, label, p)
		}
		t.entries[key] = Deduction(p)
	}
	return t, nil
}

// Lookup returns the deduction for label. Unknown labels are a deliberate
// zero-weight category and report ok=false.
func (t *DeductionTable) Lookup(label string) (Deduction, bool) {
	if t == nil {
		return 0, false
	}
	d, ok := t.entries[NormalizeLabel(label)]
	return d, ok
}

// Points returns the deduction for label, 0 when unknown.
func (t *DeductionTable) Points(label string) float64 {
	d, _ := t.Lookup(label)
	return float64(d)
}

// Labels returns the known labels in sorted order.
func (t *DeductionTable) Labels() []string {
	if t == nil {
		return []string{}
	}
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Unweighted returns the labels from vocabulary that the table does not know.
// Those labels still appear in results but never reduce a score.
func (t *DeductionTable) Unweighted(vocabulary []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(vocabulary))
	for _, label := range vocabulary {
		key := NormalizeLabel(label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := t.Lookup(key); !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Calculator reduces an event multiset to an integrity score.
type Calculator struct {
	table    *DeductionTable
	maxScore float64
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithMaxScore sets the score of a clean frame.
func WithMaxScore(maxScore float64) Option {
	return func(c *Calculator) {
		if maxScore > 0 {
			c.maxScore = maxScore
		}
	}
}

// NewCalculator creates a calculator backed by table.
func NewCalculator(table *DeductionTable, opts ...Option) *Calculator {
	c := &Calculator{
		table:    table,
		maxScore: DefaultMaxScore,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score returns max(0, maxScore - sum of deductions). Unknown labels cost nothing.
func (c *Calculator) Score(labels []string) float64 {
	var total float64
	for _, label := range labels {
		total += c.table.Points(label)
	}
	return math.Max(0, c.maxScore-total)
}

// MaxScore returns the score of a frame without deductions.
func (c *Calculator) MaxScore() float64 {
	return c.maxScore
}

// Table returns the deduction table the calculator reads.
func (c *Calculator) Table() *DeductionTable {
	return c.table
}
