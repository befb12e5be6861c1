// Package report renders per-candidate CSV audit reports.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/pkg/logger"
)

// Header is the first row of every report.
var Header = []string{"Candidate ID", "Candidate Name", "Timestamp", "Event", "Score Change"}

// Source supplies the data a report is built from.
type Source interface {
	GetCandidate(ctx context.Context, id string) (model.Candidate, error)
	ListIncidents(ctx context.Context, id string) ([]model.Incident, error)
}

// Generator writes reports into a directory.
type Generator struct {
	dir    string
	source Source
	logger logger.Logger
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a generator writing into dir.
func NewGenerator(dir string, source Source, opts ...Option) (*Generator, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrNoDirectory
	}
	g := &Generator{dir: filepath.Clean(dir), source: source}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.Get().Named("report")
	}
	return g, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns the report file name for a candidate.
func FileName(c model.Candidate) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(c.Name, "_"), "_.")
	if name == "" {
		name = "candidate"
	}
	return fmt.Sprintf("%s_%s_report.csv", name, c.ID)
}

// Generate writes the candidate's report and returns its path. The file is
// replaced atomically.
func (g *Generator) Generate(ctx context.Context, candidateID string) (string, error) {
	c, err := g.source.GetCandidate(ctx, candidateID)
	if err != nil {
		return "", err
	}
	incidents, err := g.source.ListIncidents(ctx, candidateID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.dir, 0o750); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(g.dir, ".report-*.csv")
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Write(tmp, c, incidents); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	path := filepath.Join(g.dir, FileName(c))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish report: %w", err)
	}

	g.logger.Info(ctx, "report generated",
		logger.String("candidate", c.ID),
		logger.String("path", path),
		logger.Int("events", len(incidents)),
	)
	return path, nil
}

// Write renders the report: header, one row per incident, a blank row, then
// the summary rows.
func Write(w io.Writer, c model.Candidate, incidents []model.Incident) error {
	cw := csv.NewWriter(w)
	rows := make([][]string, 0, len(incidents)+5)
	rows = append(rows, Header)
	for _, inc := range incidents {
		rows = append(rows, []string{c.ID, c.Name, formatTime(inc.At), inc.Label, formatFloat(inc.Deduction)})
	}
	end := ""
	if c.EndedAt != nil {
		end = formatTime(*c.EndedAt)
	}
	rows = append(rows,
		[]string{},
		[]string{"Final Integrity Score", formatFloat(c.IntegrityScore)},
		[]string{"Session Start Time", formatTime(c.StartedAt)},
		[]string{"Session End Time", end},
	)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
