package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/proctorwatch/internal/adapters/repository/migrations"
	"github.com/okian/proctorwatch/internal/domain/model"
	"github.com/okian/proctorwatch/pkg/logger"
	"github.com/okian/proctorwatch/pkg/metrics"
)

// DefaultInitialScore is the integrity score a new candidate starts with.
const DefaultInitialScore = 100

// SQLiteStore persists candidates and incidents in a single SQLite file.
type SQLiteStore struct {
	db           *sql.DB
	clock        clock.Clock
	initialScore float64
	newID        func() string
	logger       logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens (creating if needed) the SQLite database at path and applies
// embedded migrations.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidPath
	}
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := clean +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLiteStore{
		db:           db,
		clock:        clock.New(),
		initialScore: DefaultInitialScore,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("store")
	}
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateTotalCandidates(n)
	}
	return s, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	return nil
}

// CreateCandidate registers a candidate.
func (s *SQLiteStore) CreateCandidate(ctx context.Context, name string) (model.Candidate, error) {
	if err := s.ready(ctx); err != nil {
		return model.Candidate{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Candidate{}, ErrInvalidName
	}
	c := model.Candidate{
		ID:             s.newID(),
		Name:           name,
		IntegrityScore: s.initialScore,
		StartedAt:      fromMillis(toMillis(s.clock.Now())),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO candidates (candidate_id, candidate_name, integrity_score, start_time) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.IntegrityScore, toMillis(c.StartedAt),
	); err != nil {
		return model.Candidate{}, fmt.Errorf("create candidate: %w", err)
	}
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateTotalCandidates(n)
	}
	s.logger.Info(ctx, "candidate added", logger.String("candidate", c.ID), logger.String("name", c.Name))
	return c, nil
}

const candidateColumns = `candidate_id, candidate_name, integrity_score, start_time, end_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (model.Candidate, error) {
	var (
		c     model.Candidate
		start int64
		end   sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.IntegrityScore, &start, &end); err != nil {
		return model.Candidate{}, err
	}
	c.StartedAt = fromMillis(start)
	if end.Valid {
		t := fromMillis(end.Int64)
		c.EndedAt = &t
	}
	return c, nil
}

// GetCandidate returns one candidate by id.
func (s *SQLiteStore) GetCandidate(ctx context.Context, id string) (model.Candidate, error) {
	if err := s.ready(ctx); err != nil {
		return model.Candidate{}, err
	}
	c, err := scanCandidate(s.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE candidate_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Candidate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return model.Candidate{}, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

// ListCandidates returns every candidate ordered by start time then id.
func (s *SQLiteStore) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates ORDER BY start_time, candidate_id`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) prepareIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	if err := s.ready(ctx); err != nil {
		return model.Incident{}, err
	}
	inc.Label = strings.TrimSpace(inc.Label)
	if inc.Label == "" {
		return model.Incident{}, ErrInvalidLabel
	}
	if inc.At.IsZero() {
		inc.At = s.clock.Now()
	}
	inc.At = fromMillis(toMillis(inc.At))
	return inc, nil
}

// insertIncident adds the events row only when the candidate exists.
func insertIncident(ctx context.Context, tx *sql.Tx, inc model.Incident) (model.Incident, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (candidate_id, timestamp, event, score_change)
		 SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM candidates WHERE candidate_id = ?)`,
		inc.CandidateID, toMillis(inc.At), inc.Label, inc.Deduction, inc.CandidateID)
	if err != nil {
		return model.Incident{}, fmt.Errorf("insert incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Incident{}, fmt.Errorf("%w: %s", ErrNotFound, inc.CandidateID)
	}
	if inc.ID, err = res.LastInsertId(); err != nil {
		return model.Incident{}, fmt.Errorf("incident id: %w", err)
	}
	return inc, nil
}

// RecordIncident inserts the incident and applies its deduction in one transaction.
func (s *SQLiteStore) RecordIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	inc, err := s.prepareIncident(ctx, inc)
	if err != nil {
		return model.Incident{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Incident{}, fmt.Errorf("begin incident: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if inc, err = insertIncident(ctx, tx, inc); err != nil {
		return model.Incident{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE candidates SET integrity_score = MAX(integrity_score - ?, 0) WHERE candidate_id = ?`,
		inc.Deduction, inc.CandidateID); err != nil {
		return model.Incident{}, fmt.Errorf("apply deduction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Incident{}, fmt.Errorf("commit incident: %w", err)
	}
	return inc, nil
}

// AppendIncident inserts the incident and leaves the stored score alone.
func (s *SQLiteStore) AppendIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	inc, err := s.prepareIncident(ctx, inc)
	if err != nil {
		return model.Incident{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Incident{}, fmt.Errorf("begin incident: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if inc, err = insertIncident(ctx, tx, inc); err != nil {
		return model.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Incident{}, fmt.Errorf("commit incident: %w", err)
	}
	return inc, nil
}

// SetIntegrityScore overwrites the stored score.
func (s *SQLiteStore) SetIntegrityScore(ctx context.Context, id string, score float64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET integrity_score = ? WHERE candidate_id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("set integrity score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// EndCandidate stamps end_time with the current time.
func (s *SQLiteStore) EndCandidate(ctx context.Context, id string) (model.Candidate, error) {
	if err := s.ready(ctx); err != nil {
		return model.Candidate{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET end_time = ? WHERE candidate_id = ?`, toMillis(s.clock.Now()), id)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("end candidate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Candidate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.GetCandidate(ctx, id)
}

// ListIncidents returns the candidate's incidents oldest first.
func (s *SQLiteStore) ListIncidents(ctx context.Context, id string) ([]model.Incident, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, candidate_id, timestamp, event, score_change FROM events WHERE candidate_id = ? ORDER BY event_id`, id)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Incident{}
	for rows.Next() {
		var (
			inc model.Incident
			at  int64
		)
		if err := rows.Scan(&inc.ID, &inc.CandidateID, &at, &inc.Label, &inc.Deduction); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.At = fromMillis(at)
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return out, nil
}

// Count returns the number of registered candidates.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM candidates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}
