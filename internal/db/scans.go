package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/topmass/internal/topmass"
)

// ErrScanNotFound is returned when no scan has the requested ID.
var ErrScanNotFound = errors.New("scan not found")

// Scan is one stored event scan.
type Scan struct {
	ID        string
	EventID   string
	Status    topmass.ScanStatus
	Points    int
	Samples   int64
	Elapsed   time.Duration
	CreatedAt time.Time
}

// LikelihoodPoint is one stored (mass, JES) estimate.
type LikelihoodPoint struct {
	Mass  float64
	JES   float64
	Value float64
	Error float64
	N     int64
}

// Cycle is one stored row of a scan's cycle history.
type Cycle struct {
	Cycle         int
	MaxIntegrated int
	Active        int
	Covered       float64
	Status        topmass.ScanStatus
}

// SaveScan stores a scan result with its likelihood grid and cycle
// history in one transaction and returns the new scan ID.
func (db *DB) SaveScan(ctx context.Context, eventID string, r *topmass.Result) (string, error) {
	if r == nil {
		return "", errors.New("nil scan result")
	}
	id := uuid.NewString()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (scan_id, event_id, status, points, samples, elapsed_seconds, created_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, eventID, r.Status.String(), r.PointsIntegrated, r.Samples, r.Elapsed.Seconds(), time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert scan: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO likelihood (scan_id, mass, jes, value, error, n)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare likelihood insert: %w", err)
	}
	defer stmt.Close()
	for im, mass := range r.Masses {
		for ij, jes := range r.JES {
			a := r.At(im, ij)
			if _, err := stmt.ExecContext(ctx, id, mass, jes, a.Value(), a.Error(), a.Count()); err != nil {
				return "", fmt.Errorf("failed to insert likelihood at mass %g jes %g: %w", mass, jes, err)
			}
		}
	}

	for i, c := range r.Cycles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scan_cycles (scan_id, cycle, max_integrated, active, covered, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, c.MaxIntegrated, len(c.Active), c.Covered, c.Status.String())
		if err != nil {
			return "", fmt.Errorf("failed to insert cycle %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit scan: %w", err)
	}
	return id, nil
}

// GetScan returns the scan with the given ID, or ErrScanNotFound.
func (db *DB) GetScan(ctx context.Context, id string) (*Scan, error) {
	row := db.QueryRowContext(ctx, `
		SELECT scan_id, event_id, status, points, samples, elapsed_seconds, created_unix_nanos
		FROM scans WHERE scan_id = ?`, id)
	s, err := scanScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	return s, err
}

// ListScans returns all scans of an event, oldest first. An empty eventID
// lists every scan.
func (db *DB) ListScans(ctx context.Context, eventID string) ([]Scan, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT scan_id, event_id, status, points, samples, elapsed_seconds, created_unix_nanos
		FROM scans
		WHERE ? = '' OR event_id = ?
		ORDER BY created_unix_nanos, rowid`, eventID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var out []Scan
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScan(row rowScanner) (*Scan, error) {
	var (
		s       Scan
		status  string
		seconds float64
		created int64
	)
	if err := row.Scan(&s.ID, &s.EventID, &status, &s.Points, &s.Samples, &seconds, &created); err != nil {
		return nil, err
	}
	st, err := topmass.ParseScanStatus(status)
	if err != nil {
		return nil, err
	}
	s.Status = st
	s.Elapsed = time.Duration(seconds * float64(time.Second))
	s.CreatedAt = time.Unix(0, created)
	return &s, nil
}

// Likelihood returns the stored grid of a scan ordered by mass, then JES.
func (db *DB) Likelihood(ctx context.Context, scanID string) ([]LikelihoodPoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT mass, jes, value, error, n
		FROM likelihood WHERE scan_id = ?
		ORDER BY mass, jes`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query likelihood: %w", err)
	}
	defer rows.Close()

	var out []LikelihoodPoint
	for rows.Next() {
		var p LikelihoodPoint
		if err := rows.Scan(&p.Mass, &p.JES, &p.Value, &p.Error, &p.N); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Cycles returns the cycle history of a scan.
func (db *DB) Cycles(ctx context.Context, scanID string) ([]Cycle, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT cycle, max_integrated, active, covered, status
		FROM scan_cycles WHERE scan_id = ?
		ORDER BY cycle`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		var (
			c      Cycle
			status string
		)
		if err := rows.Scan(&c.Cycle, &c.MaxIntegrated, &c.Active, &c.Covered, &status); err != nil {
			return nil, err
		}
		if c.Status, err = topmass.ParseScanStatus(status); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SampleLogLikelihood sums -ln L over every scan that ended in one of the
// given states, per (mass, JES) grid point. Grid points at which any
// included scan has zero likelihood get +Inf. The result is ordered by
// mass, then JES; N is the number of scans contributing to each point.
func (db *DB) SampleLogLikelihood(ctx context.Context, statuses ...topmass.ScanStatus) ([]LikelihoodPoint, error) {
	if len(statuses) == 0 {
		statuses = []topmass.ScanStatus{topmass.StatusOK, topmass.StatusMaxPoints}
	}
	include := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		include[s.String()] = true
	}

	rows, err := db.QueryContext(ctx, `
		SELECT s.status, l.mass, l.jes, l.value
		FROM likelihood l JOIN scans s ON s.scan_id = l.scan_id
		ORDER BY l.mass, l.jes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sample likelihood: %w", err)
	}
	defer rows.Close()

	var out []LikelihoodPoint
	for rows.Next() {
		var (
			status         string
			mass, jes, val float64
		)
		if err := rows.Scan(&status, &mass, &jes, &val); err != nil {
			return nil, err
		}
		if !include[status] {
			continue
		}
		if n := len(out); n == 0 || out[n-1].Mass != mass || out[n-1].JES != jes {
			out = append(out, LikelihoodPoint{Mass: mass, JES: jes})
		}
		p := &out[len(out)-1]
		p.N++
		if val > 0 {
			p.Value -= math.Log(val)
		} else {
			p.Value = math.Inf(1)
		}
	}
	return out, rows.Err()
}

// DeleteScan removes a scan and its likelihood grid and cycles.
func (db *DB) DeleteScan(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM scans WHERE scan_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	return nil
}
