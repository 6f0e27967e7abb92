package grading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/qpixel/internal/database"
	"github.com/aristath/qpixel/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrRunNotFound is returned when a run ID does not exist
var ErrRunNotFound = errors.New("grading run not found")

// RunStatus is the lifecycle state of a grading run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run represents a stored grading run
type Run struct {
	ID                   string     `json:"id"`
	Source               string     `json:"source"`
	Strategy             string     `json:"strategy"`
	TieBreak             string     `json:"tie_break"`
	Shots                int        `json:"shots"`
	Status               RunStatus  `json:"status"`
	Items                int        `json:"items"`
	MeanMSE              float64    `json:"mean_mse"`
	Fidelity             float64    `json:"fidelity"`
	AverageTwoQubitGates float64    `json:"average_two_qubit_gates"`
	Score                float64    `json:"score"`
	Error                string     `json:"error,omitempty"`
	StartedAt            time.Time  `json:"started_at"`
	FinishedAt           *time.Time `json:"finished_at,omitempty"`
}

// Repository persists grading runs and their items
//
// Database: grading.db (grading_runs, grading_items tables)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new grading repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "grading").Logger(),
	}
}

// CreateRun inserts a run in the running state
func (r *Repository) CreateRun(ctx context.Context, run Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO grading_runs
		(id, source, strategy, tie_break, shots, status, items, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Source,
		run.Strategy,
		run.TieBreak,
		run.Shots,
		RunRunning,
		run.Items,
		run.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create grading run: %w", err)
	}
	return nil
}

// CompleteRun stores the report summary and every item record atomically
func (r *Repository) CompleteRun(ctx context.Context, id string, report *Report) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE grading_runs
			SET status = ?,
				items = ?,
				mean_mse = ?,
				fidelity = ?,
				avg_two_qubit_gates = ?,
				score = ?,
				finished_at = ?
			WHERE id = ?
		`,
			RunCompleted,
			report.Items,
			report.MeanMSE,
			report.Fidelity,
			report.AverageTwoQubitGates,
			report.Score,
			time.Now().Unix(),
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update grading run: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrRunNotFound
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO grading_items
			(run_id, item_index, item_id, mse, two_qubit_gates, operations, qubits, reconstruction, circuit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare item insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range report.Records {
			recon, err := msgpack.Marshal(rec.Reconstruction)
			if err != nil {
				return fmt.Errorf("failed to encode reconstruction of item %d: %w", rec.Index, err)
			}
			circuit, err := msgpack.Marshal(rec.Sequence)
			if err != nil {
				return fmt.Errorf("failed to encode circuit of item %d: %w", rec.Index, err)
			}
			if _, err := stmt.ExecContext(ctx,
				id, rec.Index, rec.ID, rec.MSE, rec.TwoQubitGates, rec.Operations, rec.Qubits, recon, circuit,
			); err != nil {
				return fmt.Errorf("failed to insert item %d: %w", rec.Index, err)
			}
		}
		return nil
	})
}

// FailRun marks a run as failed with the given message
func (r *Repository) FailRun(ctx context.Context, id string, message string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE grading_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, RunFailed, message, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark grading run failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

const runColumns = `id, source, strategy, tie_break, shots, status, items,
	mean_mse, fidelity, avg_two_qubit_gates, score, error, started_at, finished_at`

// GetRun returns a run by ID
func (r *Repository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM grading_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grading run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM grading_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list grading runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grading run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetItems returns the item records of a run in index order
func (r *Repository) GetItems(ctx context.Context, runID string) ([]ScoreRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_index, item_id, mse, two_qubit_gates, operations, qubits, reconstruction, circuit
		FROM grading_items
		WHERE run_id = ?
		ORDER BY item_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grading items: %w", err)
	}
	defer rows.Close()

	var records []ScoreRecord
	for rows.Next() {
		var (
			rec            ScoreRecord
			recon, circuit []byte
		)
		if err := rows.Scan(&rec.Index, &rec.ID, &rec.MSE, &rec.TwoQubitGates, &rec.Operations, &rec.Qubits, &recon, &circuit); err != nil {
			return nil, fmt.Errorf("failed to scan grading item: %w", err)
		}
		if len(recon) > 0 {
			var img domain.Image
			if err := msgpack.Unmarshal(recon, &img); err != nil {
				return nil, fmt.Errorf("failed to decode reconstruction of item %d: %w", rec.Index, err)
			}
			rec.Reconstruction = img
		}
		if len(circuit) > 0 {
			if err := msgpack.Unmarshal(circuit, &rec.Sequence); err != nil {
				return nil, fmt.Errorf("failed to decode circuit of item %d: %w", rec.Index, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                         Run
		meanMSE, fidelity, avg, scr sql.NullFloat64
		errMsg                      sql.NullString
		startedAt                   int64
		finishedAt                  sql.NullInt64
	)
	if err := row.Scan(
		&run.ID, &run.Source, &run.Strategy, &run.TieBreak, &run.Shots, &run.Status, &run.Items,
		&meanMSE, &fidelity, &avg, &scr, &errMsg, &startedAt, &finishedAt,
	); err != nil {
		return nil, err
	}

	run.MeanMSE = meanMSE.Float64
	run.Fidelity = fidelity.Float64
	run.AverageTwoQubitGates = avg.Float64
	run.Score = scr.Float64
	run.Error = errMsg.String
	run.StartedAt = time.Unix(startedAt, 0)
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0)
		run.FinishedAt = &t
	}
	return &run, nil
}
