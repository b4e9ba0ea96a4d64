// Package runlog persists each sync run's structured summary so an operator
// can audit what happened, or why nothing happened, after the fact. The
// store is optional; the pipeline runs without it.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested run was not found.
var ErrNotFound = errors.New("run not found")

// Run is one recorded sync run.
type Run struct {
	ID      int             `json:"id"`
	RanAt   time.Time       `json:"ranAt"`
	Broker  string          `json:"broker"`
	Blocked bool            `json:"blocked"`
	Summary json.RawMessage `json:"summary"`
}

// Repository defines persistent storage for sync runs.
type Repository interface {
	Save(ctx context.Context, run Run) (int, error)
	List(ctx context.Context, limit int) ([]Run, error)
	Get(ctx context.Context, id int) (*Run, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL run repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, run Run) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sync_runs (ran_at, broker, blocked, summary)
		 VALUES ($1, $2, $3, $4::jsonb)
		 RETURNING id`,
		run.RanAt, run.Broker, run.Blocked, run.Summary).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}
	return id, nil
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, ran_at, broker, blocked, summary
		 FROM sync_runs
		 ORDER BY ran_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.RanAt, &run.Broker, &run.Blocked, &run.Summary); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func (r *PgRepository) Get(ctx context.Context, id int) (*Run, error) {
	var run Run
	err := r.pool.QueryRow(ctx,
		`SELECT id, ran_at, broker, blocked, summary
		 FROM sync_runs
		 WHERE id = $1`, id).Scan(&run.ID, &run.RanAt, &run.Broker, &run.Blocked, &run.Summary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting run %d: %w", id, err)
	}
	return &run, nil
}
