package validator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/alovak/cardflow-validator/validator/models"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

var (
	ErrNotFound = fmt.Errorf("not found")
	ErrConflict = fmt.Errorf("conflict")
)

// Repository keeps batch run summaries either in memory or in Postgres.
type Repository struct {
	mu   sync.RWMutex
	runs map[string]*models.Run

	db *sql.DB
}

func NewRepository() *Repository {
	return &Repository{
		runs: make(map[string]*models.Run),
	}
}

// NewPGRepository constructs a db-backed repository.
func NewPGRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const schema = `
CREATE SCHEMA IF NOT EXISTS validator;
CREATE TABLE IF NOT EXISTS validator.runs (
    run_id      uuid PRIMARY KEY,
    created_at  timestamptz NOT NULL,
    total       integer NOT NULL,
    accepted    integer NOT NULL,
    rejections  jsonb NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS validator.run_cards (
    run_id      uuid NOT NULL REFERENCES validator.runs(run_id) ON DELETE CASCADE,
    position    integer NOT NULL,
    masked_pan  text NOT NULL,
    last4       text NOT NULL,
    pan_hash    text NOT NULL,
    brand       text NOT NULL,
    PRIMARY KEY (run_id, position)
);`

// EnsureSchema creates the tables used by the pg backend. No-op in memory.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

func (r *Repository) CreateRun(ctx context.Context, run *models.Run) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.runs[run.ID]; ok {
			return fmt.Errorf("run %s exists: %w", run.ID, ErrConflict)
		}
		r.runs[run.ID] = cloneRun(run)
		return nil
	}

	rejections, err := json.Marshal(run.Rejections)
	if err != nil {
		return fmt.Errorf("encoding rejections: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO validator.runs(run_id, created_at, total, accepted, rejections)
        VALUES ($1,$2,$3,$4,$5)
    `, run.ID, run.CreatedAt, run.Total, run.Accepted, rejections)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if len(run.Cards) > 0 {
		masked := make([]string, len(run.Cards))
		last4 := make([]string, len(run.Cards))
		hashes := make([]string, len(run.Cards))
		brands := make([]string, len(run.Cards))
		for i, c := range run.Cards {
			masked[i], last4[i], hashes[i], brands[i] = c.MaskedPAN, c.Last4, c.PANHash, string(c.Brand)
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO validator.run_cards(run_id, position, masked_pan, last4, pan_hash, brand)
            SELECT $1, c.ord - 1, c.masked, c.last4, c.hash, c.brand
            FROM unnest($2::text[], $3::text[], $4::text[], $5::text[])
                WITH ORDINALITY AS c(masked, last4, hash, brand, ord)
        `, run.ID, pq.Array(masked), pq.Array(last4), pq.Array(hashes), pq.Array(brands))
		if err != nil {
			return fmt.Errorf("inserting run cards: %w", err)
		}
	}

	return tx.Commit()
}

func (r *Repository) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		run, ok := r.runs[runID]
		if !ok {
			return nil, ErrNotFound
		}
		return cloneRun(run), nil
	}

	run := &models.Run{}
	var rejections []byte
	row := r.db.QueryRowContext(ctx, `SELECT run_id, created_at, total, accepted, rejections FROM validator.runs WHERE run_id=$1`, runID)
	if err := row.Scan(&run.ID, &run.CreatedAt, &run.Total, &run.Accepted, &rejections); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pe *pq.Error
		if errors.As(err, &pe) && pe.Code == "22P02" {
			// not a uuid
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(rejections, &run.Rejections); err != nil {
		return nil, fmt.Errorf("decoding rejections: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT masked_pan, last4, pan_hash, brand FROM validator.run_cards WHERE run_id=$1 ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c models.RunCard
		var brand string
		if err := rows.Scan(&c.MaskedPAN, &c.Last4, &c.PANHash, &brand); err != nil {
			return nil, err
		}
		c.Brand = models.Brand(brand)
		run.Cards = append(run.Cards, c)
	}
	return run, rows.Err()
}

// ListRuns returns the newest runs first, without their cards.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	if r.db == nil {
		r.mu.RLock()
		out := make([]*models.Run, 0, len(r.runs))
		for _, run := range r.runs {
			c := cloneRun(run)
			c.Cards = nil
			out = append(out, c)
		}
		r.mu.RUnlock()
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		if len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT run_id, created_at, total, accepted, rejections FROM validator.runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Run
	for rows.Next() {
		run := &models.Run{}
		var rejections []byte
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.Total, &run.Accepted, &rejections); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rejections, &run.Rejections); err != nil {
			return nil, fmt.Errorf("decoding rejections: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func cloneRun(run *models.Run) *models.Run {
	c := *run
	if run.Rejections != nil {
		c.Rejections = make(map[models.Reason]int, len(run.Rejections))
		for k, v := range run.Rejections {
			c.Rejections[k] = v
		}
	}
	c.Cards = append([]models.RunCard(nil), run.Cards...)
	return &c
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return true
	}
	return false
}
