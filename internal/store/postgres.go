package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"planscore/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies the embedded schema files in name order. Every statement
// is idempotent so it is safe to run on each start.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := p.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}

func (p *Postgres) SaveRun(ctx context.Context, rec model.RunRecord) (model.RunRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return rec, err
	}
	trace, err := json.Marshal(rec.Trace)
	if err != nil {
		return rec, err
	}
	pl, err := json.Marshal(rec.Plan)
	if err != nil {
		return rec, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO reschedule_runs (id, tenant_id, person_id, policy, seed, outcome, best_score, metrics, trace, plan, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		rec.ID, rec.TenantID, rec.PersonID, rec.Policy, rec.Seed, string(rec.Metrics.Outcome), rec.Metrics.BestScore, metrics, trace, pl, rec.CreatedAt)
	return rec, err
}

const runColumns = `id::text, tenant_id, person_id, policy, seed, metrics, trace, plan, created_at`

type scanner interface{ Scan(dest ...any) error }

func scanRun(row scanner) (model.RunRecord, error) {
	var rec model.RunRecord
	var metrics, trace, pl []byte
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.PersonID, &rec.Policy, &rec.Seed, &metrics, &trace, &pl, &rec.CreatedAt); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(metrics, &rec.Metrics); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(trace, &rec.Trace); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(pl, &rec.Plan); err != nil {
		return rec, err
	}
	return rec, nil
}

func (p *Postgres) GetRun(ctx context.Context, tenantID, id string) (model.RunRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.RunRecord{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM reschedule_runs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) ListRuns(ctx context.Context, tenantID, personID, cursor string, limit int) ([]model.RunRecord, string, error) {
	limit = clampLimit(limit)
	q := `SELECT ` + runColumns + ` FROM reschedule_runs WHERE tenant_id=$1`
	args := []any{tenantID}
	if personID != "" {
		args = append(args, personID)
		q += fmt.Sprintf(` AND person_id=$%d`, len(args))
	}
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
		args = append(args, cursor)
		n := len(args)
		q += fmt.Sprintf(` AND (created_at, id) < (SELECT created_at, id FROM reschedule_runs WHERE id=$%d)`, n)
	}
	args = append(args, limit+1)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

func (p *Postgres) GetScoringConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	row := p.db.QueryRowContext(ctx, `SELECT config FROM scoring_config WHERE tenant_id=$1`, tenantID)
	var js []byte
	if err := row.Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(js, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SaveScoringConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	js, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO scoring_config (tenant_id, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (tenant_id) DO UPDATE SET config=$2, updated_at=now()`, tenantID, js)
	return err
}
