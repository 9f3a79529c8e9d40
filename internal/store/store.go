package store

import (
	"context"
	"errors"

	"planscore/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, rec model.RunRecord) (model.RunRecord, error)
	GetRun(ctx context.Context, tenantID, id string) (model.RunRecord, error)
	ListRuns(ctx context.Context, tenantID, personID, cursor string, limit int) (items []model.RunRecord, nextCursor string, err error)

	// Scoring config per tenant, in the nested mapping form. A tenant with
	// no stored config yields (nil, nil).
	GetScoringConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SaveScoringConfig(ctx context.Context, tenantID string, cfg map[string]any) error

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 50
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
