package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"planscore/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu    sync.Mutex
	runs  map[string]model.RunRecord // id -> run
	byTen map[string][]string        // tenant -> run ids, oldest first
	cfgs  map[string]map[string]any  // tenant -> scoring config
}

func NewMemory() *Memory {
	return &Memory{
		runs:  map[string]model.RunRecord{},
		byTen: map[string][]string{},
		cfgs:  map[string]map[string]any{},
	}
}

func (m *Memory) SaveRun(ctx context.Context, rec model.RunRecord) (model.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, exists := m.runs[rec.ID]; !exists {
		m.byTen[rec.TenantID] = append(m.byTen[rec.TenantID], rec.ID)
	}
	m.runs[rec.ID] = rec
	return rec, nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, id string) (model.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.runs[id]
	if !ok || rec.TenantID != tenantID {
		return model.RunRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListRuns returns newest first. The cursor is the id of the last item of
// the previous page.
func (m *Memory) ListRuns(ctx context.Context, tenantID, personID, cursor string, limit int) ([]model.RunRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	ids := m.byTen[tenantID]
	i := len(ids) - 1
	if cursor != "" {
		for j, id := range ids {
			if id == cursor {
				i = j - 1
				break
			}
		}
	}
	out := []model.RunRecord{}
	next := ""
	for ; i >= 0; i-- {
		rec := m.runs[ids[i]]
		if personID != "" && rec.PersonID != personID {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, rec)
	}
	return out, next, nil
}

func (m *Memory) GetScoringConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.cfgs[tenantID]
	if !ok {
		return nil, nil
	}
	return cfg, nil
}

func (m *Memory) SaveScoringConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	m.mu.Lock()
	m.cfgs[tenantID] = cfg
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
