package api

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	yaml "gopkg.in/yaml.v3"

	"planscore/internal/metrics"
	"planscore/internal/model"
	"planscore/internal/opt"
	"planscore/internal/scoring"
)

// ScoreHandler handles POST /v1/score
func (s *Server) ScoreHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	var req model.ScoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validatePlanIn(req.Plan); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid score request", err.Error(), r.URL.Path)
		return
	}
	p, err := req.Plan.ToPlan()
	if err == nil {
		err = p.Validate()
	}
	if err != nil {
		metrics.PlanScores.WithLabelValues("invalid_plan").Inc()
		writeError(w, r, err)
		return
	}
	cfg, err := s.scoringConfig(r.Context(), pr.Tenant, req.Config)
	if err != nil {
		metrics.PlanScores.WithLabelValues("config_error").Inc()
		writeError(w, r, err)
		return
	}
	b, err := s.Scorer.Breakdown(p, cfg, req.PlanCost)
	if err != nil {
		metrics.PlanScores.WithLabelValues("config_error").Inc()
		writeError(w, r, err)
		return
	}
	metrics.PlanScores.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, model.ScoreResponse{PersonID: p.PersonID, Score: b.Total, Breakdown: b})
}

// RescheduleHandler handles POST /v1/reschedule. The search runs on the
// request goroutine; improvements are streamed on the person's topic while
// it runs. A client disconnect ends the search early and the best plan so
// far is still recorded.
func (s *Server) RescheduleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !pr.CanPlan() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "planner or admin required", r.URL.Path)
		return
	}
	var req model.RescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validatePlanIn(req.Plan); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid reschedule request", err.Error(), r.URL.Path)
		return
	}
	opts, err := req.Options()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.Plan.ToPlan()
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg, err := s.scoringConfig(r.Context(), pr.Tenant, req.Config)
	if err != nil {
		writeError(w, r, err)
		return
	}

	runID := uuid.New().String()
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	topic := topicFor(pr.Tenant, p.PersonID)
	opts.PlanCost = req.PlanCost
	opts.OnImprove = func(tp opt.TracePoint) {
		s.Broker.Publish(topic, newEvent(model.EventImproved, pr.Tenant, p.PersonID, runID, tp))
	}

	log := s.Log.With().Str("tenant", pr.Tenant).Str("person", p.PersonID).Str("run", runID).Logger()
	ctx := log.WithContext(r.Context())
	res, err := opt.Reschedule(ctx, p, s.Scorer, cfg, opts, rand.New(rand.NewSource(seed)))
	if err != nil && res.Metrics.Outcome != opt.OutcomeCancelled {
		writeError(w, r, err)
		return
	}

	rec, saveErr := s.finishRun(context.WithoutCancel(ctx), pr.Tenant, runID, opts.Policy, seed, res, log)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if saveErr != nil {
		writeError(w, r, saveErr)
		return
	}
	writeJSON(w, http.StatusOK, model.RescheduleResponse{
		RunID:    rec.ID,
		PersonID: rec.PersonID,
		Plan:     rec.Plan,
		Trace:    res.Trace,
		Samples:  res.Samples,
		Metrics:  res.Metrics,
	})
}

// finishRun records a finished search everywhere it is observed: metrics,
// the in-process metrics store, the run store, the stream and the webhook.
func (s *Server) finishRun(ctx context.Context, tenant, runID string, policy opt.Policy, seed int64, res opt.Result, log zerolog.Logger) (model.RunRecord, error) {
	m := res.Metrics
	metrics.ObserveRun(string(m.Outcome), m.Iterations, m.Improvements, res.Gain())
	opt.RecordMetrics(tenant, res.Plan.PersonID, m)

	rec, err := s.Store.SaveRun(ctx, model.RunRecord{
		ID:        runID,
		TenantID:  tenant,
		PersonID:  res.Plan.PersonID,
		Policy:    string(policy),
		Seed:      seed,
		Metrics:   m,
		Trace:     res.Trace,
		Plan:      model.FromPlan(res.Plan),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("save run")
		return rec, err
	}

	summary := map[string]any{
		"outcome":      m.Outcome,
		"iterations":   m.Iterations,
		"improvements": m.Improvements,
		"initialScore": m.InitialScore,
		"bestScore":    m.BestScore,
	}
	s.Broker.Publish(topicFor(tenant, rec.PersonID), newEvent(model.EventCompleted, tenant, rec.PersonID, rec.ID, summary))
	s.Pub.Emit(ctx, tenant, model.EventCompleted, map[string]any{"runId": rec.ID, "personId": rec.PersonID, "metrics": summary})
	log.Info().
		Str("outcome", string(m.Outcome)).
		Int("iterations", m.Iterations).
		Int("improvements", m.Improvements).
		Float64("gain", res.Gain()).
		Dur("elapsed", m.Elapsed).
		Msg("reschedule finished")
	return rec, nil
}

func newEvent(typ, tenant, personID, runID string, data any) model.Event {
	return model.Event{
		Type:     typ,
		TenantID: tenant,
		PersonID: personID,
		RunID:    runID,
		Data:     data,
		At:       time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// BatchHandler handles POST /v1/reschedule/batch. Plans are searched in
// parallel; a failing plan is reported in its item and does not fail the
// batch.
func (s *Server) BatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !pr.CanPlan() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "planner or admin required", r.URL.Path)
		return
	}
	var req model.BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateBatchRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid batch request", err.Error(), r.URL.Path)
		return
	}
	opts, err := req.Options()
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg, err := s.scoringConfig(r.Context(), pr.Tenant, req.Config)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]model.BatchItem, len(req.Plans))
	var (
		jobs  []opt.Job
		index []int
	)
	for i, in := range req.Plans {
		items[i].PersonID = in.PersonID
		p, err := in.ToPlan()
		if err != nil {
			items[i].Error = err.Error()
			continue
		}
		jobs = append(jobs, opt.Job{Plan: p, Config: cfg})
		index = append(index, i)
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log := s.Log.With().Str("tenant", pr.Tenant).Int("plans", len(req.Plans)).Logger()
	ctx := log.WithContext(r.Context())
	results, err := opt.RescheduleAll(ctx, jobs, s.Scorer, opts, s.Workers, seed)
	if err != nil && !errors.Is(err, context.Canceled) {
		writeError(w, r, err)
		return
	}
	saveCtx := context.WithoutCancel(ctx)
	for j, jr := range results {
		i := index[j]
		if jr.Err != nil && jr.Result.Metrics.Outcome != opt.OutcomeCancelled {
			items[i].Error = jr.Err.Error()
			continue
		}
		rec, serr := s.finishRun(saveCtx, pr.Tenant, uuid.New().String(), opts.Policy, seed+int64(j), jr.Result,
			log.With().Str("person", jr.PersonID).Logger())
		if serr != nil {
			items[i].Error = serr.Error()
			continue
		}
		m := jr.Result.Metrics
		items[i].RunID = rec.ID
		items[i].BestScore = m.BestScore
		items[i].Metrics = &m
	}
	writeJSON(w, http.StatusOK, model.BatchResponse{Items: items})
}

// RunsHandler handles GET /v1/runs?personId=&cursor=&limit=
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/runs" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", v, r.URL.Path)
			return
		}
		limit = n
	}
	runs, next, err := s.Store.ListRuns(r.Context(), pr.Tenant, q.Get("personId"), q.Get("cursor"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": runs, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id}
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/runs/"), "/")
	if id == "" || strings.Contains(id, "/") || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	rec, err := s.Store.GetRun(r.Context(), pr.Tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ScoringConfigHandler returns the effective scoring config for the caller's
// tenant, as JSON or, with Accept: application/yaml, as YAML.
func (s *Server) ScoringConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/scoring/config" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	cfg, err := s.scoringConfig(r.Context(), pr.Tenant, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if wantsYAML(r) {
		data, err := scoring.MarshalYAML(cfg)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"config": cfg.Raw()})
}

// AdminScoringConfigHandler gets or replaces the tenant's stored scoring
// overrides. PUT accepts {"config": {...}} as JSON or the bare nested form
// as YAML; the result of overlaying it on the base config must parse.
func (s *Server) AdminScoringConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/scoring/config" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !pr.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Store.GetScoringConfig(r.Context(), pr.Tenant)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
	case http.MethodPut:
		var over map[string]any
		if isYAML(r.Header.Get("Content-Type")) {
			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err == nil {
				err = yaml.Unmarshal(data, &over)
			}
			if err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid YAML", err.Error(), r.URL.Path)
				return
			}
		} else {
			var body struct {
				Config map[string]any `json:"config"`
			}
			if err := decodeJSON(w, r, &body); err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
				return
			}
			over = body.Config
		}
		if over == nil {
			writeProblem(w, http.StatusBadRequest, "Missing config", "", r.URL.Path)
			return
		}
		if _, err := scoring.ParseRaw(scoring.Overlay(s.BaseConfig.Raw(), over)); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.Store.SaveScoringConfig(r.Context(), pr.Tenant, over); err != nil {
			writeError(w, r, err)
			return
		}
		s.Log.Info().Str("tenant", pr.Tenant).Int("keys", len(over)).Msg("scoring config updated")
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RescheduleMetricsHandler handles GET /v1/admin/reschedule-metrics. It
// reports the latest run metrics per person, from the run store when it has
// them and from the in-process record otherwise.
func (s *Server) RescheduleMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/reschedule-metrics" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	pr, ok := s.principal(w, r)
	if !ok {
		return
	}
	if !pr.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	personID := r.URL.Query().Get("personId")
	items := []map[string]any{}
	if personID != "" {
		runs, _, err := s.Store.ListRuns(r.Context(), pr.Tenant, personID, "", 1)
		if err == nil && len(runs) > 0 {
			items = append(items, metricsItem(personID, runs[0].Metrics))
		}
	}
	if len(items) == 0 {
		for person, m := range opt.GetMetrics(pr.Tenant, personID) {
			items = append(items, metricsItem(person, m))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func metricsItem(personID string, m opt.Metrics) map[string]any {
	return map[string]any{
		"personId":     personID,
		"outcome":      m.Outcome,
		"iterations":   m.Iterations,
		"improvements": m.Improvements,
		"initialScore": m.InitialScore,
		"bestScore":    m.BestScore,
		"stoppedEarly": m.StoppedEarly,
		"elapsedMs":    m.Elapsed.Milliseconds(),
	}
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if b, ok := s.Broker.(pinger); ok {
		if err := b.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func wantsYAML(r *http.Request) bool {
	return isYAML(r.Header.Get("Accept")) || r.URL.Query().Get("format") == "yaml"
}

func isYAML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "yaml")
}
