package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"planscore/internal/model"
)

const (
	maxBodyBytes = 4 << 20
	maxBatchSize = 1000
)

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func validatePlanIn(p model.PlanIn) error {
	if strings.TrimSpace(p.PersonID) == "" {
		return fmt.Errorf("plan.personId is required")
	}
	if len(p.Day) == 0 {
		return fmt.Errorf("plan.day must not be empty")
	}
	return nil
}

func validateBatchRequest(req *model.BatchRequest) error {
	if len(req.Plans) == 0 {
		return fmt.Errorf("plans must not be empty")
	}
	if len(req.Plans) > maxBatchSize {
		return fmt.Errorf("at most %d plans per batch", maxBatchSize)
	}
	seen := make(map[string]struct{}, len(req.Plans))
	for i, p := range req.Plans {
		if err := validatePlanIn(p); err != nil {
			return fmt.Errorf("plans[%d]: %w", i, err)
		}
		if _, dup := seen[p.PersonID]; dup {
			return fmt.Errorf("plans[%d]: duplicate personId %q", i, p.PersonID)
		}
		seen[p.PersonID] = struct{}{}
	}
	return nil
}
