// Package integrations defines how plans are imported from external
// population sources.
package integrations

import (
	"context"

	"planscore/internal/model"
)

// PlanSource yields the plans of a population. Plans come back in wire form;
// callers convert and validate them.
type PlanSource interface {
	Name() string
	FetchPlans(ctx context.Context) ([]model.PlanIn, error)
}
