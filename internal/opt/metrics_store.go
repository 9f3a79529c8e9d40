package opt

import "sync"

// In-process record of the latest run metrics per tenant and person. The
// API falls back to it when the run store has nothing for a person.
type key struct {
	Tenant   string
	PersonID string
}

var (
	mu    sync.Mutex
	store = map[key]Metrics{}
)

func RecordMetrics(tenant, personID string, m Metrics) {
	mu.Lock()
	store[key{Tenant: tenant, PersonID: personID}] = m
	mu.Unlock()
}

// GetMetrics returns the latest metrics for every person of tenant, or only
// for personID when it is set.
func GetMetrics(tenant, personID string) map[string]Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]Metrics{}
	for k, v := range store {
		if k.Tenant != tenant || (personID != "" && k.PersonID != personID) {
			continue
		}
		out[k.PersonID] = v
	}
	return out
}
