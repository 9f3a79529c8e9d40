package opt

// Stopper detects a plateau in the sequence of accepted best scores. It keeps
// the last horizon scores and asks the search to stop once the newest is less
// than sensitivity above the oldest. One Stopper serves one search run.
type Stopper struct {
	horizon     int
	sensitivity float64
	window      []float64
}

func NewStopper(horizon int, sensitivity float64) *Stopper {
	if horizon < 1 {
		horizon = 1
	}
	return &Stopper{horizon: horizon, sensitivity: sensitivity, window: make([]float64, 0, horizon+1)}
}

// Observe records an accepted score and reports whether the search should
// continue. The first horizon observations always continue.
func (s *Stopper) Observe(score float64) bool {
	s.window = append(s.window, score)
	if len(s.window) <= s.horizon {
		return true
	}
	s.window = s.window[1:]
	return s.window[len(s.window)-1]-s.window[0] >= s.sensitivity
}

// Window returns a copy of the scores currently held.
func (s *Stopper) Window() []float64 {
	return append([]float64(nil), s.window...)
}
