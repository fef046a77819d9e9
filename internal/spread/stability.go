package spread

// StabilityFilter smooths noisy spread samples over a fixed-length rolling
// window before they can trigger entries. It gates entries only; exit
// evaluation for open positions is never filtered.
type StabilityFilter struct {
	window    int
	tolerance float64 // allowed deviation as a fraction of the window mean
	samples   []float64
}

// NewStabilityFilter creates a filter requiring window consecutive samples
// whose max deviation from the window mean stays under mean*tolerance.
func NewStabilityFilter(window int, tolerance float64) *StabilityFilter {
	if window < 1 {
		window = 1
	}
	return &StabilityFilter{
		window:    window,
		tolerance: tolerance,
		samples:   make([]float64, 0, window),
	}
}

// Observe records a spread sample, evicting the oldest when over capacity,
// and reports whether the window is both full and stable.
func (f *StabilityFilter) Observe(sample float64) bool {
	f.samples = append(f.samples, sample)
	if len(f.samples) > f.window {
		f.samples = f.samples[1:]
	}
	return f.stable()
}

// stable reports whether the current window is full and its max deviation
// from the mean stays within tolerance.
func (f *StabilityFilter) stable() bool {
	if len(f.samples) < f.window {
		return false
	}

	var sum float64
	for _, s := range f.samples {
		sum += s
	}
	mean := sum / float64(len(f.samples))

	var maxDev float64
	for _, s := range f.samples {
		dev := s - mean
		if dev < 0 {
			dev = -dev
		}
		if dev > maxDev {
			maxDev = dev
		}
	}
	return maxDev < mean*f.tolerance
}

// Reset empties the sample window; the filter must refill before reporting
// stable again.
func (f *StabilityFilter) Reset() {
	f.samples = f.samples[:0]
}
