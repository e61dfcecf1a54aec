package analysis

// Summary describes one metric series.
type Summary struct {
	Peak     float64
	PeakTime float64
	Mean     float64
	Final    float64
}

func Summarize(times, values []float64) Summary {
	var s Summary
	if len(values) == 0 {
		return s
	}

	s.Peak = values[0]
	if len(times) > 0 {
		s.PeakTime = times[0]
	}
	for i, v := range values {
		s.Mean += v
		if v > s.Peak {
			s.Peak = v
			if i < len(times) {
				s.PeakTime = times[i]
			}
		}
	}
	s.Mean /= float64(len(values))
	s.Final = values[len(values)-1]
	return s
}

// SettleTime returns the earliest time from which every later sample is at
// or below threshold. ok is false when the last sample is above it.
func SettleTime(times, values []float64, threshold float64) (t float64, ok bool) {
	n := len(values)
	if len(times) < n {
		n = len(times)
	}
	if n == 0 || values[n-1] > threshold {
		return 0, false
	}

	i := n - 1
	for i > 0 && values[i-1] <= threshold {
		i--
	}
	return times[i], true
}
