package logging

// ProgressSampler thins per-item progress logs to one line per percentage
// step of a known total. The first and last items always log.
type ProgressSampler struct {
	step     int
	lastStep int
}

// NewProgressSampler returns a sampler that logs once per stepPercent of the
// total (default 10).
func NewProgressSampler(stepPercent int) *ProgressSampler {
	if stepPercent <= 0 || stepPercent > 100 {
		stepPercent = 10
	}
	return &ProgressSampler{step: stepPercent, lastStep: -1}
}

// ShouldLog reports whether completing item done of total deserves a log line.
// A non-positive total is treated as a single-item run.
func (s *ProgressSampler) ShouldLog(done, total int) bool {
	if s == nil {
		return true
	}
	if total <= 0 || done >= total {
		s.lastStep = 100 / s.step
		return true
	}
	if done <= 1 && s.lastStep < 0 {
		s.lastStep = 0
		return true
	}
	current := done * 100 / total / s.step
	if current > s.lastStep {
		s.lastStep = current
		return true
	}
	return false
}

// Reset starts a new run.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.lastStep = -1
	}
}
