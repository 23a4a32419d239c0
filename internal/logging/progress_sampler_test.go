package logging

import "testing"

func TestProgressSamplerDefaultsStep(t *testing.T) {
	for _, step := range []int{0, -5, 150} {
		if got := NewProgressSampler(step).step; got != 10 {
			t.Fatalf("step %d: got %d, want 10", step, got)
		}
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(3, 40) {
		t.Fatal("nil sampler should log")
	}
}

func TestProgressSamplerLogsOncePerStep(t *testing.T) {
	s := NewProgressSampler(25)
	var logged []int
	for done := 1; done <= 20; done++ {
		if s.ShouldLog(done, 20) {
			logged = append(logged, done)
		}
	}
	want := []int{1, 5, 10, 15, 20}
	if len(logged) != len(want) {
		t.Fatalf("logged %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged %v, want %v", logged, want)
		}
	}
}

func TestProgressSamplerSmallTotalsLogEveryItem(t *testing.T) {
	s := NewProgressSampler(10)
	for done := 1; done <= 3; done++ {
		if !s.ShouldLog(done, 3) {
			t.Fatalf("item %d of 3 should log", done)
		}
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(1, 0) {
		t.Fatal("zero total should log")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(50)
	s.ShouldLog(1, 10)
	if s.ShouldLog(2, 10) {
		t.Fatal("second item should be sampled away")
	}
	s.Reset()
	if !s.ShouldLog(1, 10) {
		t.Fatal("first item after reset should log")
	}
}
