package eligibility

import (
	"sync"
	"time"
)

type (
	FloodConfig struct {
		Window      time.Duration
		MaxMessages int
		MuteBase    time.Duration
	}

	// Verdict is returned for a message that crossed the flood threshold.
	Verdict struct {
		Mute     bool
		Duration time.Duration
		Level    int
	}

	FloodDetector struct {
		cfg    FloodConfig
		clock  Clock
		mu     sync.Mutex
		recent map[string][]time.Time
		levels map[string]int
	}
)

func NewFloodDetector(cfg FloodConfig, clock Clock) *FloodDetector {
	if clock == nil {
		clock = SystemClock
	}
	return &FloodDetector{
		cfg:    cfg,
		clock:  clock,
		recent: map[string][]time.Time{},
		levels: map[string]int{},
	}
}

// Observe records one message of member and reports whether it must be muted.
func (f *FloodDetector) Observe(member string) Verdict {
	now := f.clock.Now()
	f.mu.Lock()
	defer f.mu.Unlock()

	window := f.recent[member][:0]
	for _, at := range f.recent[member] {
		if now.Sub(at) < f.cfg.Window {
			window = append(window, at)
		}
	}
	window = append(window, now)
	if len(window) <= f.cfg.MaxMessages {
		f.recent[member] = window
		return Verdict{}
	}
	delete(f.recent, member)
	level := f.levels[member]
	return Verdict{
		Mute:     true,
		Duration: f.cfg.MuteBase * time.Duration(level+1),
		Level:    level,
	}
}

func (f *FloodDetector) Level(member string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[member]
}

// Escalate lengthens the next mute of member.
func (f *FloodDetector) Escalate(member string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels[member]++
}

// Reset forgets escalation, used when a moderator lifted the mute early.
func (f *FloodDetector) Reset(member string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.levels, member)
}
