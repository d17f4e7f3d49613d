package telemetry

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StageCollector records stage durations in the order the stages started.
type StageCollector struct {
	mu     sync.Mutex
	stages []*stage
}

type stage struct {
	name  string
	start time.Time
	end   time.Time
}

// NewStageCollector creates an empty collector.
func NewStageCollector() *StageCollector {
	return &StageCollector{}
}

// Start begins timing a stage.
func (c *StageCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &stage{name: name, start: time.Now()}
	c.stages = append(c.stages, s)

	return &stageTimer{collector: c, stage: s}
}

// Report writes one line per completed stage plus a total.
// Example output:
//
//	load          12ms
//	normalize      4ms
//	validate       1ms
//	dedup          0ms
//	aggregate      2ms
//	total         19ms
func (c *StageCollector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	width := len("total")
	for _, s := range c.stages {
		if len(s.name) > width {
			width = len(s.name)
		}
	}

	var total time.Duration
	for _, s := range c.stages {
		if s.end.IsZero() {
			continue
		}
		d := s.end.Sub(s.start)
		total += d
		_, _ = fmt.Fprintf(w, "%-*s %s\n", width, s.name, formatDuration(d))
	}
	_, _ = fmt.Fprintf(w, "%-*s %s\n", width, "total", formatDuration(total))
}

type stageTimer struct {
	collector *StageCollector
	stage     *stage
}

func (t *stageTimer) End() {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()
	t.stage.end = time.Now()
}

// formatDuration shows milliseconds below a second and seconds above.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
