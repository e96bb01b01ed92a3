// Package metrics records per-task phase durations and renders the run
// summary printed after all tasks finish.
package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Phase names a lifecycle phase being timed.
type Phase string

const (
	PhaseClean Phase = "clean"
	PhaseFetch Phase = "fetch"
	PhaseBuild Phase = "build"
)

// sample is one timed phase of one task.
type sample struct {
	task     string
	phase    Phase
	duration time.Duration
}

var (
	mu      sync.Mutex
	samples []sample
)

// Record stores the duration of one phase of one task. Recording is
// non-fatal by design; callers never check an error and a failed task still
// reports the phases it finished.
func Record(taskName string, phase Phase, d time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	samples = append(samples, sample{task: taskName, phase: phase, duration: d})
}

// Instrument runs f and records how long it took, regardless of outcome.
func Instrument(taskName string, phase Phase, f func() error) error {
	start := time.Now()
	defer func() { Record(taskName, phase, time.Since(start)) }()
	return f()
}

// Reset clears all recorded samples.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	samples = nil
}

// taskTotal aggregates one task's recorded phases.
type taskTotal struct {
	name  string
	total time.Duration
}

// PrintSummary prints a box-draw table of per-task wall time, slowest first,
// plus the overall total.
func PrintSummary() {
	mu.Lock()
	byTask := make(map[string]time.Duration)
	var order []string
	var total time.Duration
	for _, s := range samples {
		if _, seen := byTask[s.task]; !seen {
			order = append(order, s.task)
		}
		byTask[s.task] += s.duration
		total += s.duration
	}
	mu.Unlock()

	if len(order) == 0 {
		return
	}

	totals := make([]taskTotal, 0, len(order))
	for _, name := range order {
		totals = append(totals, taskTotal{name: name, total: byTask[name]})
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].total > totals[j].total
	})

	const line = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	fmt.Printf("\n%s\n", line)
	fmt.Println("RUN SUMMARY")
	fmt.Printf("%s\n", line)
	for _, t := range totals {
		fmt.Printf("  %-30s %s\n", t.name+":", formatDuration(t.total))
	}
	fmt.Printf("  %-30s %s\n", "total:", formatDuration(total))
	fmt.Printf("%s\n\n", line)
}

// formatDuration converts d to a human-readable string.
// Examples: "0s", "45s", "3m 15s", "1h 2m 30s".
func formatDuration(d time.Duration) string {
	seconds := int(d.Round(time.Second) / time.Second)
	if seconds <= 0 {
		return "0s"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
