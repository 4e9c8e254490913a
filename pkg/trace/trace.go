// Package trace holds sampled logic captures: a boolean level per sample at
// a uniform sample period, the edge event form delivered by event driven
// capture sources, and readers and writers for capture files.
package trace

import "time"

// Trace is one finite capture of a logic line.
type Trace struct {
	// Samples is the line level per sample, true for high.
	Samples []bool
	// SamplePeriod is the uniform time between two samples.
	SamplePeriod time.Duration
}

// Duration is the time covered by the capture.
func (t Trace) Duration() time.Duration {
	return time.Duration(len(t.Samples)) * t.SamplePeriod
}

// EventType indicates the type of change to the line state.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates a low to high event.
	RisingEdge
	// FallingEdge indicates a high to low event.
	FallingEdge
)

// Event is one observed edge on the line.
type Event struct {
	// Timestamp is the time the event was detected, relative to the start
	// of the capture.
	Timestamp time.Duration
	// The type of state change this event represents.
	Type EventType
}

// FromEvents renders a time ordered edge list into a fixed period capture
// of the given duration. The level before the first event is initial; the
// level after an event follows from the event type, so a missed edge
// corrupts at most one run. The sample period must be positive.
func FromEvents(initial bool, events []Event, samplePeriod, duration time.Duration) (Trace, error) {
	if samplePeriod <= 0 {
		return Trace{}, ErrNoPeriod
	}

	n := int(duration / samplePeriod)
	if n < 0 {
		n = 0
	}
	samples := make([]bool, n)

	level := initial
	next := 0
	for i := 0; i < n; i++ {
		now := time.Duration(i) * samplePeriod
		for next < len(events) && events[next].Timestamp <= now {
			level = events[next].Type == RisingEdge
			next++
		}
		samples[i] = level
	}

	return Trace{Samples: samples, SamplePeriod: samplePeriod}, nil
}

// Run is a maximal sequence of samples at the same level.
type Run struct {
	Level  bool
	Length int
}

// Runs splits a sample sequence into its level runs.
func Runs(samples []bool) []Run {
	var runs []Run
	for _, s := range samples {
		if len(runs) == 0 || runs[len(runs)-1].Level != s {
			runs = append(runs, Run{Level: s})
		}
		runs[len(runs)-1].Length++
	}
	return runs
}
