package app

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/danielschenk/smartscope-decoders/pkg/decoder"
	"github.com/danielschenk/smartscope-decoders/pkg/trace"
)

const statsPeriod = 10 * time.Microsecond

func levels(level bool, n int) []bool {
	s := make([]bool, n)
	for i := range s {
		s[i] = level
	}
	return s
}

func concat(parts ...[]bool) []bool {
	var s []bool
	for _, p := range parts {
		s = append(s, p...)
	}
	return s
}

func TestSummarize(t *testing.T) {
	tr := trace.Trace{
		Samples: concat(
			levels(true, 20),
			levels(false, 30),
			levels(true, 20),
			levels(false, 50),
			levels(true, 100),
		),
		SamplePeriod: statsPeriod,
	}
	items := []decoder.Output{
		decoder.NewByte(50, 490, 0xA5),
		decoder.NewError(500, 600, "ERROR"),
		decoder.NewByte(700, 1100, 0x3C),
	}

	r := Summarize("gpio17", tr, items)

	if r.Source != "gpio17" {
		t.Errorf("source: got %q", r.Source)
	}
	if r.SampleCount != 220 {
		t.Errorf("sample count: got %d, want 220", r.SampleCount)
	}
	if r.SamplePeriod != statsPeriod {
		t.Errorf("sample period: got %v", r.SamplePeriod)
	}
	if r.ByteCount != 2 || r.ErrorCount != 1 {
		t.Errorf("counts: got %d bytes, %d errors, want 2 and 1", r.ByteCount, r.ErrorCount)
	}
	if r.Bytes != "a53c" {
		t.Errorf("byte stream: got %q, want %q", r.Bytes, "a53c")
	}
	if !reflect.DeepEqual(r.Items, items) {
		t.Error("items must be passed through unchanged")
	}
	if r.TimeStamp.IsZero() {
		t.Error("timestamp not set")
	}

	// the 1000µs run is an idle stretch and must not count as pulse
	high := r.Timing.High
	if high.Count != 2 || high.MeanUs != 200 || high.MinUs != 200 || high.MaxUs != 200 || high.StdDevUs != 0 {
		t.Errorf("unexpected high timing: %+v", high)
	}

	low := r.Timing.Low
	if low.Count != 2 || low.MeanUs != 400 || low.MinUs != 300 || low.MaxUs != 500 {
		t.Errorf("unexpected low timing: %+v", low)
	}
	if want := math.Sqrt(20000); math.Abs(low.StdDevUs-want) > 1e-9 {
		t.Errorf("low stddev: got %v, want %v", low.StdDevUs, want)
	}
}

func TestSummarize_Empty(t *testing.T) {
	r := Summarize("capture.csv", trace.Trace{SamplePeriod: statsPeriod}, nil)

	if r.ByteCount != 0 || r.ErrorCount != 0 || r.Bytes != "" {
		t.Errorf("unexpected summary of an empty trace: %+v", r)
	}
	if r.Timing.High.Count != 0 || r.Timing.Low.Count != 0 {
		t.Errorf("unexpected timing of an empty trace: %+v", r.Timing)
	}
}

func TestTimingReport_SinglePulse(t *testing.T) {
	tr := trace.Trace{
		Samples:      concat(levels(true, 20), levels(false, 100)),
		SamplePeriod: statsPeriod,
	}

	rep := newTimingReport(tr)

	if rep.High.Count != 1 || rep.High.MeanUs != 200 {
		t.Errorf("unexpected high timing: %+v", rep.High)
	}
	if rep.High.StdDevUs != 0 {
		t.Errorf("a single pulse has no spread: got %v", rep.High.StdDevUs)
	}
	if rep.Low.Count != 0 {
		t.Errorf("a run at the timeout threshold is no pulse: %+v", rep.Low)
	}
}
