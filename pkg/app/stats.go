package app

import (
	"encoding/hex"
	"time"

	"github.com/danielschenk/smartscope-decoders/pkg/chlorbus"
	"github.com/danielschenk/smartscope-decoders/pkg/decoder"
	"github.com/danielschenk/smartscope-decoders/pkg/trace"

	"gonum.org/v1/gonum/stat"
)

// Result is the summary of one decoded trace.
type Result struct {
	// TimeStamp is when the trace was decoded
	TimeStamp time.Time
	// Source names where the trace came from, e.g. gpio17 or a file name
	Source string
	// SampleCount is the length of the trace
	SampleCount int
	// SamplePeriod is the time between two samples
	SamplePeriod time.Duration
	// Bytes is the decoded byte stream as hex string
	Bytes string
	// ByteCount is the number of decoded bytes
	ByteCount int
	// ErrorCount is the number of framing errors
	ErrorCount int
	// Items are the decoded items in trace order
	Items []decoder.Output
	// Timing describes the pulse widths seen on the line
	Timing TimingReport
}

// TimingReport summarizes the pulse widths of both line levels. Runs at or
// above the timeout threshold are idle or disconnected stretches and are
// left out.
type TimingReport struct {
	High LevelTiming
	Low  LevelTiming
}

// LevelTiming describes the pulse widths observed at one line level.
type LevelTiming struct {
	Count    int
	MeanUs   float64
	MinUs    float64
	MaxUs    float64
	StdDevUs float64
}

// Summarize condenses one decode cycle into the Result served over web,
// mqtt and influxdb.
func Summarize(source string, t trace.Trace, items []decoder.Output) Result {
	r := Result{
		TimeStamp:    time.Now(),
		Source:       source,
		SampleCount:  len(t.Samples),
		SamplePeriod: t.SamplePeriod,
		Items:        items,
		Timing:       newTimingReport(t),
	}

	stream := make([]byte, 0, len(items))
	for _, item := range items {
		switch item.Kind {
		case decoder.KindByte:
			stream = append(stream, item.Value)
			r.ByteCount++
		case decoder.KindError:
			r.ErrorCount++
		}
	}
	r.Bytes = hex.EncodeToString(stream)

	return r
}

func newTimingReport(t trace.Trace) TimingReport {
	var high, low []float64

	for _, run := range trace.Runs(t.Samples) {
		width := time.Duration(run.Length) * t.SamplePeriod
		if width >= chlorbus.TimeoutThreshold {
			continue
		}

		us := float64(width) / float64(time.Microsecond)
		if run.Level {
			high = append(high, us)
		} else {
			low = append(low, us)
		}
	}

	return TimingReport{
		High: newLevelTiming(high),
		Low:  newLevelTiming(low),
	}
}

func newLevelTiming(widths []float64) LevelTiming {
	lt := LevelTiming{Count: len(widths)}
	if len(widths) == 0 {
		return lt
	}

	lt.MinUs = widths[0]
	lt.MaxUs = widths[0]
	for _, w := range widths {
		if w < lt.MinUs {
			lt.MinUs = w
		}
		if w > lt.MaxUs {
			lt.MaxUs = w
		}
	}

	lt.MeanUs = stat.Mean(widths, nil)
	// a single pulse has no spread, and NaN doesn't survive json marshaling
	if len(widths) > 1 {
		lt.StdDevUs = stat.StdDev(widths, nil)
	}

	return lt
}
