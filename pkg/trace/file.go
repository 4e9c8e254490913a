package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoSamples     = errors.New("capture holds no samples")
	ErrNoPeriod      = errors.New("sample period required")
	ErrBadTimestamps = errors.New("capture timestamps not increasing")
)

// ReadFile loads a capture file. CSV exports carry their own timing; raw
// captures need the sample period from the caller.
func ReadFile(path string, samplePeriod time.Duration) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return Trace{}, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(f)
	}
	return ReadRaw(f, samplePeriod)
}

// ReadCSV reads a two column time,value capture export. The first column is
// the sample time in seconds, the second the line level (0/1, true/false or
// a voltage, where at least 0.5 counts as high). A non numeric first line
// is taken as the header. The sample period is derived from the spacing of
// the first two rows.
func ReadCSV(r io.Reader) (Trace, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return Trace{}, fmt.Errorf("reading csv capture: %w", err)
	}

	var samples []bool
	var t0, t1 float64
	for i, row := range rows {
		if len(row) < 2 {
			return Trace{}, fmt.Errorf("csv row %d: expected time and value columns", i+1)
		}

		ts, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			if i == 0 {
				// header line
				continue
			}
			return Trace{}, fmt.Errorf("csv row %d: %w", i+1, err)
		}

		level, err := parseLevel(row[1])
		if err != nil {
			return Trace{}, fmt.Errorf("csv row %d: %w", i+1, err)
		}

		switch len(samples) {
		case 0:
			t0 = ts
		case 1:
			t1 = ts
		}
		samples = append(samples, level)
	}

	if len(samples) < 2 {
		return Trace{}, fmt.Errorf("%w: need at least two rows to derive the sample period", ErrNoSamples)
	}

	period := time.Duration(math.Round((t1 - t0) * float64(time.Second)))
	if period <= 0 {
		return Trace{}, ErrBadTimestamps
	}

	return Trace{Samples: samples, SamplePeriod: period}, nil
}

func parseLevel(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, fmt.Errorf("invalid level %q", s)
	}
	return v >= 0.5, nil
}

// ReadRaw reads a capture stored as one byte per sample, any nonzero byte
// counting as high.
func ReadRaw(r io.Reader, samplePeriod time.Duration) (Trace, error) {
	if samplePeriod <= 0 {
		return Trace{}, ErrNoPeriod
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Trace{}, fmt.Errorf("reading raw capture: %w", err)
	}
	if len(data) == 0 {
		return Trace{}, ErrNoSamples
	}

	samples := make([]bool, len(data))
	for i, b := range data {
		samples[i] = b != 0
	}
	return Trace{Samples: samples, SamplePeriod: samplePeriod}, nil
}

// WriteRaw stores a capture in raw form, one byte per sample.
func WriteRaw(w io.Writer, t Trace) error {
	buf := make([]byte, len(t.Samples))
	for i, s := range t.Samples {
		if s {
			buf[i] = 1
		}
	}
	_, err := w.Write(buf)
	return err
}
