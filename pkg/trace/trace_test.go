package trace

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestTrace_Duration(t *testing.T) {
	tr := Trace{Samples: make([]bool, 250), SamplePeriod: 10 * time.Microsecond}
	if got, want := tr.Duration(), 2500*time.Microsecond; got != want {
		t.Errorf("duration: got %v, want %v", got, want)
	}
}

func TestFromEvents(t *testing.T) {
	events := []Event{
		{Timestamp: 100 * time.Microsecond, Type: FallingEdge},
		{Timestamp: 250 * time.Microsecond, Type: RisingEdge},
	}

	tr, err := FromEvents(true, events, 50*time.Microsecond, 500*time.Microsecond)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	want := []bool{true, true, false, false, false, true, true, true, true, true}
	if !reflect.DeepEqual(tr.Samples, want) {
		t.Errorf("samples:\n got  %v\n want %v", tr.Samples, want)
	}
	if tr.SamplePeriod != 50*time.Microsecond {
		t.Errorf("sample period: got %v", tr.SamplePeriod)
	}
}

func TestFromEvents_NoEvents(t *testing.T) {
	tr, err := FromEvents(false, nil, 10*time.Microsecond, 100*time.Microsecond)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if len(tr.Samples) != 10 {
		t.Fatalf("got %d samples, want 10", len(tr.Samples))
	}
	for i, s := range tr.Samples {
		if s {
			t.Errorf("sample %d: line should stay at the initial level", i)
		}
	}
}

func TestFromEvents_NoPeriod(t *testing.T) {
	if _, err := FromEvents(true, nil, 0, 100*time.Millisecond); !errors.Is(err, ErrNoPeriod) {
		t.Errorf("zero period: got %v, want ErrNoPeriod", err)
	}

	tr, err := FromEvents(true, nil, 10*time.Microsecond, -time.Millisecond)
	if err != nil {
		t.Fatalf("negative duration: %v", err)
	}
	if len(tr.Samples) != 0 {
		t.Errorf("negative duration: got %d samples, want none", len(tr.Samples))
	}
}

func TestRuns(t *testing.T) {
	runs := Runs([]bool{true, true, false, true, true, true})

	want := []Run{{Level: true, Length: 2}, {Level: false, Length: 1}, {Level: true, Length: 3}}
	if !reflect.DeepEqual(runs, want) {
		t.Errorf("runs: got %+v, want %+v", runs, want)
	}

	if runs := Runs(nil); len(runs) != 0 {
		t.Errorf("runs of empty input: got %+v", runs)
	}
}

func TestReadCSV(t *testing.T) {
	in := strings.Join([]string{
		"time,value",
		"0.000000,1",
		"0.000010,1",
		"0.000020,0",
		"0.000030,true",
		"0.000040,3.3",
		"0.000050,0.2",
	}, "\n")

	tr, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if tr.SamplePeriod != 10*time.Microsecond {
		t.Errorf("sample period: got %v, want 10µs", tr.SamplePeriod)
	}
	want := []bool{true, true, false, true, true, false}
	if !reflect.DeepEqual(tr.Samples, want) {
		t.Errorf("samples:\n got  %v\n want %v", tr.Samples, want)
	}
}

func TestReadCSV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"single row", "0.0,1\n"},
		{"one column", "0.0\n0.1\n"},
		{"bad level", "0.0,x\n0.1,1\n"},
		{"time going backwards", "0.2,1\n0.1,0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.in)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRawFormat(t *testing.T) {
	tr := Trace{
		Samples:      []bool{true, false, true, true, false},
		SamplePeriod: 20 * time.Microsecond,
	}

	var buf bytes.Buffer
	if err := WriteRaw(&buf, tr); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if want := []byte{1, 0, 1, 1, 0}; !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("raw encoding: got %v, want %v", buf.Bytes(), want)
	}

	back, err := ReadRaw(&buf, tr.SamplePeriod)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !reflect.DeepEqual(back.Samples, tr.Samples) {
		t.Errorf("samples: got %v, want %v", back.Samples, tr.Samples)
	}

	if _, err := ReadRaw(bytes.NewReader([]byte{1}), 0); !errors.Is(err, ErrNoPeriod) {
		t.Errorf("missing period: got %v, want ErrNoPeriod", err)
	}
	if _, err := ReadRaw(bytes.NewReader(nil), time.Microsecond); !errors.Is(err, ErrNoSamples) {
		t.Errorf("empty capture: got %v, want ErrNoSamples", err)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "capture.csv")
	if err := os.WriteFile(csvPath, []byte("0.0,1\n0.00001,0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	rawPath := filepath.Join(dir, "capture.bin")
	if err := os.WriteFile(rawPath, []byte{1, 1, 0}, 0644); err != nil {
		t.Fatal(err)
	}

	tr, err := ReadFile(csvPath, 0)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if tr.SamplePeriod != 10*time.Microsecond || len(tr.Samples) != 2 {
		t.Errorf("csv capture: got %d samples at %v", len(tr.Samples), tr.SamplePeriod)
	}

	tr, err = ReadFile(rawPath, 50*time.Microsecond)
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if tr.SamplePeriod != 50*time.Microsecond || len(tr.Samples) != 3 {
		t.Errorf("raw capture: got %d samples at %v", len(tr.Samples), tr.SamplePeriod)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.bin"), time.Microsecond); err == nil {
		t.Error("expected an error for a missing file")
	}
}
