// Package raspberry captures the bus line from a Raspberry Pi GPIO pin.
//
// Two capture strategies are available. Sampler polls the memory mapped pin
// level on a fixed period schedule. Watcher collects kernel timestamped
// edge events and resamples them into a fixed period trace; it is the
// better pick when the sample period gets close to the pulse widths on the
// bus.
package raspberry

import (
	"errors"
	"time"

	"github.com/danielschenk/smartscope-decoders/pkg/trace"
)

const (
	// ModeSample polls the line level at the sample period.
	ModeSample = "sample"
	// ModeEvents records kernel edge events and resamples them.
	ModeEvents = "events"

	// pull modes of the input line
	PullUp   = "pullup"
	PullDown = "pulldown"
	PullNone = "none"
)

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrNotSupported = errors.New("gpio capture requires linux")
)

// Config selects the input line and the capture strategy.
type Config struct {
	// Gpio is the BCM number of the input line.
	Gpio int
	// Pull is the bias of the input line (pullup, pulldown or none).
	Pull string
	// Mode is the capture strategy (sample or events).
	Mode string
}

// Source records the line as fixed period captures.
type Source interface {
	// Record captures n samples spaced by samplePeriod.
	Record(samplePeriod time.Duration, n int) (trace.Trace, error)
	// Close releases the line.
	Close() error
}
