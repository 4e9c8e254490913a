//go:build linux

package raspberry

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/gpio"
	"github.com/warthog618/gpiod"

	"github.com/danielschenk/smartscope-decoders/pkg/trace"
)

// Open claims the configured line with the selected capture strategy.
func Open(cfg Config) (Source, error) {
	switch cfg.Mode {
	case ModeSample:
		return openSampler(cfg)
	case ModeEvents:
		return openWatcher(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown capture mode %q", ErrInvalidParam, cfg.Mode)
	}
}

// Sampler polls the memory mapped pin level.
type Sampler struct {
	pin *gpio.Pin
}

// openSampler maps the GPIO memory range from /dev/gpiomem and sets the pin
// up as input. The pin number is the BCM GPIO number.
func openSampler(cfg Config) (*Sampler, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}

	pin := gpio.NewPin(cfg.Gpio)
	pin.Input()

	switch cfg.Pull {
	case PullUp:
		pin.PullUp()
	case PullDown:
		pin.PullDown()
	case PullNone:
	default:
		gpio.Close()
		return nil, fmt.Errorf("%w: unknown pull mode %q", ErrInvalidParam, cfg.Pull)
	}

	return &Sampler{pin: pin}, nil
}

// Record reads the line level every samplePeriod until n samples are taken.
// The schedule is held against the capture start, so a late read does not
// shift the following ones. Sleeping is only trusted well above the timer
// granularity, the last stretch before each read is spent spinning.
func (s *Sampler) Record(samplePeriod time.Duration, n int) (trace.Trace, error) {
	if samplePeriod <= 0 || n <= 0 {
		return trace.Trace{}, ErrInvalidParam
	}

	samples := make([]bool, n)
	start := time.Now()
	for i := 0; i < n; i++ {
		next := time.Duration(i) * samplePeriod
		for {
			remaining := next - time.Since(start)
			if remaining <= 0 {
				break
			}
			if remaining > 500*time.Microsecond {
				time.Sleep(remaining - 200*time.Microsecond)
			}
		}
		samples[i] = bool(s.pin.Read())
	}

	return trace.Trace{Samples: samples, SamplePeriod: samplePeriod}, nil
}

// Close unmaps the GPIO memory.
func (s *Sampler) Close() error {
	return gpio.Close()
}

// Watcher records kernel timestamped edge events from the GPIO character
// device.
type Watcher struct {
	chip *gpiod.Chip
	line *gpiod.Line

	mu        sync.Mutex
	recording bool
	start     time.Time
	base      time.Duration
	events    []trace.Event
}

// openWatcher requests the line with both edge events. The pin number is
// the BCM GPIO number.
func openWatcher(cfg Config) (*Watcher, error) {
	chip, err := gpiod.NewChip("gpiochip0")
	if err != nil {
		return nil, err
	}

	w := &Watcher{chip: chip}

	switch cfg.Pull {
	case PullUp:
		w.line, err = chip.RequestLine(cfg.Gpio, gpiod.WithEventHandler(w.handle),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullUp)
	case PullDown:
		w.line, err = chip.RequestLine(cfg.Gpio, gpiod.WithEventHandler(w.handle),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullDown)
	case PullNone:
		w.line, err = chip.RequestLine(cfg.Gpio, gpiod.WithEventHandler(w.handle),
			gpiod.WithBothEdges, gpiod.AsInput)
	default:
		err = fmt.Errorf("%w: unknown pull mode %q", ErrInvalidParam, cfg.Pull)
	}
	if err != nil {
		chip.Close()
		return nil, err
	}

	return w, nil
}

// Record collects edge events for n times samplePeriod and renders them
// into a fixed period capture. The level at the start of the window is read
// directly from the line.
func (w *Watcher) Record(samplePeriod time.Duration, n int) (trace.Trace, error) {
	if samplePeriod <= 0 || n <= 0 {
		return trace.Trace{}, ErrInvalidParam
	}
	duration := time.Duration(n) * samplePeriod

	v, err := w.line.Value()
	if err != nil {
		return trace.Trace{}, err
	}
	initial := v != 0

	w.mu.Lock()
	w.events = w.events[:0]
	w.recording = true
	w.start = time.Now()
	w.base = -1
	w.mu.Unlock()

	time.Sleep(duration)

	w.mu.Lock()
	w.recording = false
	events := make([]trace.Event, len(w.events))
	copy(events, w.events)
	w.mu.Unlock()

	return trace.FromEvents(initial, events, samplePeriod, duration)
}

// handle converts a kernel event into a capture relative edge event. The
// kernel clock is aligned to the capture window on the first event of each
// recording; later events keep their exact kernel spacing.
func (w *Watcher) handle(evt gpiod.LineEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.recording {
		return
	}
	if w.base < 0 {
		w.base = evt.Timestamp - time.Since(w.start)
	}

	e := trace.Event{Timestamp: evt.Timestamp - w.base}
	switch evt.Type {
	case gpiod.LineEventRisingEdge:
		e.Type = trace.RisingEdge
	case gpiod.LineEventFallingEdge:
		e.Type = trace.FallingEdge
	default:
		return
	}
	w.events = append(w.events, e)
}

// Close releases the line and the chip.
//
// Close waits for a running event handler to return, so it must not be
// called from the handler itself.
func (w *Watcher) Close() error {
	if err := w.line.Close(); err != nil {
		w.chip.Close()
		return err
	}
	return w.chip.Close()
}
