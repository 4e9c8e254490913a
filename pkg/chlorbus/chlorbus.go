// Package chlorbus decodes the pulse length encoded UI bus between the main
// board and the display unit of a saltwater chlorination controller.
//
// The line idles high. Each bit is a low start pulse followed by a high
// value pulse, both at least 150µs wide; a value pulse of 600µs or more
// encodes a 1, a shorter one a 0. Bytes are eight bits, LSB first. A
// transmission ends with a trailing start pulse: its falling edge clocks
// out the last bit of the final byte, and its value phase then runs into
// the 900µs timeout, which returns the line to idle.
package chlorbus

import (
	"time"

	"github.com/danielschenk/smartscope-decoders/pkg/decoder"
)

const (
	// idle waits for the falling edge that starts the next bit.
	idle stateType = iota
	// measuringStartPulse measures the low start pulse of a bit.
	measuringStartPulse
	// measuringValuePulse measures the high value pulse of a bit.
	measuringValuePulse
	// disconnected waits for the line to recover to idle high.
	disconnected
)

// stateType represents the state of the decoding process.
type stateType int

const (
	// PulseThreshold is the minimum width of a genuine pulse. Shorter
	// pulses are glitches and are ignored.
	PulseThreshold = 150 * time.Microsecond
	// LongPulseThreshold is the minimum width of a value pulse encoding a
	// 1 bit.
	LongPulseThreshold = 600 * time.Microsecond
	// TimeoutThreshold is the maximum wait for the next edge while a bit is
	// being measured.
	TimeoutThreshold = 900 * time.Microsecond

	// bitsPerByte completes a byte on the bus.
	bitsPerByte = 8

	// errorMessage is the message attached to error items.
	errorMessage = "ERROR"
)

// machine is the decoding context of a single Decode call.
type machine struct {
	// samplePeriod is the uniform sample spacing of the trace.
	samplePeriod time.Duration
	// timeoutSamples is TimeoutThreshold in whole samples, rounded up.
	timeoutSamples int

	// state contains the current decoding state.
	state stateType
	// startIndex is the sample index of the edge the current measurement
	// started on.
	startIndex int
	// deadline is the sample index at which the current measurement times
	// out.
	deadline int

	// rxBit is the number of bits collected for the current byte.
	rxBit int
	// rxRegister is the buffer of the currently received byte, filled LSB
	// first.
	rxRegister byte
	// byteStart is the sample index of the first start pulse of the
	// current byte.
	byteStart int

	// out collects the decoded items in detection order.
	out []decoder.Output
}

// Decode runs a sampled trace of the bus line through the decoding state
// machine and returns the decoded bytes and error marks in detection order.
// Item indices are inclusive sample indices into samples. An incomplete
// measurement at the end of the trace is discarded. Decode keeps no state
// between calls and may be called concurrently.
func Decode(samples []bool, samplePeriod time.Duration) []decoder.Output {
	if len(samples) == 0 || samplePeriod <= 0 {
		return nil
	}

	m := machine{
		samplePeriod:   samplePeriod,
		timeoutSamples: int((TimeoutThreshold + samplePeriod - 1) / samplePeriod),
		state:          disconnected,
	}
	if samples[0] {
		m.state = idle
	}

	for i := 1; i < len(samples); i++ {
		rising := !samples[i-1] && samples[i]
		falling := samples[i-1] && !samples[i]

		switch m.state {
		case idle:
			if falling {
				m.state = measuringStartPulse
				m.startIndex = i
				m.deadline = i + m.timeoutSamples
				if m.rxBit == 0 {
					m.byteStart = i
				}
			}
		case measuringStartPulse:
			m.startPulse(i, rising)
		case measuringValuePulse:
			m.valuePulse(i, falling)
		case disconnected:
			if rising {
				m.state = idle
			}
		}
	}

	return m.out
}

// width is the time between the reference edge and sample i.
func (m *machine) width(i int) time.Duration {
	return time.Duration(i-m.startIndex) * m.samplePeriod
}

// startPulse ends the start pulse measurement on a rising edge. A pulse
// shorter than PulseThreshold is a glitch: the reference edge keeps its
// place and the measurement continues. Without a rising edge before the
// armed deadline the line is considered disconnected.
func (m *machine) startPulse(i int, rising bool) {
	if rising {
		if m.width(i) < PulseThreshold {
			// glitch
			return
		}

		m.state = measuringValuePulse
		m.startIndex = i
		m.deadline = i + m.timeoutSamples
		return
	}

	if i >= m.deadline {
		m.out = append(m.out, decoder.NewError(m.startIndex, i, errorMessage))
		m.state = disconnected
	}
}

// valuePulse ends the value pulse measurement on a falling edge or when the
// armed deadline is reached. A genuine pulse of at least LongPulseThreshold
// encodes a 1, a shorter one a 0; the eighth bit completes a byte. A falling
// edge starts the next bit immediately. The timeout returns the line to
// idle: with exactly one bit of a next byte collected this is the regular
// end of a transmission, anything else is a framing error.
func (m *machine) valuePulse(i int, falling bool) {
	timedOut := i >= m.deadline
	if !falling && !timedOut {
		return
	}

	width := m.width(i)
	if width < PulseThreshold {
		// glitch
		return
	}

	if width >= LongPulseThreshold {
		m.rxRegister |= 1 << m.rxBit
	}
	m.rxBit++

	if m.rxBit == bitsPerByte {
		m.out = append(m.out, decoder.NewByte(m.byteStart, i, m.rxRegister))
		m.rxBit = 0
		m.rxRegister = 0
	}

	if falling {
		m.state = measuringStartPulse
		m.startIndex = i
		m.deadline = i + m.timeoutSamples
		if m.rxBit == 0 {
			m.byteStart = i
		}
		return
	}

	m.state = idle
	if m.rxBit != 1 {
		m.out = append(m.out, decoder.NewError(m.byteStart, i, errorMessage))
		m.rxBit = 0
		m.rxRegister = 0
	}
}

// WaveformInput is the name of the single waveform the decoder consumes.
const WaveformInput = "Input"

// Decoder is the host facing wrapper around Decode. It implements
// decoder.Decoder.
type Decoder struct{}

// New returns the bus decoder.
func New() *Decoder {
	return &Decoder{}
}

// Description returns the static metadata of the decoder.
func (d *Decoder) Description() decoder.Description {
	return decoder.Description{
		Name:      "Chlorinator UI bus",
		ShortName: "chlorbus",
		Author:    "Daniel Schenk",
		Version:   "1.1",
		Summary:   "pulse length decoder for the UI bus of a saltwater chlorination controller",
		Inputs:    map[string]decoder.WaveformType{WaveformInput: decoder.WaveformDigital},
	}
}

// Decode pulls the input waveform out of in and runs it through the bus
// state machine. The parameter bag is accepted but not used.
func (d *Decoder) Decode(in decoder.Input) ([]decoder.Output, error) {
	samples, err := in.Waveform(WaveformInput)
	if err != nil {
		return nil, err
	}
	return Decode(samples, in.SamplePeriod), nil
}
