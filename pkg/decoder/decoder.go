// Package decoder defines the model shared by the protocol decoders in this
// repository: the waveform input a decoder consumes, the items a decode run
// produces and the static metadata a decoder publishes about itself.
//
// Decoders are pure with respect to the signal: malformed input produces
// error items in the output stream, never a Go error. The error return of
// Decode is reserved for host mistakes such as a missing waveform.
package decoder

import (
	"errors"
	"fmt"
	"time"
)

var ErrMissingWaveform = errors.New("required waveform missing")

// Kind classifies a decoded output item.
type Kind string

const (
	KindByte  Kind = "byte"
	KindError Kind = "error"
)

// Severity is a presentation tag attached to output items. It carries no
// decoding semantics.
type Severity string

const (
	SeverityInfo  Severity = "informational"
	SeverityError Severity = "error"
)

// WaveformType describes a waveform a decoder declares as input.
type WaveformType string

const WaveformDigital WaveformType = "digital"

// Output is one decoded item. Start and End are inclusive sample indices
// into the waveform the item was decoded from. Value and BitWidth are
// meaningful for KindByte, Message for KindError.
type Output struct {
	Start    int
	End      int
	Kind     Kind
	Value    byte
	BitWidth int
	Message  string
	Severity Severity
}

// NewByte returns a byte item covering samples start..end.
func NewByte(start, end int, value byte) Output {
	return Output{
		Start:    start,
		End:      end,
		Kind:     KindByte,
		Value:    value,
		BitWidth: 8,
		Severity: SeverityInfo,
	}
}

// NewError returns an error item covering samples start..end.
func NewError(start, end int, message string) Output {
	return Output{
		Start:    start,
		End:      end,
		Kind:     KindError,
		Message:  message,
		Severity: SeverityError,
	}
}

// Input is one complete capture handed to a decoder: a named set of sampled
// waveforms, the uniform sample period and an open parameter bag.
type Input struct {
	Waveforms    map[string][]bool
	SamplePeriod time.Duration
	Parameters   map[string]interface{}
}

// Waveform returns the named waveform or ErrMissingWaveform.
func (in Input) Waveform(name string) ([]bool, error) {
	samples, ok := in.Waveforms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingWaveform, name)
	}
	return samples, nil
}

// Description is the static metadata record of a decoder.
type Description struct {
	Name      string
	ShortName string
	Author    string
	Version   string
	Summary   string
	Inputs    map[string]WaveformType
}

// Decoder is the interface implemented by a protocol decoder.
type Decoder interface {
	// Description returns the static metadata of the decoder.
	Description() Description
	// Decode runs the decoder over in and returns the decoded items in
	// detection order.
	Decode(in Input) ([]Output, error)
}
