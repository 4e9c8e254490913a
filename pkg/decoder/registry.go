package decoder

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	ErrDecoderNil    = errors.New("decoder is nil")
	ErrDecoderExists = errors.New("decoder already registered")
	ErrNoShortName   = errors.New("decoder has no short name")
)

var (
	registryMu sync.Mutex
	registry   = map[string]Decoder{}
)

// Register adds a decoder to the registry under its short name.
func Register(d Decoder) error {
	if d == nil {
		return ErrDecoderNil
	}
	short := strings.TrimSpace(d.Description().ShortName)
	if short == "" {
		return ErrNoShortName
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[short]; ok {
		return ErrDecoderExists
	}
	registry[short] = d
	return nil
}

// Lookup returns the decoder registered under the given short name.
func Lookup(shortName string) (Decoder, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()

	d, ok := registry[shortName]
	return d, ok
}

// List returns the descriptions of all registered decoders, ordered by
// short name.
func List() []Description {
	registryMu.Lock()
	defer registryMu.Unlock()

	list := make([]Description, 0, len(registry))
	for _, d := range registry {
		list = append(list, d.Description())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ShortName < list[j].ShortName
	})
	return list
}
