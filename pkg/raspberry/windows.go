//go:build !linux

package raspberry

// Open fails on platforms without the GPIO character device. File based
// capture sources work everywhere, so development off the Pi stays
// possible.
func Open(cfg Config) (Source, error) {
	return nil, ErrNotSupported
}
