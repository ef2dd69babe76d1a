package pricing

import (
	"sort"
	"strings"
)

// Factory resolves channel identifiers to their calculators. It is built
// once from a validated policy table and is immutable afterwards, so it can
// be shared freely across goroutines.
type Factory struct {
	calculators map[Channel]*Calculator
	channels    []string
}

// NewFactory validates every policy and builds the calculator table.
func NewFactory(policies map[Channel]Policy) (*Factory, error) {
	f := &Factory{
		calculators: make(map[Channel]*Calculator, len(policies)),
		channels:    make([]string, 0, len(policies)),
	}
	for channel, policy := range policies {
		if err := policy.Validate(); err != nil {
			return nil, err
		}
		f.calculators[channel] = newCalculator(policy)
		f.channels = append(f.channels, string(channel))
	}
	sort.Strings(f.channels)
	return f, nil
}

// Normalize canonicalizes a channel identifier for lookup.
func Normalize(channel string) Channel {
	return Channel(strings.ToLower(strings.TrimSpace(channel)))
}

// Get returns the calculator for the given channel identifier, or an
// *UnsupportedChannelError naming the supported channels.
func (f *Factory) Get(channel string) (*Calculator, error) {
	calc, ok := f.calculators[Normalize(channel)]
	if !ok {
		return nil, &UnsupportedChannelError{Channel: channel, Supported: f.Channels()}
	}
	return calc, nil
}

// IsSupported reports whether the identifier maps to a known channel.
func (f *Factory) IsSupported(channel string) bool {
	_, ok := f.calculators[Normalize(channel)]
	return ok
}

// Channels returns the sorted channel identifiers.
func (f *Factory) Channels() []string {
	out := make([]string, len(f.channels))
	copy(out, f.channels)
	return out
}
