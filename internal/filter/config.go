package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"firestige.xyz/netmon/internal/core"
)

// Config is an ordered FilterSet. It is replaced wholesale on reconfiguration.
type Config struct {
	Filters []*Filter `json:"filters" yaml:"filters"`
}

// Match reports whether any filter matches t.
func (c *Config) Match(t *core.FlowTuple) bool {
	_, ok := c.MatchIndex(t)
	return ok
}

// MatchIndex returns the index of the first matching filter.
// Filters after the first match are not evaluated.
func (c *Config) MatchIndex(t *core.FlowTuple) (int, bool) {
	if c == nil {
		return -1, false
	}
	for i, f := range c.Filters {
		if f.Matches(t) {
			return i, true
		}
	}
	return -1, false
}

// Len returns the number of filters.
func (c *Config) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Filters)
}

// Compile eagerly compiles every pattern of every filter.
func (c *Config) Compile() error {
	var errs []error
	for i, f := range c.Filters {
		if err := f.Compile(); err != nil {
			errs = append(errs, fmt.Errorf("filter %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Parse builds a Config from a JSON document and compiles its patterns.
//
// A malformed document returns a nil Config and an error wrapping
// core.ErrConfigMalformed. Invalid patterns return a usable Config together
// with an error wrapping core.ErrInvalidPattern; those patterns never match.
func Parse(data []byte) (*Config, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", core.ErrConfigMalformed)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigMalformed, err)
	}
	filters := make([]*Filter, 0, len(cfg.Filters))
	for _, f := range cfg.Filters {
		if f != nil {
			filters = append(filters, f)
		}
	}
	cfg.Filters = filters
	return &cfg, cfg.Compile()
}

// LoadFile reads and parses a filter document from disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in empty configuration.
func Default() *Config {
	return &Config{Filters: []*Filter{}}
}

// Example returns the built-in illustrative configuration: one broad IPv4
// filter by destination address and one narrow UDP filter by port and payload.
func Example() *Config {
	return &Config{
		Filters: []*Filter{
			{
				Protocol: "ip4",
				RegexFilter: RegexFilter{
					DestIP: `192\.168\..*`,
				},
			},
			{
				Protocol: "udp",
				Port:     53,
				RegexFilter: RegexFilter{
					Payload: "example",
				},
			},
		},
	}
}
