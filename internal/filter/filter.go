// Package filter implements the first-match-wins frame filter engine.
package filter

import (
	"errors"
	"sync"

	"firestige.xyz/netmon/internal/core"
)

// RegexFilter holds the optional regular-expression criteria of a Filter.
type RegexFilter struct {
	SourceIP string `json:"source_ip" yaml:"source_ip"`
	DestIP   string `json:"dest_ip" yaml:"dest_ip"`
	Payload  string `json:"payload" yaml:"payload"`
}

// Filter is a single OR-combined set of criteria. Zero values mean unset.
// Protocol is descriptive only and does not take part in matching.
type Filter struct {
	Protocol    string      `json:"protocol" yaml:"protocol"`
	MinSize     uint64      `json:"min_size" yaml:"min_size"`
	MaxSize     uint64      `json:"max_size" yaml:"max_size"`
	Port        uint16      `json:"port" yaml:"port"`
	RegexFilter RegexFilter `json:"regex_filter" yaml:"regex_filter"`

	init     sync.Once
	patterns *patternSet
}

type patternSet struct {
	srcIP   pattern
	dstIP   pattern
	payload pattern
}

func (f *Filter) compiled() *patternSet {
	f.init.Do(func() {
		f.patterns = &patternSet{
			srcIP:   pattern{expr: f.RegexFilter.SourceIP},
			dstIP:   pattern{expr: f.RegexFilter.DestIP},
			payload: pattern{expr: f.RegexFilter.Payload},
		}
	})
	return f.patterns
}

// Compile compiles every non-empty pattern now instead of on first use.
// Invalid patterns are reported and then behave as if absent.
func (f *Filter) Compile() error {
	ps := f.compiled()
	var errs []error
	for _, p := range []*pattern{&ps.srcIP, &ps.dstIP, &ps.payload} {
		if _, err := p.compile(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Matches evaluates size, port, source ip, destination ip and payload in that
// order and returns true on the first criterion that hits.
func (f *Filter) Matches(t *core.FlowTuple) bool {
	if f.matchSize(t.Size) {
		return true
	}
	if f.Port != 0 && (t.SrcPort == f.Port || t.DstPort == f.Port) {
		return true
	}
	ps := f.compiled()
	if ps.srcIP.match(t.SrcIPString) {
		return true
	}
	if ps.dstIP.match(t.DstIPString) {
		return true
	}
	return ps.payload.match(t.PayloadText)
}

// min and max bounds are exclusive.
func (f *Filter) matchSize(size uint64) bool {
	switch {
	case f.MinSize > 0 && f.MaxSize > 0:
		return f.MinSize < size && size < f.MaxSize
	case f.MinSize > 0:
		return size > f.MinSize
	case f.MaxSize > 0:
		return size < f.MaxSize
	}
	return false
}

// IsEmpty reports whether no criterion is set. An empty filter matches nothing.
func (f *Filter) IsEmpty() bool {
	return f.MinSize == 0 && f.MaxSize == 0 && f.Port == 0 &&
		f.RegexFilter == RegexFilter{}
}
