package filter

import (
	"net/netip"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netmon/internal/core"
)

// countCompiles swaps the pattern compiler for one that counts calls per expression.
func countCompiles(t *testing.T) map[string]int {
	t.Helper()
	counts := make(map[string]int)
	orig := compileRegexp
	compileRegexp = func(expr string) (*regexp.Regexp, error) {
		counts[expr]++
		return orig(expr)
	}
	t.Cleanup(func() { compileRegexp = orig })
	return counts
}

func tuple(src string, srcPort uint16, dst string, dstPort uint16, size uint64, payload string) *core.FlowTuple {
	t := &core.FlowTuple{
		SrcPort: srcPort,
		DstPort: dstPort,
		Size:    size,
		Payload: []byte(payload),
	}
	if src != "" {
		t.SrcIP = netip.MustParseAddr(src)
	}
	if dst != "" {
		t.DstIP = netip.MustParseAddr(dst)
	}
	return t
}

func TestSizeRange(t *testing.T) {
	tests := []struct {
		name string
		min  uint64
		max  uint64
		size uint64
		want bool
	}{
		{"both inside", 5, 10, 7, true},
		{"both above", 5, 10, 12, false},
		{"both at max", 5, 10, 10, false},
		{"both at min", 5, 10, 5, false},
		{"min only above", 5, 0, 6, true},
		{"min only equal", 5, 0, 5, false},
		{"min only below", 5, 0, 1, false},
		{"max only below", 0, 10, 9, true},
		{"max only equal", 0, 10, 10, false},
		{"max only above", 0, 10, 11, false},
		{"unset", 0, 0, 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Filter{MinSize: tt.min, MaxSize: tt.max}
			assert.Equal(t, tt.want, f.Matches(tuple("", 0, "", 0, tt.size, "")))
		})
	}
}

func TestPortMatchesEitherSide(t *testing.T) {
	f := &Filter{Port: 53, MinSize: 1000, RegexFilter: RegexFilter{SourceIP: "^10\\."}}

	assert.True(t, f.Matches(tuple("192.0.2.1", 53, "192.0.2.2", 40000, 10, "")))
	assert.True(t, f.Matches(tuple("192.0.2.1", 40000, "192.0.2.2", 53, 10, "")))
	assert.False(t, f.Matches(tuple("192.0.2.1", 40000, "192.0.2.2", 40001, 10, "")))
}

func TestSourceIPPattern(t *testing.T) {
	match := &Filter{RegexFilter: RegexFilter{SourceIP: "198.2.+"}}
	miss := &Filter{RegexFilter: RegexFilter{SourceIP: "198.3.*"}}
	tup := tuple("198.2.132.5", 0, "10.0.0.1", 0, 0, "")

	assert.True(t, match.Matches(tup))
	assert.False(t, miss.Matches(tup))
}

func TestDestIPAndPayloadPatterns(t *testing.T) {
	dst := &Filter{RegexFilter: RegexFilter{DestIP: `^fe80::`}}
	assert.True(t, dst.Matches(tuple("2001:db8::1", 0, "fe80::1", 0, 0, "")))
	assert.False(t, dst.Matches(tuple("fe80::1", 0, "2001:db8::1", 0, 0, "")))

	payload := &Filter{RegexFilter: RegexFilter{Payload: "GET /index"}}
	assert.True(t, payload.Matches(tuple("", 0, "", 0, 0, "\xffGET /index.html HTTP/1.1")))
	assert.False(t, payload.Matches(tuple("", 0, "", 0, 0, "POST /")))
}

func TestEmptyFilterNeverMatches(t *testing.T) {
	f := &Filter{Protocol: "tcp"}
	require.True(t, f.IsEmpty())

	tuples := []*core.FlowTuple{
		tuple("", 0, "", 0, 0, ""),
		tuple("10.0.0.1", 80, "10.0.0.2", 443, 1500, "anything"),
		tuple("fe80::1", 0, "ff02::1", 0, 0, ""),
	}
	for _, tup := range tuples {
		assert.False(t, f.Matches(tup))
	}
}

func TestPatternsCompileOnce(t *testing.T) {
	counts := countCompiles(t)
	f := &Filter{RegexFilter: RegexFilter{
		SourceIP: "^10\\.",
		DestIP:   "^172\\.",
		Payload:  "needle",
	}}

	for i := 0; i < 100; i++ {
		f.Matches(tuple("192.0.2.1", 1, "192.0.2.2", 2, 0, "haystack"))
	}
	require.NoError(t, f.Compile())

	assert.Equal(t, 1, counts["^10\\."])
	assert.Equal(t, 1, counts["^172\\."])
	assert.Equal(t, 1, counts["needle"])
}

func TestEmptyPatternNeverCompiled(t *testing.T) {
	counts := countCompiles(t)
	f := &Filter{Port: 80}

	f.Matches(tuple("192.0.2.1", 1, "192.0.2.2", 2, 0, ""))
	assert.Empty(t, counts)
}

func TestInvalidPatternTreatedAsAbsent(t *testing.T) {
	f := &Filter{Port: 22, RegexFilter: RegexFilter{SourceIP: "([", Payload: "ok"}}

	err := f.Compile()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPattern)

	assert.True(t, f.Matches(tuple("10.0.0.1", 22, "10.0.0.2", 0, 0, "")))
	assert.True(t, f.Matches(tuple("10.0.0.1", 0, "10.0.0.2", 0, 0, "ok")))
	assert.False(t, f.Matches(tuple("10.0.0.1", 0, "10.0.0.2", 0, 0, "nope")))
}
