package filter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netmon/internal/core"
)

func TestFirstMatchWins(t *testing.T) {
	counts := countCompiles(t)
	cfg := &Config{Filters: []*Filter{
		{Port: 443},
		{Port: 443, RegexFilter: RegexFilter{Payload: "narrow"}},
	}}

	idx, ok := cfg.MatchIndex(tuple("10.0.0.1", 50000, "10.0.0.2", 443, 60, "narrow"))
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Zero(t, counts["narrow"], "second filter must not be evaluated")
}

func TestLaterFilterMatchesWhenEarlierMisses(t *testing.T) {
	cfg := &Config{Filters: []*Filter{
		{Port: 22},
		{RegexFilter: RegexFilter{DestIP: "^10\\.0\\."}},
	}}

	idx, ok := cfg.MatchIndex(tuple("192.0.2.1", 50000, "10.0.0.2", 443, 60, ""))
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	assert.False(t, cfg.Match(tuple("192.0.2.1", 50000, "192.0.2.2", 443, 60, "")))
}

func TestNilAndEmptyConfigMatchNothing(t *testing.T) {
	var nilCfg *Config
	assert.False(t, nilCfg.Match(tuple("10.0.0.1", 1, "10.0.0.2", 2, 3, "x")))
	assert.Equal(t, 0, nilCfg.Len())
	assert.False(t, Default().Match(tuple("10.0.0.1", 1, "10.0.0.2", 2, 3, "x")))
}

func TestParse(t *testing.T) {
	doc := `{"filters":[
		{"protocol":"tcp","min_size":5,"max_size":10,"port":0,"regex_filter":{"source_ip":"","dest_ip":"","payload":""}},
		null,
		{"protocol":"udp","port":53,"regex_filter":{"payload":"example"}}
	]}`

	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Len())
	assert.Equal(t, uint64(5), cfg.Filters[0].MinSize)
	assert.Equal(t, uint64(10), cfg.Filters[0].MaxSize)
	assert.Equal(t, uint16(53), cfg.Filters[1].Port)
	assert.Equal(t, "example", cfg.Filters[1].RegexFilter.Payload)
}

func TestParseMalformed(t *testing.T) {
	for _, doc := range []string{"", "   ", "{", `{"filters":"nope"}`, `[1,2]`} {
		cfg, err := Parse([]byte(doc))
		assert.Nil(t, cfg, doc)
		assert.ErrorIs(t, err, core.ErrConfigMalformed, doc)
	}
}

func TestParseInvalidPatternKeepsConfig(t *testing.T) {
	doc := `{"filters":[{"regex_filter":{"source_ip":"(unclosed"}},{"port":80}]}`

	cfg, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPattern)
	require.NotNil(t, cfg)
	assert.Equal(t, 2, cfg.Len())

	assert.True(t, cfg.Match(tuple("10.0.0.1", 80, "10.0.0.2", 1234, 0, "")))
	assert.False(t, cfg.Match(tuple("10.0.0.1", 81, "10.0.0.2", 1234, 0, "")))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"filters":[{"port":8080}]}`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBuiltinConfigs(t *testing.T) {
	def, err := json.Marshal(Default())
	require.NoError(t, err)
	assert.JSONEq(t, `{"filters":[]}`, string(def))

	ex := Example()
	require.Equal(t, 2, ex.Len())
	require.NoError(t, ex.Compile())

	data, err := json.Marshal(ex)
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "ip4", back.Filters[0].Protocol)
	assert.Equal(t, uint16(53), back.Filters[1].Port)

	assert.True(t, ex.Match(tuple("10.0.0.1", 40000, "192.168.1.20", 80, 0, "")))
	assert.True(t, ex.Match(tuple("10.0.0.1", 40000, "8.8.8.8", 53, 0, "")))
	assert.False(t, ex.Match(tuple("10.0.0.1", 40000, "8.8.8.8", 443, 0, "")))
}
