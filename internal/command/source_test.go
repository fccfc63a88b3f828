package command

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netmon/internal/config"
	"firestige.xyz/netmon/internal/core"
	"firestige.xyz/netmon/internal/gmcp"
)

func waitDisconnected(t *testing.T, q *Queue) []string {
	t.Helper()
	var lines []string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := q.Drain()
		lines = append(lines, got...)
		if errors.Is(err, core.ErrControlDisconnected) {
			return lines
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("queue was not closed")
	return nil
}

func TestStreamSourceReadsLinesThenDisconnects(t *testing.T) {
	src := NewStreamSource(strings.NewReader("first\nsecond\n\nthird"))
	q := Listen(context.Background(), src)

	lines := waitDisconnected(t, q)
	assert.Equal(t, []string{"first", "second", "", "third"}, lines)
}

func TestStreamSourceRunReturnsEOF(t *testing.T) {
	q := NewQueue()
	err := NewStreamSource(strings.NewReader("x\n")).Run(context.Background(), q)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, q.Len())
}

func TestStreamSourceCarriesEnvelopes(t *testing.T) {
	line, err := EncodeLine(
		gmcp.Command{Type: gmcp.CommandThrottle, Data: "20"},
		gmcp.Command{Type: gmcp.CommandPause},
	)
	require.NoError(t, err)

	q := Listen(context.Background(), NewStreamSource(strings.NewReader(string(line))))
	lines := waitDisconnected(t, q)
	require.Len(t, lines, 1)

	in := gmcp.Parse(lines[0])
	require.Len(t, in.Commands, 2)
	assert.Equal(t, gmcp.CommandThrottle, in.Commands[0].Type)
	assert.Equal(t, gmcp.CommandPause, in.Commands[1].Type)
}

func TestNewSelectsSource(t *testing.T) {
	src, err := New(config.ControlConfig{Type: config.ControlStdin}, strings.NewReader(""))
	require.NoError(t, err)
	assert.IsType(t, &StreamSource{}, src)

	src, err = New(config.ControlConfig{
		Type:    config.ControlUnix,
		Options: map[string]any{"path": "/tmp/netmon-test.sock"},
	}, nil)
	require.NoError(t, err)
	require.IsType(t, &UDSServer{}, src)
	assert.Equal(t, "/tmp/netmon-test.sock", src.(*UDSServer).SocketPath())

	src, err = New(config.ControlConfig{
		Type:    config.ControlKafka,
		Options: map[string]any{"brokers": "localhost:9092", "topic": "netmon"},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &KafkaSource{}, src)
	assert.NoError(t, src.Close())

	_, err = New(config.ControlConfig{Type: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}
