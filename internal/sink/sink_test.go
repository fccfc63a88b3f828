package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netmon/internal/config"
	"firestige.xyz/netmon/internal/core"
	"firestige.xyz/netmon/internal/gmcp"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(subject string, data []byte) error {
	return m.Called(subject, data).Error(0)
}

func (m *mockPublisher) Drain() error {
	return m.Called().Error(0)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriterSinkLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf)

	require.NoError(t, s.Write(context.Background(), []byte("one")))
	require.NoError(t, s.Write(context.Background(), []byte("two")))
	assert.Equal(t, "one\ntwo\n", buf.String())
	assert.NoError(t, s.Close())

	err := NewWriterSink(failingWriter{}).Write(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestEmitterEvent(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(NewWriterSink(&buf))

	require.NoError(t, e.Event(context.Background(), core.Event{
		DataType: core.DataTypeUDP,
		Payload:  core.TransportData{InterfaceName: "eth0", DestPort: 53},
	}))

	line := strings.TrimSuffix(buf.String(), "\n")
	require.True(t, strings.HasPrefix(line, gmcp.TagOpen))
	require.True(t, strings.HasSuffix(line, gmcp.TagClose))

	var msg gmcp.Message
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(line, gmcp.TagOpen), gmcp.TagClose)), &msg))
	assert.Equal(t, gmcp.MessageEvent, msg.Type)
	assert.Contains(t, msg.Data, `"dataType":"udp"`)
	assert.Contains(t, msg.Data, `"destPort":53`)
}

func TestEmitterLogAndRaw(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(NewWriterSink(&buf))

	require.NoError(t, e.Log(context.Background(), gmcp.SeverityWarn, "control", "bad envelope"))
	require.NoError(t, e.Raw(context.Background(), []byte(`{"filters":[]}`)))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `\"severity\":\"warn\"`)
	assert.Equal(t, `{"filters":[]}`, lines[1])
}

func TestKafkaSinkWrite(t *testing.T) {
	w := &mockWriter{}
	s := &KafkaSink{writer: w}

	w.On("WriteMessages", mock.Anything, []kafka.Message{{Value: []byte("ok")}}).Return(nil).Once()
	w.On("WriteMessages", mock.Anything, []kafka.Message{{Value: []byte("bad")}}).Return(errors.New("leader not available")).Once()
	w.On("Close").Return(nil).Once()

	require.NoError(t, s.Write(context.Background(), []byte("ok")))
	assert.Error(t, s.Write(context.Background(), []byte("bad")))
	assert.Equal(t, uint64(1), s.sentCount.Load())
	assert.Equal(t, uint64(1), s.errorCount.Load())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	w.AssertExpectations(t)
}

func TestNewKafkaSink(t *testing.T) {
	tests := []struct {
		name    string
		opts    KafkaOptions
		wantErr bool
	}{
		{"valid", KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "events"}, false},
		{"gzip", KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "events", Compression: "gzip"}, false},
		{"none", KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "events", Compression: "none"}, false},
		{"missing brokers", KafkaOptions{Topic: "events"}, true},
		{"missing topic", KafkaOptions{Brokers: []string{"localhost:9092"}}, true},
		{"bad compression", KafkaOptions{Brokers: []string{"localhost:9092"}, Topic: "events", Compression: "zip"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewKafkaSink(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, defaultBatchSize, s.opts.BatchSize)
			assert.Equal(t, defaultMaxAttempts, s.opts.MaxAttempts)
			_ = s.Close()
		})
	}
}

func TestNATSSink(t *testing.T) {
	p := &mockPublisher{}
	s := &NATSSink{pub: p, subject: "netmon.events"}

	p.On("Publish", "netmon.events", []byte("ev")).Return(nil).Once()
	p.On("Publish", "netmon.events", []byte("lost")).Return(errors.New("connection closed")).Once()
	p.On("Drain").Return(nil).Once()

	require.NoError(t, s.Write(context.Background(), []byte("ev")))
	assert.Error(t, s.Write(context.Background(), []byte("lost")))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	p.AssertExpectations(t)

	_, err := NewNATSSink(NATSOptions{URL: "nats://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNewSelectsSink(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(config.OutputConfig{Type: config.OutputStdout}, &buf)
	require.NoError(t, err)
	assert.IsType(t, &WriterSink{}, s)

	s, err = New(config.OutputConfig{
		Type:    config.OutputKafka,
		Options: map[string]any{"brokers": "localhost:9092", "topic": "events", "batch_timeout": "250ms"},
	}, nil)
	require.NoError(t, err)
	require.IsType(t, &KafkaSink{}, s)
	assert.Equal(t, "events", s.(*KafkaSink).opts.Topic)
	_ = s.Close()

	_, err = New(config.OutputConfig{Type: config.OutputNATS}, nil)
	assert.Error(t, err)

	_, err = New(config.OutputConfig{Type: "syslog"}, nil)
	assert.Error(t, err)
}
