package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStderr(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	orig := stderr
	stderr = buf
	t.Cleanup(func() { stderr = orig })
	return buf
}

func TestFormatterPattern(t *testing.T) {
	f := &formatter{pattern: "%time [%level] %field %msg", time: time.RFC3339}
	entry := &logrus.Entry{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "hello",
		Data:    logrus.Fields{"b": 2, "a": "x"},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05Z [warning] a=x,b=2 hello\n", string(out))
}

func TestFormatterWithoutCaller(t *testing.T) {
	f := &formatter{pattern: "%caller %func %msg\n", time: time.RFC3339}
	out, err := f.Format(&logrus.Entry{Message: "m", Data: logrus.Fields{}})
	require.NoError(t, err)
	assert.Equal(t, "unknown unknown m\n", string(out))
}

func TestNewLoggerTextToStderr(t *testing.T) {
	buf := captureStderr(t)
	l, err := newLogger(&LoggerConfig{Level: "debug"})
	require.NoError(t, err)

	l.WithField("iface", "eth0").Debug("capture started")
	assert.Contains(t, buf.String(), "[debug]")
	assert.Contains(t, buf.String(), "iface=eth0")
	assert.Contains(t, buf.String(), "capture started")
	assert.True(t, l.IsDebugEnabled())
	assert.False(t, l.IsTraceEnabled())
}

func TestNewLoggerJSON(t *testing.T) {
	buf := captureStderr(t)
	l, err := newLogger(&LoggerConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	l.WithError(errors.New("boom")).Error("failed")
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "failed", m["msg"])
	assert.Equal(t, "boom", m["error"])
	assert.Equal(t, "error", m["level"])
}

func TestNewLoggerInvalidLevelFallsBackToInfo(t *testing.T) {
	captureStderr(t)
	l, err := newLogger(&LoggerConfig{Level: "loud"})
	require.NoError(t, err)
	assert.True(t, l.IsInfoEnabled())
	assert.False(t, l.IsDebugEnabled())
}

func TestNewLoggerInvalidFormat(t *testing.T) {
	_, err := newLogger(&LoggerConfig{Format: "xml"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported log format"))
}

func TestNewLoggerFileAppender(t *testing.T) {
	captureStderr(t)
	path := filepath.Join(t.TempDir(), "netmon.log")
	l, err := newLogger(&LoggerConfig{
		Level: "info",
		File:  FileAppenderOpt{Filename: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1},
	})
	require.NoError(t, err)

	l.Info("to file")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestGetLoggerBeforeInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
}

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closingBuffer) Close() error {
	c.closed = true
	return nil
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestMultiWriterFanOut(t *testing.T) {
	first := &closingBuffer{}
	var second bytes.Buffer
	w := NewMultiWriter().Add(first).Add(brokenWriter{}).Add(&second)

	n, err := w.Write([]byte("line\n"))
	assert.Equal(t, 5, n)
	assert.Error(t, err)
	assert.Equal(t, "line\n", first.String())
	assert.Equal(t, "line\n", second.String())

	require.NoError(t, w.Close())
	assert.True(t, first.closed)
}
