package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONAtDebug(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("frame_id", 3).Debug("evicted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "evicted", entry["msg"])
	require.Equal(t, float64(3), entry["frame_id"])
}

func TestNew_DefaultsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Output: &buf})
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, l.GetLevel())

	l.Debug("hidden")
	require.Zero(t, buf.Len())

	_, err = New(Config{Level: "loud"})
	require.Error(t, err)
	_, err = New(Config{Format: "xml"})
	require.Error(t, err)
}
