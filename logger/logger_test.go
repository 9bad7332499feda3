package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json")
	require.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("bookingId", "BK-1234567").Info("[booking] created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "BK-1234567", entry["bookingId"])
	require.Equal(t, "[booking] created", entry["msg"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	log := NewWithWriter(&bytes.Buffer{}, "chatty", "text")
	require.Equal(t, logrus.InfoLevel, log.GetLevel())
}
