package uplink

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powermon-go/host/sample"
)

func TestClientIDIsUnique(t *testing.T) {
	a, b := ClientID("term"), ClientID("term")
	assert.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "term-"))
	_, err := uuid.Parse(strings.TrimPrefix(a, "term-"))
	assert.NoError(t, err)

	assert.True(t, strings.HasPrefix(ClientID(""), "ebike-terminal-"))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "ebike/bike-7/telemetry", Topic("bike-7"))
}

func TestPayload(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	b, err := Payload(sample.Sample{Device: "bike", Timestamp: ts, VoltageV: 37.125, PowerW: 5, BatteryPct: 42})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "bike", m["device"])
	assert.Equal(t, "2025-03-01T12:00:00Z", m["timestamp"])
	assert.Equal(t, 37.125, m["voltage_v"])
	assert.Equal(t, 5.0, m["power_w"])
	assert.Equal(t, 42.0, m["battery_pct"])
}

func TestPublishRequiresConnection(t *testing.T) {
	c := NewClient(Options{Broker: "127.0.0.1", Port: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.False(t, c.IsConnected())
	assert.Error(t, c.Publish(sample.Sample{Device: "bike"}))
}

func TestConnectAfterDisconnectFails(t *testing.T) {
	c := NewClient(Options{Broker: "127.0.0.1", Port: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.Disconnect()
	c.Disconnect()
	assert.Error(t, c.Connect(context.Background()))
}
