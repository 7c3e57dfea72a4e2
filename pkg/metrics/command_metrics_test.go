package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommandMetricsSummary(t *testing.T) {
	m := New()
	m.RecordCommand("kset", 2*time.Millisecond)
	m.RecordCommand("kset", 4*time.Millisecond)
	m.RecordCommand("sync", time.Millisecond)
	m.RecordFrameError("InvalidFraming")
	m.AddBytes(40)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	s := m.Summary()
	assert.EqualValues(t, 3, s.TotalCommands)
	assert.EqualValues(t, 2, s.CommandCounts["kset"])
	assert.Equal(t, "3ms", s.AvgProcessingTimes["kset"])
	assert.EqualValues(t, 1, s.TotalFrameErrors)
	assert.EqualValues(t, 40, s.BytesReceived)
	assert.EqualValues(t, 1, s.ConnectionCount)
	assert.Equal(t, []string{"kset", "sync"}, m.Commands())
}

func TestCommandMetricsReset(t *testing.T) {
	m := New()
	m.RecordCommand("clsc", time.Millisecond)
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.ConnectionClosed()

	m.Reset()
	s := m.Summary()
	assert.Zero(t, s.TotalCommands)
	assert.Zero(t, m.CommandCount("clsc"))
	assert.Zero(t, s.ConnectionCount)
}
