package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-framegraph/engine/render_graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestProfilerReportsAtInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	p := NewProfiler(
		WithInterval(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		withClock(clock.now),
	)

	stats := render_graph.FrameStats{Passes: 3, Allocations: 2, Readbacks: 1}
	for i := 0; i < 3; i++ {
		clock.advance(250 * time.Millisecond)
		assert.False(t, p.Tick(stats))
	}
	assert.False(t, p.Skip())
	assert.Empty(t, buf.String())

	clock.advance(250 * time.Millisecond)
	require.True(t, p.Tick(render_graph.FrameStats{Passes: 1}))

	r := p.Last()
	assert.Equal(t, 4, r.Frames)
	assert.Equal(t, 1, r.Skipped)
	assert.InDelta(t, 4.0, r.FPS, 1e-9)
	assert.InDelta(t, 2.5, r.Passes, 1e-9)
	assert.InDelta(t, 1.5, r.Allocations, 1e-9)
	assert.Equal(t, 3, r.Readbacks)
	assert.Contains(t, buf.String(), "frame profile")
	assert.Contains(t, buf.String(), "skipped=1")
}

func TestProfilerResetsBetweenReports(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(withClock(clock.now))

	clock.advance(time.Second)
	require.True(t, p.Tick(render_graph.FrameStats{Passes: 8}))

	clock.advance(2 * time.Second)
	require.True(t, p.Skip())
	r := p.Last()
	assert.Equal(t, 0, r.Frames)
	assert.Equal(t, 1, r.Skipped)
	assert.Zero(t, r.Passes)
	assert.Zero(t, r.FPS)
}

func TestProfilerIgnoresNonPositiveInterval(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithLogger(nil))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
}
