package render_graph

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitTicket(t *testing.T, ticket *ReadbackTicket) ([]byte, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ticket.Wait(ctx)
}

func TestTransferUploadCopyReadback(t *testing.T) {
	g := NewRenderGraph(WithReadbackWorkers(2))
	src := g.AddBuffer(testBuffer)
	dst := g.AddBuffer(testBuffer)

	up := g.AddTransfer("upload")
	up.Write(src, 4, []byte{1, 2, 3, 4})
	require.NoError(t, up.Finish())

	require.NoError(t, g.AddPass("sim", NodeKindComputePass).ReadWrite(src).Execute(nil))

	down := g.AddTransfer("download")
	down.Copy(src, dst, 8, 0, 8)
	ticket := down.Read(dst, 8, 8)
	require.NoError(t, down.Finish())

	device := newFakeDevice()
	frame, err := g.Compile(device, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"upload", "sim", "download"}, frame.Order())

	_, ready, err := ticket.TryGet()
	assert.False(t, ready, "tickets are unresolved before submission")
	assert.NoError(t, err)

	enc := device.encoders[0]
	assert.Equal(t, []string{"copy", "begin_compute:sim", "end", "copy", "copy"}, enc.ops())
	assert.Equal(t, 2, frame.Stats().Staging)
	assert.Equal(t, 1, frame.Stats().Readbacks)

	require.NoError(t, frame.Submit())
	data, err := waitTicket(t, ticket)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4}, data)

	got, ready, err := ticket.TryGet()
	assert.True(t, ready)
	assert.NoError(t, err)
	assert.Equal(t, data, got)

	frame.Release()
	assert.Equal(t, 0, device.liveObjects())
}

func TestReadbackOnSharedPool(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(1, 16, 1*time.Second)
	g := NewRenderGraph(WithReadbackPool(pool))
	buf := g.AddBuffer(testBuffer)

	tb := g.AddTransfer("roundtrip")
	WriteSlice(tb, buf, 0, []uint32{7, 7, 7, 7})
	ticket := tb.Read(buf, 0, WholeSize)
	require.NoError(t, tb.Finish())

	frame, err := g.Compile(newFakeDevice(), nil)
	require.NoError(t, err)
	defer frame.Release()
	require.NoError(t, frame.Submit())

	data, err := waitTicket(t, ticket)
	require.NoError(t, err)
	assert.Len(t, data, int(testBuffer.Size))
	assert.Equal(t, byte(7), data[0])
}

func TestReadbackCancelledOnRelease(t *testing.T) {
	g := NewRenderGraph()
	buf := g.AddBuffer(testBuffer)
	tb := g.AddTransfer("read")
	ticket := tb.Read(buf, 0, 4)
	require.NoError(t, tb.Finish())

	frame, err := g.Compile(newFakeDevice(), nil)
	require.NoError(t, err)
	frame.Release()

	select {
	case <-ticket.Done():
	default:
		t.Fatal("ticket should resolve when the frame is released")
	}
	_, err = waitTicket(t, ticket)
	assert.ErrorIs(t, err, ErrReadbackCancelled)
}

func TestReadbackCancelledOnCycle(t *testing.T) {
	g := NewRenderGraph()
	a := g.AddBuffer(testBuffer)
	b := g.AddBuffer(testBuffer)
	tb := g.AddTransfer("read")
	tb.Copy(a, b, 4, 0, 0)
	ticket := tb.Read(a, 0, 4)
	require.NoError(t, tb.Finish())
	compute(t, g, "loop", []ResourceHandle{b}, []ResourceHandle{a})

	_, err := g.Compile(newFakeDevice(), nil)
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)

	_, err = waitTicket(t, ticket)
	assert.ErrorIs(t, err, ErrReadbackCancelled)
	assert.ErrorAs(t, err, &cycle)
}

func TestReadbackDeviceFailure(t *testing.T) {
	g := NewRenderGraph()
	buf := g.AddBuffer(testBuffer)
	tb := g.AddTransfer("read")
	ticket := tb.Read(buf, 0, 4)
	require.NoError(t, tb.Finish())

	device := newFakeDevice()
	device.failRead = true
	frame, err := g.Compile(device, nil)
	require.NoError(t, err)
	defer frame.Release()
	require.NoError(t, frame.Submit())

	_, err = waitTicket(t, ticket)
	assert.ErrorIs(t, err, errFakeDevice)
}

func TestReadbackTicketTryGetUnderContention(t *testing.T) {
	ticket := newReadbackTicket()
	ticket.resolve([]byte{1}, nil)

	ticket.mu.Lock()
	_, ready, err := ticket.TryGet()
	ticket.mu.Unlock()
	assert.False(t, ready, "TryGet never blocks on a held lock")
	assert.NoError(t, err)

	data, ready, err := ticket.TryGet()
	assert.True(t, ready)
	assert.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
}

func TestReadbackTicketWaitHonoursContext(t *testing.T) {
	ticket := newReadbackTicket()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := ticket.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReadbackTicketResolvesOnce(t *testing.T) {
	ticket := newReadbackTicket()
	ticket.resolve([]byte{1}, nil)
	ticket.resolve(nil, ErrReadbackCancelled)

	data, ready, err := ticket.TryGet()
	assert.True(t, ready)
	assert.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
}

func readbackFrame(t *testing.T, options ...RenderGraphBuilderOption) *ReadbackTicket {
	t.Helper()
	g := NewRenderGraph(options...)
	buf := g.AddBuffer(testBuffer)

	tb := g.AddTransfer("roundtrip")
	tb.Write(buf, 0, []byte{1, 2, 3, 4})
	ticket := tb.Read(buf, 0, 4)
	tb.Read(buf, 4, 4)
	tb.Read(buf, 8, 8)
	require.NoError(t, tb.Finish())

	frame, err := g.Compile(newFakeDevice(), nil)
	require.NoError(t, err)
	require.NoError(t, frame.Submit())
	_, err = waitTicket(t, ticket)
	require.NoError(t, err)
	frame.Release()
	return ticket
}

func TestReleaseStopsOwnedReadbackWorkers(t *testing.T) {
	before := runtime.NumGoroutine()
	for range 25 {
		readbackFrame(t, WithReadbackWorkers(2))
	}
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 3*time.Second, 10*time.Millisecond, "readback workers outlived their frames")
}

func TestReleaseLeavesSharedReadbackPoolRunning(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(1, 16, 1*time.Second)
	defer pool.Stop()

	readbackFrame(t, WithReadbackPool(pool))
	ticket := readbackFrame(t, WithReadbackPool(pool))

	data, err := waitTicket(t, ticket)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}
