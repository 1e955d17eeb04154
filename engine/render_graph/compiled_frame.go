package render_graph

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// PassReport summarizes how one pass was compiled.
type PassReport struct {
	Name             string
	Kind             NodeKind
	State            NodeState
	ColorAttachments int
	HasDepth         bool
	HasPipeline      bool
}

// FrameStats are per-frame counters of a compiled frame.
type FrameStats struct {
	Passes      int
	Resources   int
	Allocations int
	Staging     int
	Readbacks   int
}

// CompiledFrame is the result of a successful Compile: one recorded command buffer plus the
// transient GPU objects it references. Submit it once, then Release it after the frame is presented.
type CompiledFrame struct {
	label  string
	device Device
	logger *slog.Logger

	order     []string
	reports   []PassReport
	lifetimes map[ResourceHandle]ResourceLifetime
	logical   map[LogicalResource]ResourceLifetime
	handles   map[ResourceHandle]LogicalResource

	pool        *resourcePool
	allocations int
	staging     []Buffer
	commands    CommandBuffer

	readbacks       []pendingReadback
	readbackWorkers int
	readbackPool    worker.DynamicWorkerPool
	ownedPools      []worker.DynamicWorkerPool

	mu        sync.Mutex
	wg        sync.WaitGroup
	submitted bool
	released  bool
}

// Label returns the label of the graph the frame was compiled from.
func (f *CompiledFrame) Label() string {
	return f.label
}

// Order returns the pass names in execution order.
func (f *CompiledFrame) Order() []string {
	return append([]string(nil), f.order...)
}

// Passes returns a report per pass in execution order.
func (f *CompiledFrame) Passes() []PassReport {
	return append([]PassReport(nil), f.reports...)
}

// Lifetime returns the schedule span of one resource use.
//
// Parameters:
//   - h: a handle touched by some pass
//
// Returns:
//   - ResourceLifetime: the first and last schedule position that touches h
//   - bool: false if no pass touches h
func (f *CompiledFrame) Lifetime(h ResourceHandle) (ResourceLifetime, bool) {
	lt, ok := f.lifetimes[h]
	return lt, ok
}

// Lifetimes returns the schedule span of every touched resource use.
func (f *CompiledFrame) Lifetimes() map[ResourceHandle]ResourceLifetime {
	return maps.Clone(f.lifetimes)
}

// LogicalLifetime returns the schedule span of the logical resource h belongs to, covering all of
// its uses.
//
// Parameters:
//   - h: a handle touched by some pass
//
// Returns:
//   - ResourceLifetime: the span of the logical resource
//   - bool: false if no pass touches h
func (f *CompiledFrame) LogicalLifetime(h ResourceHandle) (ResourceLifetime, bool) {
	lr, ok := f.handles[h]
	if !ok {
		return ResourceLifetime{}, false
	}
	lt, ok := f.logical[lr]
	return lt, ok
}

// LogicalLifetimes returns the schedule span of every touched logical resource.
func (f *CompiledFrame) LogicalLifetimes() map[LogicalResource]ResourceLifetime {
	return maps.Clone(f.logical)
}

// Allocations returns the number of transient GPU resources the frame created. Uses that share a
// pooled slot count once; imports and staging buffers are not counted.
func (f *CompiledFrame) Allocations() int {
	return f.allocations
}

// Stats returns the counters of the frame.
func (f *CompiledFrame) Stats() FrameStats {
	return FrameStats{
		Passes:      len(f.reports),
		Resources:   len(f.lifetimes),
		Allocations: f.allocations,
		Staging:     len(f.staging),
		Readbacks:   len(f.readbacks),
	}
}

// CommandBuffer returns the recorded command buffer, or nil once the frame was submitted or released.
func (f *CompiledFrame) CommandBuffer() CommandBuffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commands
}

// Submit hands the command buffer to the device queue, then resolves the frame's readback tickets on
// worker goroutines.
//
// Returns:
//   - error: ErrFrameSubmitted, ErrFrameReleased, or the device submission error
func (f *CompiledFrame) Submit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.released {
		return ErrFrameReleased
	}
	if f.submitted {
		return ErrFrameSubmitted
	}
	f.submitted = true

	err := f.device.Submit(f.commands)
	f.commands.Release()
	f.commands = nil
	if err != nil {
		f.cancelReadbacks(err)
		return fmt.Errorf("failed to submit frame %q: %w", f.label, err)
	}

	f.resolveReadbacks()
	return nil
}

// Release waits for in-flight readbacks, stops the readback workers the frame started itself, and
// frees every transient GPU object of the frame. A pool supplied through WithReadbackPool is left
// running. Tickets of a frame released before Submit resolve with ErrReadbackCancelled. Safe to
// call more than once.
func (f *CompiledFrame) Release() {
	f.mu.Lock()
	if f.released {
		f.mu.Unlock()
		return
	}
	f.released = true
	if !f.submitted {
		f.cancelReadbacks(nil)
		if f.commands != nil {
			f.commands.Release()
			f.commands = nil
		}
	}
	f.mu.Unlock()

	f.wg.Wait()
	for _, p := range f.ownedPools {
		p.Stop()
	}
	f.ownedPools = nil
	for _, b := range f.staging {
		b.Release()
	}
	f.staging = nil
	f.pool.release()
}

func (f *CompiledFrame) cancelReadbacks(cause error) {
	err := ErrReadbackCancelled
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrReadbackCancelled, cause)
	}
	for _, rb := range f.readbacks {
		rb.ticket.resolve(nil, err)
	}
}

func (f *CompiledFrame) resolveReadbacks() {
	if len(f.readbacks) == 0 {
		return
	}

	pools := []worker.DynamicWorkerPool{f.readbackPool}
	if f.readbackPool == nil {
		// Owned pools hold one worker each; a pool's Stop only reliably reaches a single worker.
		pools = make([]worker.DynamicWorkerPool, min(f.readbackWorkers, len(f.readbacks)))
		for i := range pools {
			pools[i] = worker.NewDynamicWorkerPool(1, len(f.readbacks), 1*time.Second)
		}
		f.ownedPools = pools
	}

	for i, rb := range f.readbacks {
		f.wg.Add(1)
		pools[i%len(pools)].SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer f.wg.Done()

				data, err := f.device.ReadBuffer(rb.staging, 0, rb.size)
				if err != nil {
					f.logger.Warn("render graph: readback failed", "graph", f.label, "pass", rb.pass, "error", err)
					rb.ticket.resolve(nil, fmt.Errorf("readback in transfer %q: %w", rb.pass, err))
					return nil, nil
				}
				rb.ticket.resolve(data, nil)
				return nil, nil
			},
		})
	}
}
