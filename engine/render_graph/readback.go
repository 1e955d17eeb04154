package render_graph

import (
	"context"
	"sync"
)

// ReadbackTicket is the pending result of a GPU to CPU buffer read declared with TransferBuilder.Read.
// It resolves exactly once, after the frame is submitted and the staging buffer has been mapped, or
// with an error if the frame never reached the GPU. Safe for concurrent use.
type ReadbackTicket struct {
	mu       sync.Mutex
	once     sync.Once
	done     chan struct{}
	resolved bool
	data     []byte
	err      error
}

func newReadbackTicket() *ReadbackTicket {
	return &ReadbackTicket{done: make(chan struct{})}
}

// TryGet polls the ticket without blocking. It reports not ready while the mapping is unresolved or
// while another goroutine holds the ticket.
//
// Returns:
//   - []byte: the read bytes, nil until ready
//   - bool: true once the ticket has resolved
//   - error: the resolution error, if any
func (t *ReadbackTicket) TryGet() ([]byte, bool, error) {
	if !t.mu.TryLock() {
		return nil, false, nil
	}
	defer t.mu.Unlock()

	if !t.resolved {
		return nil, false, nil
	}
	return t.data, true, t.err
}

// Wait blocks until the ticket resolves or ctx is done.
//
// Parameters:
//   - ctx: bounds the wait
//
// Returns:
//   - []byte: the read bytes
//   - error: the resolution error, or ctx.Err()
func (t *ReadbackTicket) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.data, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done returns a channel closed once the ticket resolves.
func (t *ReadbackTicket) Done() <-chan struct{} {
	return t.done
}

// resolve fulfils the ticket. Only the first call has an effect.
func (t *ReadbackTicket) resolve(data []byte, err error) {
	t.once.Do(func() {
		t.mu.Lock()
		t.data, t.err, t.resolved = data, err, true
		t.mu.Unlock()
		close(t.done)
	})
}

// pendingReadback pairs a ticket with the staging buffer its data lands in.
type pendingReadback struct {
	ticket  *ReadbackTicket
	staging Buffer
	size    uint64
	pass    string
}
