package render_graph

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-framegraph/common"
)

// TransferBuilder accumulates the uploads, copies, and readbacks of one transfer node.
// Operations execute in the order they are declared. Transfers support buffer resources only.
type TransferBuilder struct {
	graph    *renderGraph
	node     *node
	next     uint32
	errs     []error
	consumed bool
}

func newTransferBuilder(g *renderGraph, name string) *TransferBuilder {
	return &TransferBuilder{
		graph: g,
		node:  &node{name: name, kind: NodeKindTransfer, state: NodeStateDeclared},
	}
}

// Write queues an upload of data into dest at offset. The data is copied; the caller may reuse it.
//
// Parameters:
//   - dest: the buffer to upload into
//   - offset: byte offset into dest
//   - data: the bytes to upload
//
// Returns:
//   - *TransferBuilder: the builder for chaining
func (b *TransferBuilder) Write(dest ResourceHandle, offset uint64, data []byte) *TransferBuilder {
	if !b.check(dest) {
		return b
	}
	b.node.ops = append(b.node.ops, uploadOp{dest: dest, offset: offset, data: append([]byte(nil), data...)})
	b.output(dest)
	return b
}

// WriteSlice queues an upload of a slice of plain values, reinterpreted as bytes, into dest.
//
// Parameters:
//   - b: the transfer builder
//   - dest: the buffer to upload into
//   - offset: byte offset into dest
//   - data: the values to upload; T must not contain pointers
//
// Returns:
//   - *TransferBuilder: the builder for chaining
func WriteSlice[T any](b *TransferBuilder, dest ResourceHandle, offset uint64, data []T) *TransferBuilder {
	return b.Write(dest, offset, common.Bytes(data))
}

// Copy queues a GPU side copy of size bytes from src to dst.
//
// Parameters:
//   - src: the source buffer
//   - dst: the destination buffer
//   - size: the number of bytes to copy
//   - srcOffset: byte offset into src
//   - dstOffset: byte offset into dst
//
// Returns:
//   - *TransferBuilder: the builder for chaining
func (b *TransferBuilder) Copy(src, dst ResourceHandle, size, srcOffset, dstOffset uint64) *TransferBuilder {
	if !b.check(src) || !b.check(dst) {
		return b
	}
	b.node.ops = append(b.node.ops, copyOp{src: src, dst: dst, size: size, srcOffset: srcOffset, dstOffset: dstOffset})
	b.input(src)
	b.output(dst)
	return b
}

// Read queues a GPU to CPU readback of size bytes of source starting at offset. WholeSize reads to
// the end of the buffer. The returned ticket resolves after the compiled frame is submitted and the
// device has finished the work; it resolves with an error if the transfer never reaches the GPU.
// An empty range or one ending past the buffer is a usage error reported by Finish.
//
// Parameters:
//   - source: the buffer to read
//   - offset: byte offset into source
//   - size: byte length to read, or WholeSize
//
// Returns:
//   - *ReadbackTicket: the ticket to poll for the result
func (b *TransferBuilder) Read(source ResourceHandle, offset, size uint64) *ReadbackTicket {
	ticket := newReadbackTicket()
	if b.consumed {
		ticket.resolve(nil, ErrBuilderConsumed)
		return ticket
	}
	if !b.check(source) {
		b.node.tickets = append(b.node.tickets, ticket)
		return ticket
	}
	desc, _ := b.graph.BufferDesc(source)
	if size == WholeSize {
		if offset > desc.Size {
			b.errs = append(b.errs, fmt.Errorf("transfer %q: read offset %d past end of %s", b.node.name, offset, source))
			b.node.tickets = append(b.node.tickets, ticket)
			return ticket
		}
		size = desc.Size - offset
	}
	if size == 0 || offset+size < offset || offset+size > desc.Size {
		b.errs = append(b.errs, fmt.Errorf("transfer %q: read of %d bytes at offset %d outside %s (%d bytes)", b.node.name, size, offset, source, desc.Size))
		b.node.tickets = append(b.node.tickets, ticket)
		return ticket
	}
	b.node.ops = append(b.node.ops, readOp{source: source, offset: offset, size: size, ticket: ticket})
	b.node.tickets = append(b.node.tickets, ticket)
	b.input(source)
	return ticket
}

// Finish finalizes the transfer and appends it to the graph. If any builder call failed the node is
// not added, its tickets resolve with the error, and the joined errors are returned.
//
// Returns:
//   - error: ErrBuilderConsumed on reuse, or the collected usage errors
func (b *TransferBuilder) Finish() error {
	if b.consumed {
		return ErrBuilderConsumed
	}
	b.consumed = true

	if len(b.errs) > 0 {
		err := errors.Join(b.errs...)
		for _, t := range b.node.tickets {
			t.resolve(nil, err)
		}
		return err
	}

	b.graph.nodes = append(b.graph.nodes, b.node)
	return nil
}

func (b *TransferBuilder) input(h ResourceHandle) {
	b.node.inputs = append(b.node.inputs, NodeInput{Binding: b.next, Resource: h})
	b.next++
}

func (b *TransferBuilder) output(h ResourceHandle) {
	b.node.outputs = append(b.node.outputs, NodeOutput{Binding: b.next, Resource: h})
	b.next++
}

func (b *TransferBuilder) check(resource ResourceHandle) bool {
	if b.consumed {
		return false
	}
	if !b.graph.owns(resource) {
		b.errs = append(b.errs, &UnknownResourceError{Handle: resource, Pass: b.node.name})
		return false
	}
	if resource.Kind != ResourceKindBuffer {
		b.errs = append(b.errs, fmt.Errorf("%w: transfer %q got %s", ErrUnsupportedTransfer, b.node.name, resource))
		return false
	}
	return true
}
