package render_graph

import (
	"errors"
	"fmt"
)

// PassBuilder accumulates the bindings, pipeline, and command of one render or compute pass.
// Calls chain; usage errors are collected and returned from Execute. A builder is single use.
type PassBuilder struct {
	graph    *renderGraph
	node     *node
	next     uint32
	errs     []error
	consumed bool
}

func newPassBuilder(g *renderGraph, name string, kind NodeKind) *PassBuilder {
	return &PassBuilder{
		graph: g,
		node:  &node{name: name, kind: kind, state: NodeStateDeclared},
	}
}

// Read declares that the pass reads resource at the next binding slot.
func (b *PassBuilder) Read(resource ResourceHandle) *PassBuilder {
	if !b.check(resource) {
		return b
	}
	b.node.inputs = append(b.node.inputs, NodeInput{Binding: b.next, Resource: resource})
	b.next++
	return b
}

// Write declares that the pass writes resource at the next binding slot.
// Texture outputs of a render pass become its color attachments, in binding order.
func (b *PassBuilder) Write(resource ResourceHandle) *PassBuilder {
	if !b.check(resource) {
		return b
	}
	b.node.outputs = append(b.node.outputs, NodeOutput{Binding: b.next, Resource: resource})
	b.next++
	return b
}

// ReadWrite declares one read and one write of resource sharing a single binding slot.
func (b *PassBuilder) ReadWrite(resource ResourceHandle) *PassBuilder {
	if !b.check(resource) {
		return b
	}
	b.node.inputs = append(b.node.inputs, NodeInput{Binding: b.next, Resource: resource})
	b.node.outputs = append(b.node.outputs, NodeOutput{Binding: b.next, Resource: resource})
	b.next++
	return b
}

// WriteDepth designates the depth target of the pass. It may be called once, with a texture.
func (b *PassBuilder) WriteDepth(resource ResourceHandle) *PassBuilder {
	if !b.check(resource) {
		return b
	}
	switch {
	case b.node.depth != nil:
		b.errs = append(b.errs, fmt.Errorf("%w: pass %q", ErrDepthTargetAlreadySet, b.node.name))
	case resource.Kind != ResourceKindTexture:
		b.errs = append(b.errs, fmt.Errorf("%w: pass %q got %s", ErrInvalidDepthTarget, b.node.name, resource))
	default:
		b.node.depth = &resource
	}
	return b
}

// UsePipeline attaches the pipeline the pass binds before its command records.
func (b *PassBuilder) UsePipeline(pipeline PipelineHandle) *PassBuilder {
	if b.consumed {
		return b
	}
	if _, ok := b.graph.pipelines.Get(pipeline.key); !ok {
		b.errs = append(b.errs, fmt.Errorf("%w: pass %q", ErrUnknownPipeline, b.node.name))
		return b
	}
	want := PipelineKindRender
	if b.node.kind == NodeKindComputePass {
		want = PipelineKindCompute
	}
	if pipeline.Kind != want {
		b.errs = append(b.errs, fmt.Errorf("%w: %s pass %q cannot use a %s pipeline", ErrKindMismatch, b.node.kind, b.node.name, pipeline.Kind))
		return b
	}
	b.node.pipeline = &pipeline
	return b
}

// Execute finalizes the pass, handing cmd to the graph. A nil cmd records an empty pass, which for a
// render pass still clears its attachments. If any builder call failed the node is not added and the
// joined errors are returned.
//
// Parameters:
//   - cmd: the deferred command recorded when the pass is compiled
//
// Returns:
//   - error: ErrBuilderConsumed on reuse, ErrInvalidNodeKind for transfer passes, or the collected usage errors
func (b *PassBuilder) Execute(cmd Command) error {
	if b.consumed {
		return ErrBuilderConsumed
	}
	b.consumed = true

	if b.node.kind != NodeKindRenderPass && b.node.kind != NodeKindComputePass {
		return fmt.Errorf("%w: pass %q has kind %s, use AddTransfer", ErrInvalidNodeKind, b.node.name, b.node.kind)
	}
	if len(b.errs) > 0 {
		return errors.Join(b.errs...)
	}

	b.node.command = cmd
	b.graph.nodes = append(b.graph.nodes, b.node)
	return nil
}

// check validates a handle against the owning graph and records an error for foreign handles.
func (b *PassBuilder) check(resource ResourceHandle) bool {
	if b.consumed {
		return false
	}
	if !b.graph.owns(resource) {
		b.errs = append(b.errs, &UnknownResourceError{Handle: resource, Pass: b.node.name})
		return false
	}
	return true
}
