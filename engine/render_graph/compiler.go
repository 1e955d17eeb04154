package render_graph

import (
	"errors"
	"fmt"
)

// Compile implements RenderGraph.
func (g *renderGraph) Compile(device Device, pipelines PipelineResolver) (*CompiledFrame, error) {
	if g.consumed {
		return nil, ErrGraphConsumed
	}
	g.consumed = true
	log := g.log()

	order, err := schedule(g.nodes, g.strictWriters)
	if err != nil {
		g.reject(err)
		log.Warn("render graph: compile rejected", "graph", g.label, "error", err)
		return nil, err
	}

	names := make([]string, len(order))
	for pos, idx := range order {
		g.nodes[idx].state = NodeStateScheduled
		names[pos] = g.nodes[idx].name
	}
	log.Debug("render graph: schedule", "graph", g.label, "order", names)

	lt := trackLifetimes(g, order)
	pool := newResourcePool(device, g.label, log)
	pool.plan(g, lt)

	frame := &CompiledFrame{
		label:           g.label,
		device:          device,
		logger:          log,
		order:           names,
		lifetimes:       lt.uses,
		logical:         lt.logical,
		handles:         make(map[ResourceHandle]LogicalResource, len(lt.uses)),
		pool:            pool,
		readbackWorkers: g.readbackWorkers,
		readbackPool:    g.readbackPool,
	}
	for h := range lt.uses {
		frame.handles[h], _ = g.Logical(h)
	}

	c := &frameCompiler{graph: g, device: device, pipelines: pipelines, pool: pool, frame: frame}

	encoder, err := device.CreateCommandEncoder(g.label)
	if err != nil {
		err = fmt.Errorf("failed to create command encoder for %q: %w", g.label, err)
		c.abort(err)
		return nil, err
	}
	c.encoder = encoder

	for _, idx := range order {
		if err := c.compileNode(g.nodes[idx]); err != nil {
			c.abort(err)
			return nil, err
		}
	}

	commands, err := encoder.Finish(g.label)
	if err != nil {
		err = fmt.Errorf("failed to finish command encoder for %q: %w", g.label, err)
		c.abort(err)
		return nil, err
	}
	encoder.Release()
	c.encoder = nil

	frame.commands = commands
	frame.allocations = pool.materialized()
	log.Debug("render graph: compiled", "graph", g.label, "passes", len(frame.reports), "allocations", frame.allocations, "readbacks", len(frame.readbacks))
	return frame, nil
}

// reject marks every node rejected and fails every readback ticket of the graph.
func (g *renderGraph) reject(cause error) {
	for _, n := range g.nodes {
		n.state = NodeStateRejected
		n.command = nil
		for _, t := range n.tickets {
			t.resolve(nil, fmt.Errorf("%w: %w", ErrReadbackCancelled, cause))
		}
	}
}

// frameCompiler carries the state of one Compile call.
type frameCompiler struct {
	graph     *renderGraph
	device    Device
	pipelines PipelineResolver
	pool      *resourcePool
	encoder   CommandEncoder
	frame     *CompiledFrame
}

// abort releases everything created so far and rejects the graph.
func (c *frameCompiler) abort(cause error) {
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
	for _, b := range c.frame.staging {
		b.Release()
	}
	c.frame.staging = nil
	c.frame.readbacks = nil
	c.pool.release()
	c.graph.reject(cause)
	c.graph.log().Warn("render graph: compile failed", "graph", c.graph.label, "error", cause)
}

func (c *frameCompiler) compileNode(n *node) error {
	n.state = NodeStateMaterializing
	if err := c.materialize(n); err != nil {
		return err
	}

	var pipeline any
	if n.pipeline != nil {
		p, err := c.resolvePipeline(n)
		if err != nil {
			return err
		}
		pipeline = p
	}

	report := PassReport{Name: n.name, Kind: n.kind, HasPipeline: pipeline != nil}
	var err error
	switch n.kind {
	case NodeKindRenderPass:
		err = c.recordRender(n, pipeline, &report)
	case NodeKindComputePass:
		err = c.recordCompute(n, pipeline)
	case NodeKindTransfer:
		err = c.recordTransfer(n)
	default:
		err = fmt.Errorf("%w: %s", ErrInvalidNodeKind, n.kind)
	}
	n.command = nil
	if err != nil {
		return err
	}

	n.state = NodeStateRecorded
	report.State = n.state
	c.frame.reports = append(c.frame.reports, report)
	c.graph.log().Debug("render graph: recorded pass", "graph", c.graph.label, "pass", n.name, "kind", n.kind)
	return nil
}

// materialize creates the backing objects of every resource the node touches.
func (c *frameCompiler) materialize(n *node) error {
	for _, h := range n.touches() {
		var err error
		switch h.Kind {
		case ResourceKindBuffer:
			_, err = c.resolveBuffer(n.name, h)
		case ResourceKindTexture:
			_, _, err = c.resolveTexture(n.name, h)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *frameCompiler) resolveBuffer(pass string, h ResourceHandle) (Buffer, error) {
	if buf, ok := c.graph.importedBuffers[h.key]; ok && h.Kind == ResourceKindBuffer {
		return buf, nil
	}
	buf, err := c.pool.buffer(h)
	if err != nil {
		return nil, c.wrapResourceError(pass, h, err)
	}
	return buf, nil
}

func (c *frameCompiler) resolveTexture(pass string, h ResourceHandle) (Texture, TextureView, error) {
	if imp, ok := c.graph.importedTextures[h.key]; ok && h.Kind == ResourceKindTexture {
		return imp.texture, imp.view, nil
	}
	tex, view, err := c.pool.texture(h)
	if err != nil {
		return nil, nil, c.wrapResourceError(pass, h, err)
	}
	return tex, view, nil
}

func (c *frameCompiler) wrapResourceError(pass string, h ResourceHandle, err error) error {
	var unknown *UnknownResourceError
	if errors.As(err, &unknown) {
		unknown.Pass = pass
		return unknown
	}
	return &AllocationError{Pass: pass, Resource: h, Err: err}
}

func (c *frameCompiler) resolvePipeline(n *node) (any, error) {
	desc, ok := c.graph.pipelines.Get(n.pipeline.key)
	if !ok {
		return nil, fmt.Errorf("%w: pass %q", ErrUnknownPipeline, n.name)
	}
	if c.pipelines == nil {
		return nil, fmt.Errorf("%w: pass %q uses %s pipeline %q but no resolver was given", ErrUnknownPipeline, n.name, desc.Kind, desc.Key)
	}
	p, err := c.pipelines.ResolvePipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("pass %q: %w", n.name, err)
	}
	return p, nil
}

// recordRender builds one attachment per texture output plus the optional depth target and records
// the node inside a single render pass. Attachments the node also reads are loaded instead of cleared.
func (c *frameCompiler) recordRender(n *node, pipeline any, report *PassReport) error {
	desc := RenderPassDesc{Label: n.name}
	for _, o := range n.outputs {
		if o.Resource.Kind != ResourceKindTexture {
			continue
		}
		_, view, err := c.resolveTexture(n.name, o.Resource)
		if err != nil {
			return err
		}
		desc.ColorAttachments = append(desc.ColorAttachments, ColorAttachment{
			View:       view,
			Load:       n.reads(o.Resource),
			ClearValue: c.graph.clearColor,
		})
	}
	if n.depth != nil {
		_, view, err := c.resolveTexture(n.name, *n.depth)
		if err != nil {
			return err
		}
		desc.DepthStencil = &DepthAttachment{
			View:       view,
			Load:       n.reads(*n.depth),
			ClearValue: c.graph.depthClearValue,
		}
	}
	report.ColorAttachments = len(desc.ColorAttachments)
	report.HasDepth = desc.DepthStencil != nil

	rp, err := c.encoder.BeginRenderPass(desc)
	if err != nil {
		return fmt.Errorf("failed to begin render pass %q: %w", n.name, err)
	}
	if pipeline != nil {
		if err := rp.SetPipeline(pipeline); err != nil {
			_ = rp.End()
			return fmt.Errorf("pass %q: failed to set pipeline: %w", n.name, err)
		}
	}

	n.state = NodeStateExecuting
	ctx := &PassContext{node: n, compiler: c, render: rp, pipeline: pipeline}
	var recordErr error
	if n.command != nil {
		recordErr = n.command.Record(ctx)
	}
	ctx.render = nil
	endErr := rp.End()

	if recordErr != nil {
		return fmt.Errorf("pass %q: %w", n.name, recordErr)
	}
	if endErr != nil {
		return fmt.Errorf("failed to end render pass %q: %w", n.name, endErr)
	}
	return nil
}

func (c *frameCompiler) recordCompute(n *node, pipeline any) error {
	cp, err := c.encoder.BeginComputePass(n.name)
	if err != nil {
		return fmt.Errorf("failed to begin compute pass %q: %w", n.name, err)
	}
	if pipeline != nil {
		if err := cp.SetPipeline(pipeline); err != nil {
			_ = cp.End()
			return fmt.Errorf("pass %q: failed to set pipeline: %w", n.name, err)
		}
	}

	n.state = NodeStateExecuting
	ctx := &PassContext{node: n, compiler: c, compute: cp, pipeline: pipeline}
	var recordErr error
	if n.command != nil {
		recordErr = n.command.Record(ctx)
	}
	ctx.compute = nil
	endErr := cp.End()

	if recordErr != nil {
		return fmt.Errorf("pass %q: %w", n.name, recordErr)
	}
	if endErr != nil {
		return fmt.Errorf("failed to end compute pass %q: %w", n.name, endErr)
	}
	return nil
}

func (c *frameCompiler) recordTransfer(n *node) error {
	n.state = NodeStateExecuting
	for _, op := range n.ops {
		if err := op.apply(c, n); err != nil {
			return err
		}
	}
	return nil
}

func (c *frameCompiler) createStaging(pass string, target ResourceHandle, desc BufferDesc) (Buffer, error) {
	buf, err := c.device.CreateBuffer(fmt.Sprintf("%s/%s-staging-%d", c.graph.label, pass, len(c.frame.staging)), desc)
	if err != nil {
		return nil, &AllocationError{Pass: pass, Resource: target, Err: err}
	}
	c.frame.staging = append(c.frame.staging, buf)
	return buf, nil
}

// apply writes the data into a fresh staging buffer through the queue and records a copy into the
// destination, which keeps the upload in schedule order even when pool slots are shared.
func (op uploadOp) apply(c *frameCompiler, n *node) error {
	if len(op.data) == 0 {
		return nil
	}
	dst, err := c.resolveBuffer(n.name, op.dest)
	if err != nil {
		return err
	}
	size := uint64(len(op.data))
	staging, err := c.createStaging(n.name, op.dest, BufferDesc{Size: size, Usage: BufferUsageCopySrc | BufferUsageCopyDst})
	if err != nil {
		return err
	}
	if err := c.device.WriteBuffer(staging, 0, op.data); err != nil {
		return fmt.Errorf("transfer %q: failed to write %s: %w", n.name, op.dest, err)
	}
	if err := c.encoder.CopyBufferToBuffer(staging, 0, dst, op.offset, size); err != nil {
		return fmt.Errorf("transfer %q: failed to copy upload into %s: %w", n.name, op.dest, err)
	}
	return nil
}

func (op copyOp) apply(c *frameCompiler, n *node) error {
	src, err := c.resolveBuffer(n.name, op.src)
	if err != nil {
		return err
	}
	dst, err := c.resolveBuffer(n.name, op.dst)
	if err != nil {
		return err
	}
	if err := c.encoder.CopyBufferToBuffer(src, op.srcOffset, dst, op.dstOffset, op.size); err != nil {
		return fmt.Errorf("transfer %q: failed to copy %s to %s: %w", n.name, op.src, op.dst, err)
	}
	return nil
}

func (op readOp) apply(c *frameCompiler, n *node) error {
	src, err := c.resolveBuffer(n.name, op.source)
	if err != nil {
		return err
	}
	staging, err := c.createStaging(n.name, op.source, BufferDesc{Size: op.size, Usage: BufferUsageMapRead | BufferUsageCopyDst})
	if err != nil {
		return err
	}
	if err := c.encoder.CopyBufferToBuffer(src, op.offset, staging, 0, op.size); err != nil {
		return fmt.Errorf("transfer %q: failed to copy %s for readback: %w", n.name, op.source, err)
	}
	c.frame.readbacks = append(c.frame.readbacks, pendingReadback{ticket: op.ticket, staging: staging, size: op.size, pass: n.name})
	return nil
}
