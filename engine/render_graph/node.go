package render_graph

// Command is the deferred work of a pass. The compiler calls Record exactly once, when the pass is
// reached in schedule order and all of its declared resources have backing GPU objects.
type Command interface {
	// Record issues the pass's GPU commands through the pass scoped context.
	//
	// Parameters:
	//   - ctx: the context of the pass being recorded, valid only for the duration of the call
	//
	// Returns:
	//   - error: an error aborts compilation of the frame
	Record(ctx *PassContext) error
}

// CommandFunc adapts a plain function to the Command interface.
type CommandFunc func(ctx *PassContext) error

// Record calls f(ctx).
func (f CommandFunc) Record(ctx *PassContext) error {
	return f(ctx)
}

// NodeInfo is a read-only snapshot of a declared node.
type NodeInfo struct {
	Name     string
	Kind     NodeKind
	State    NodeState
	Inputs   []NodeInput
	Outputs  []NodeOutput
	Depth    *ResourceHandle
	Pipeline *PipelineHandle
}

type node struct {
	name     string
	kind     NodeKind
	inputs   []NodeInput
	outputs  []NodeOutput
	depth    *ResourceHandle
	pipeline *PipelineHandle
	command  Command
	ops      []transferOp
	tickets  []*ReadbackTicket
	state    NodeState
}

// writes returns every handle the node writes, including the depth target.
func (n *node) writes() []ResourceHandle {
	out := make([]ResourceHandle, 0, len(n.outputs)+1)
	for _, o := range n.outputs {
		out = append(out, o.Resource)
	}
	if n.depth != nil {
		out = append(out, *n.depth)
	}
	return out
}

// touches returns every handle the node reads or writes, in binding order, without duplicates.
func (n *node) touches() []ResourceHandle {
	seen := make(map[ResourceHandle]struct{}, len(n.inputs)+len(n.outputs)+1)
	out := make([]ResourceHandle, 0, len(n.inputs)+len(n.outputs)+1)
	add := func(h ResourceHandle) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	for _, in := range n.inputs {
		add(in.Resource)
	}
	for _, o := range n.outputs {
		add(o.Resource)
	}
	if n.depth != nil {
		add(*n.depth)
	}
	return out
}

func (n *node) reads(h ResourceHandle) bool {
	for _, in := range n.inputs {
		if in.Resource == h {
			return true
		}
	}
	return false
}

func (n *node) declares(h ResourceHandle) bool {
	for _, in := range n.inputs {
		if in.Resource == h {
			return true
		}
	}
	for _, o := range n.outputs {
		if o.Resource == h {
			return true
		}
	}
	return n.depth != nil && *n.depth == h
}

func (n *node) info() NodeInfo {
	info := NodeInfo{
		Name:    n.name,
		Kind:    n.kind,
		State:   n.state,
		Inputs:  append([]NodeInput(nil), n.inputs...),
		Outputs: append([]NodeOutput(nil), n.outputs...),
	}
	if n.depth != nil {
		d := *n.depth
		info.Depth = &d
	}
	if n.pipeline != nil {
		p := *n.pipeline
		info.Pipeline = &p
	}
	return info
}

// transferOp is one queued operation of a transfer node, applied in declaration order.
type transferOp interface {
	apply(c *frameCompiler, n *node) error
}

type uploadOp struct {
	dest   ResourceHandle
	offset uint64
	data   []byte
}

type copyOp struct {
	src       ResourceHandle
	dst       ResourceHandle
	size      uint64
	srcOffset uint64
	dstOffset uint64
}

type readOp struct {
	source ResourceHandle
	offset uint64
	size   uint64
	ticket *ReadbackTicket
}
