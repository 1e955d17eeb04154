package render_graph

import (
	"log/slog"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// RenderGraph is the declarative description of one frame of GPU work. Resources, pipelines, and
// passes are registered as pure data; Compile orders the passes by their resource dependencies,
// materializes backing GPU objects, and records every pass into a single command buffer.
//
// A RenderGraph is built and compiled on one goroutine and is consumed by Compile.
type RenderGraph interface {
	// Label returns the debug label of the graph.
	//
	// Returns:
	//   - string: the label used for the frame encoder and pooled resources
	Label() string

	// AddBuffer registers a transient buffer use. Equal descriptors share one logical resource, but
	// every call returns a distinct handle.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - ResourceHandle: a handle for this use of the buffer
	AddBuffer(desc BufferDesc) ResourceHandle

	// AddTexture registers a transient texture use. The descriptor is normalized first, so unset
	// optional fields compare equal to their defaults.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - ResourceHandle: a handle for this use of the texture
	AddTexture(desc TextureDesc) ResourceHandle

	// ImportBuffer registers an externally owned buffer. It is never pooled or released by the graph.
	//
	// Parameters:
	//   - desc: the descriptor of the buffer
	//   - buffer: the buffer object
	//
	// Returns:
	//   - ResourceHandle: a handle resolving to buffer
	ImportBuffer(desc BufferDesc, buffer Buffer) ResourceHandle

	// ImportTexture registers an externally owned texture, such as the current swapchain image.
	// It is never pooled or released by the graph.
	//
	// Parameters:
	//   - desc: the descriptor of the texture
	//   - texture: the texture object, may be nil when only the view is available
	//   - view: the view used as attachment
	//
	// Returns:
	//   - ResourceHandle: a handle resolving to view
	ImportTexture(desc TextureDesc, texture Texture, view TextureView) ResourceHandle

	// AddPipeline registers a pipeline owned by the pipeline manager. Equal descriptions share one record.
	//
	// Parameters:
	//   - desc: the kind and key of the pipeline
	//
	// Returns:
	//   - PipelineHandle: a handle passed to PassBuilder.UsePipeline
	AddPipeline(desc PipelineDesc) PipelineHandle

	// AddPass starts building a render or compute pass.
	//
	// Parameters:
	//   - name: the pass name, used as label and in errors
	//   - kind: NodeKindRenderPass or NodeKindComputePass
	//
	// Returns:
	//   - *PassBuilder: the builder, finalized by Execute
	AddPass(name string, kind NodeKind) *PassBuilder

	// AddTransfer starts building a transfer node.
	//
	// Parameters:
	//   - name: the transfer name, used as label and in errors
	//
	// Returns:
	//   - *TransferBuilder: the builder, finalized by Finish
	AddTransfer(name string) *TransferBuilder

	// BufferDesc returns the descriptor behind a buffer handle.
	//
	// Parameters:
	//   - h: a buffer handle of this graph
	//
	// Returns:
	//   - BufferDesc: the descriptor
	//   - bool: false for texture or foreign handles
	BufferDesc(h ResourceHandle) (BufferDesc, bool)

	// TextureDesc returns the normalized descriptor behind a texture handle.
	//
	// Parameters:
	//   - h: a texture handle of this graph
	//
	// Returns:
	//   - TextureDesc: the descriptor
	//   - bool: false for buffer or foreign handles
	TextureDesc(h ResourceHandle) (TextureDesc, bool)

	// Logical returns the logical resource a handle belongs to.
	//
	// Parameters:
	//   - h: a handle of this graph
	//
	// Returns:
	//   - LogicalResource: the logical resource identity
	//   - bool: false for foreign handles
	Logical(h ResourceHandle) (LogicalResource, bool)

	// Nodes returns a snapshot of the finalized nodes in declaration order.
	//
	// Returns:
	//   - []NodeInfo: the nodes
	Nodes() []NodeInfo

	// Compile schedules, materializes, and records the graph. It either fully succeeds or leaves no
	// GPU objects behind. The graph is consumed even when compilation fails.
	//
	// Parameters:
	//   - device: the device used to create resources and encode commands
	//   - pipelines: the resolver for pipeline handles, may be nil when no pass uses a pipeline
	//
	// Returns:
	//   - *CompiledFrame: the recorded frame, ready to Submit
	//   - error: a *CycleError, *AllocationError, ErrGraphConsumed, or an error returned by a command
	Compile(device Device, pipelines PipelineResolver) (*CompiledFrame, error)
}

// LogicalResource identifies the canonical resource behind a group of handles with equal descriptors.
// Every imported resource is its own logical resource.
type LogicalResource struct {
	Kind ResourceKind
	ID   LogicalID
}

// bufferEntry is the registry value of a buffer. imported is zero for transient buffers and the
// import ordinal otherwise, so imports never deduplicate.
type bufferEntry struct {
	desc     BufferDesc
	imported uint32
}

type textureEntry struct {
	desc     TextureDesc
	imported uint32
}

type importedTexture struct {
	texture Texture
	view    TextureView
}

type renderGraph struct {
	label           string
	strictWriters   bool
	clearColor      Color
	depthClearValue float32
	readbackWorkers int
	readbackPool    worker.DynamicWorkerPool
	logger          *slog.Logger

	buffers   *InstanceRegistry[bufferEntry]
	textures  *InstanceRegistry[textureEntry]
	pipelines *InstanceRegistry[PipelineDesc]

	importedBuffers  map[InstanceKey]Buffer
	importedTextures map[InstanceKey]importedTexture
	imports          uint32

	nodes    []*node
	consumed bool
}

var _ RenderGraph = &renderGraph{}

// NewRenderGraph creates an empty graph for one frame.
//
// Parameters:
//   - options: functional options applied to the graph
//
// Returns:
//   - RenderGraph: the new graph
func NewRenderGraph(options ...RenderGraphBuilderOption) RenderGraph {
	g := &renderGraph{
		label:            "frame",
		clearColor:       Color{R: 0, G: 0, B: 0, A: 1},
		depthClearValue:  1.0,
		readbackWorkers:  1,
		buffers:          NewInstanceRegistry[bufferEntry](),
		textures:         NewInstanceRegistry[textureEntry](),
		pipelines:        NewInstanceRegistry[PipelineDesc](),
		importedBuffers:  make(map[InstanceKey]Buffer),
		importedTextures: make(map[InstanceKey]importedTexture),
	}

	for _, option := range options {
		option(g)
	}

	return g
}

func (g *renderGraph) Label() string {
	return g.label
}

func (g *renderGraph) AddBuffer(desc BufferDesc) ResourceHandle {
	return ResourceHandle{Kind: ResourceKindBuffer, key: g.buffers.Insert(bufferEntry{desc: desc})}
}

func (g *renderGraph) AddTexture(desc TextureDesc) ResourceHandle {
	return ResourceHandle{Kind: ResourceKindTexture, key: g.textures.Insert(textureEntry{desc: desc.Normalized()})}
}

func (g *renderGraph) ImportBuffer(desc BufferDesc, buffer Buffer) ResourceHandle {
	g.imports++
	key := g.buffers.Insert(bufferEntry{desc: desc, imported: g.imports})
	g.importedBuffers[key] = buffer
	return ResourceHandle{Kind: ResourceKindBuffer, key: key}
}

func (g *renderGraph) ImportTexture(desc TextureDesc, texture Texture, view TextureView) ResourceHandle {
	g.imports++
	key := g.textures.Insert(textureEntry{desc: desc.Normalized(), imported: g.imports})
	g.importedTextures[key] = importedTexture{texture: texture, view: view}
	return ResourceHandle{Kind: ResourceKindTexture, key: key}
}

func (g *renderGraph) AddPipeline(desc PipelineDesc) PipelineHandle {
	return PipelineHandle{Kind: desc.Kind, key: g.pipelines.Insert(desc)}
}

func (g *renderGraph) AddPass(name string, kind NodeKind) *PassBuilder {
	return newPassBuilder(g, name, kind)
}

func (g *renderGraph) AddTransfer(name string) *TransferBuilder {
	return newTransferBuilder(g, name)
}

func (g *renderGraph) BufferDesc(h ResourceHandle) (BufferDesc, bool) {
	if h.Kind != ResourceKindBuffer {
		return BufferDesc{}, false
	}
	e, ok := g.buffers.Get(h.key)
	return e.desc, ok
}

func (g *renderGraph) TextureDesc(h ResourceHandle) (TextureDesc, bool) {
	if h.Kind != ResourceKindTexture {
		return TextureDesc{}, false
	}
	e, ok := g.textures.Get(h.key)
	return e.desc, ok
}

func (g *renderGraph) Logical(h ResourceHandle) (LogicalResource, bool) {
	var (
		id LogicalID
		ok bool
	)
	switch h.Kind {
	case ResourceKindBuffer:
		id, ok = g.buffers.Logical(h.key)
	case ResourceKindTexture:
		id, ok = g.textures.Logical(h.key)
	}
	return LogicalResource{Kind: h.Kind, ID: id}, ok
}

func (g *renderGraph) Nodes() []NodeInfo {
	out := make([]NodeInfo, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.info()
	}
	return out
}

func (g *renderGraph) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return Logger()
}

func (g *renderGraph) owns(h ResourceHandle) bool {
	_, ok := g.Logical(h)
	return ok
}

func (g *renderGraph) isImported(h ResourceHandle) bool {
	switch h.Kind {
	case ResourceKindBuffer:
		_, ok := g.importedBuffers[h.key]
		return ok
	case ResourceKindTexture:
		_, ok := g.importedTextures[h.key]
		return ok
	}
	return false
}
