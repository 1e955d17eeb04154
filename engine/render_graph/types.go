package render_graph

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-framegraph/common"
)

// ResourceKind identifies whether a ResourceHandle refers to a buffer or a texture.
type ResourceKind int

const (
	// ResourceKindBuffer marks a handle into the graph's buffer registry.
	ResourceKindBuffer ResourceKind = iota

	// ResourceKindTexture marks a handle into the graph's texture registry.
	ResourceKindTexture
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindTexture:
		return "texture"
	default:
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
}

// ResourceHandle is a per-use reference to a logical resource of a RenderGraph.
// Handles are comparable values; two handles are equal only if they come from the same Add call.
// Ownership of any GPU object behind a handle stays with the graph's resource pool.
type ResourceHandle struct {
	Kind ResourceKind
	key  InstanceKey
}

// Valid reports whether the handle was issued by a RenderGraph.
func (h ResourceHandle) Valid() bool {
	return h.key.Valid()
}

func (h ResourceHandle) String() string {
	if !h.Valid() {
		return h.Kind.String() + "#invalid"
	}
	return fmt.Sprintf("%s#%d", h.Kind, h.key.index)
}

// PipelineKind identifies whether a PipelineHandle refers to a render or compute pipeline.
type PipelineKind int

const (
	// PipelineKindRender marks a render pipeline (vertex + fragment stages).
	PipelineKindRender PipelineKind = iota

	// PipelineKindCompute marks a compute pipeline.
	PipelineKindCompute
)

func (k PipelineKind) String() string {
	if k == PipelineKindCompute {
		return "compute"
	}
	return "render"
}

// PipelineDesc describes a pipeline owned by an external pipeline manager.
// Key is the identifier the manager uses to look the pipeline object up.
type PipelineDesc struct {
	Kind PipelineKind
	Key  string
}

// PipelineHandle references a PipelineDesc registered with RenderGraph.AddPipeline.
type PipelineHandle struct {
	Kind PipelineKind
	key  InstanceKey
}

// Valid reports whether the handle was issued by a RenderGraph.
func (h PipelineHandle) Valid() bool {
	return h.key.Valid()
}

// NodeKind identifies the type of GPU work a node performs.
type NodeKind int

const (
	// NodeKindRenderPass records draw calls inside a render pass scope.
	NodeKindRenderPass NodeKind = iota

	// NodeKindComputePass records dispatches inside a compute pass scope.
	NodeKindComputePass

	// NodeKindTransfer performs queued uploads, copies, and readbacks.
	NodeKindTransfer
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindRenderPass:
		return "render"
	case NodeKindComputePass:
		return "compute"
	case NodeKindTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// NodeState tracks a node through compilation.
type NodeState int

const (
	// NodeStateDeclared is the state of a node between Execute/Finish and Compile.
	NodeStateDeclared NodeState = iota
	// NodeStateScheduled means the node received a position in the topological order.
	NodeStateScheduled
	// NodeStateMaterializing means backing resources for the node are being created.
	NodeStateMaterializing
	// NodeStateExecuting means the node's command is running.
	NodeStateExecuting
	// NodeStateRecorded means the node's commands were appended to the frame encoder.
	NodeStateRecorded
	// NodeStateRejected means compilation failed before or while handling this node.
	NodeStateRejected
)

func (s NodeState) String() string {
	switch s {
	case NodeStateDeclared:
		return "declared"
	case NodeStateScheduled:
		return "scheduled"
	case NodeStateMaterializing:
		return "materializing"
	case NodeStateExecuting:
		return "executing"
	case NodeStateRecorded:
		return "recorded"
	case NodeStateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("NodeState(%d)", int(s))
	}
}

// NodeInput binds a resource the node reads at a bind-point ordinal local to the node.
type NodeInput struct {
	Binding  uint32
	Resource ResourceHandle
}

// NodeOutput binds a resource the node writes at a bind-point ordinal local to the node.
type NodeOutput struct {
	Binding  uint32
	Resource ResourceHandle
}

// BufferUsage is a bit set of the ways a GPU buffer will be used.
type BufferUsage uint32

const (
	BufferUsageMapRead BufferUsage = 1 << iota
	BufferUsageMapWrite
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
)

// TextureUsage is a bit set of the ways a GPU texture will be used.
type TextureUsage uint32

const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageTextureBinding
	TextureUsageStorageBinding
	TextureUsageRenderAttachment
)

// TextureDimension is the dimensionality of a texture. The zero value normalizes to 2D.
type TextureDimension int

const (
	TextureDimensionUndefined TextureDimension = iota
	TextureDimension1D
	TextureDimension2D
	TextureDimension3D
)

// TextureFormat is the texel format of a texture.
type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb
	TextureFormatRGBA16Float
	TextureFormatRGBA32Float
	TextureFormatR32Float
	TextureFormatDepth24Plus
	TextureFormatDepth24PlusStencil8
	TextureFormatDepth32Float
)

// IsDepth reports whether the format carries a depth aspect.
func (f TextureFormat) IsDepth() bool {
	switch f {
	case TextureFormatDepth24Plus, TextureFormatDepth24PlusStencil8, TextureFormatDepth32Float:
		return true
	default:
		return false
	}
}

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// BufferDesc describes the shape and usage of a GPU buffer. It is a comparable value; equal
// descriptors are deduplicated into one logical resource per graph.
type BufferDesc struct {
	Size  uint64
	Usage BufferUsage
}

// TextureDesc describes the shape, format, and usage of a GPU texture. It is a comparable value;
// equal descriptors (after normalization) are deduplicated into one logical resource per graph.
type TextureDesc struct {
	Width              uint32
	Height             uint32
	DepthOrArrayLayers uint32
	Dimension          TextureDimension
	Format             TextureFormat
	Usage              TextureUsage
	MipLevelCount      uint32
	SampleCount        uint32
}

// Normalized returns the descriptor with zero-valued optional fields replaced by their defaults
// so that descriptors differing only in unset fields compare equal.
func (d TextureDesc) Normalized() TextureDesc {
	d.DepthOrArrayLayers = common.Coalesce(d.DepthOrArrayLayers, 1)
	d.Dimension = common.Coalesce(d.Dimension, TextureDimension2D)
	d.MipLevelCount = common.Coalesce(d.MipLevelCount, 1)
	d.SampleCount = common.Coalesce(d.SampleCount, 1)
	return d
}

// ResourceLifetime is the span of schedule positions between a resource's first and last use.
type ResourceLifetime struct {
	FirstUse int
	LastUse  int
}

// Overlaps reports whether two lifetimes share at least one schedule position.
func (l ResourceLifetime) Overlaps(o ResourceLifetime) bool {
	return l.FirstUse <= o.LastUse && o.FirstUse <= l.LastUse
}
