package render_graph

// WholeSize selects the remainder of a buffer from the given offset.
const WholeSize = ^uint64(0)

// Buffer is an opaque GPU buffer created by a Device.
type Buffer interface {
	Release()
}

// Texture is an opaque GPU texture created by a Device.
type Texture interface {
	Release()
}

// TextureView is an opaque view of a Texture usable as an attachment or binding.
type TextureView interface {
	Release()
}

// CommandBuffer is a finished, submittable list of recorded GPU commands.
type CommandBuffer interface {
	Release()
}

// Device is the GPU capability the render graph depends on: resource creation, command encoding,
// queue writes, and submission. Implementations are supplied by the caller (the wgpu renderer
// in production, a recording fake in tests); the graph never reaches for an ambient device.
type Device interface {
	// CreateBuffer allocates a GPU buffer matching the descriptor.
	//
	// Parameters:
	//   - label: debug label for the buffer
	//   - desc: the size and usage of the buffer
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if the allocation failed
	CreateBuffer(label string, desc BufferDesc) (Buffer, error)

	// CreateTexture allocates a GPU texture matching the descriptor.
	//
	// Parameters:
	//   - label: debug label for the texture
	//   - desc: the normalized texture descriptor
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: an error if the allocation failed
	CreateTexture(label string, desc TextureDesc) (Texture, error)

	// CreateTextureView creates the default view of a texture.
	//
	// Parameters:
	//   - texture: a texture created by this device
	//
	// Returns:
	//   - TextureView: the created view
	//   - error: an error if view creation failed
	CreateTextureView(texture Texture) (TextureView, error)

	// CreateCommandEncoder creates an encoder that records the commands of one frame.
	//
	// Parameters:
	//   - label: debug label for the encoder
	//
	// Returns:
	//   - CommandEncoder: the created encoder
	//   - error: an error if the encoder could not be created
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// WriteBuffer schedules a CPU to GPU copy of data into buffer on the device queue.
	// Queue writes execute before any command buffer submitted after them.
	//
	// Parameters:
	//   - buffer: the destination buffer
	//   - offset: byte offset into the destination
	//   - data: the bytes to copy
	//
	// Returns:
	//   - error: an error if the write was rejected
	WriteBuffer(buffer Buffer, offset uint64, data []byte) error

	// Submit submits a finished command buffer to the device queue.
	//
	// Parameters:
	//   - commands: the command buffer to submit
	//
	// Returns:
	//   - error: an error if submission failed
	Submit(commands CommandBuffer) error

	// ReadBuffer maps a MapRead buffer, waits for the device to finish pending work, copies out
	// the mapped range, and unmaps it. It blocks and is only called off the frame thread.
	//
	// Parameters:
	//   - buffer: a buffer created with BufferUsageMapRead
	//   - offset: byte offset of the range to read
	//   - size: byte length of the range to read
	//
	// Returns:
	//   - []byte: a copy of the mapped bytes
	//   - error: an error if mapping failed
	ReadBuffer(buffer Buffer, offset, size uint64) ([]byte, error)
}

// CommandEncoder records the commands of one frame in schedule order.
type CommandEncoder interface {
	// BeginRenderPass opens a render pass scope covering the given attachments.
	//
	// Parameters:
	//   - desc: the attachments and label of the pass
	//
	// Returns:
	//   - RenderPassEncoder: the encoder for the pass, valid until End
	//   - error: an error if the pass could not be opened
	BeginRenderPass(desc RenderPassDesc) (RenderPassEncoder, error)

	// BeginComputePass opens a compute pass scope.
	//
	// Parameters:
	//   - label: debug label for the pass
	//
	// Returns:
	//   - ComputePassEncoder: the encoder for the pass, valid until End
	//   - error: an error if the pass could not be opened
	BeginComputePass(label string) (ComputePassEncoder, error)

	// CopyBufferToBuffer records a GPU side copy between two buffers.
	//
	// Parameters:
	//   - src: the source buffer
	//   - srcOffset: byte offset into the source
	//   - dst: the destination buffer
	//   - dstOffset: byte offset into the destination
	//   - size: number of bytes to copy
	//
	// Returns:
	//   - error: an error if the copy could not be recorded
	CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset uint64, size uint64) error

	// Finish ends recording and returns the command buffer.
	//
	// Parameters:
	//   - label: debug label for the command buffer
	//
	// Returns:
	//   - CommandBuffer: the finished command buffer
	//   - error: an error if the encoder was invalid
	Finish(label string) (CommandBuffer, error)

	// Release frees the encoder.
	Release()
}

// RenderPassEncoder records draw commands inside a render pass scope.
type RenderPassEncoder interface {
	SetPipeline(pipeline any) error
	SetBindGroup(index uint32, group any, dynamicOffsets []uint32) error
	SetVertexBuffer(slot uint32, buffer Buffer, offset, size uint64)
	SetIndexBuffer(buffer Buffer, format IndexFormat, offset, size uint64)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End() error
}

// ComputePassEncoder records dispatches inside a compute pass scope.
type ComputePassEncoder interface {
	SetPipeline(pipeline any) error
	SetBindGroup(index uint32, group any, dynamicOffsets []uint32) error
	DispatchWorkgroups(x, y, z uint32)
	End() error
}

// PipelineResolver dereferences pipeline descriptions into backend pipeline objects owned by an
// external pipeline manager. The returned value is handed to SetPipeline unchanged.
type PipelineResolver interface {
	// ResolvePipeline looks up the pipeline object registered for desc.
	//
	// Parameters:
	//   - desc: the kind and key of the pipeline
	//
	// Returns:
	//   - any: the backend pipeline object
	//   - error: an error wrapping ErrUnknownPipeline if nothing is registered for desc
	ResolvePipeline(desc PipelineDesc) (any, error)
}

// Color is an RGBA clear color.
type Color struct {
	R, G, B, A float64
}

// ColorAttachment is one color target of a render pass. The target clears to ClearValue unless Load
// is set, in which case its previous contents are kept. It is always stored.
type ColorAttachment struct {
	View       TextureView
	Load       bool
	ClearValue Color
}

// DepthAttachment is the depth target of a render pass. Stencil is left untouched.
type DepthAttachment struct {
	View       TextureView
	Load       bool
	ClearValue float32
}

// RenderPassDesc describes the attachments of a render pass. Every attachment is stored on completion.
type RenderPassDesc struct {
	Label            string
	ColorAttachments []ColorAttachment
	DepthStencil     *DepthAttachment
}
