package render_graph

import "fmt"

// PassContext is handed to a Command while its pass records. It exposes the open pass encoder and
// the GPU objects behind the resources the pass declared, and nothing else. It must not be retained
// after Record returns.
type PassContext struct {
	node     *node
	compiler *frameCompiler
	render   RenderPassEncoder
	compute  ComputePassEncoder
	pipeline any
}

// Name returns the name of the pass being recorded.
func (c *PassContext) Name() string {
	return c.node.name
}

// Kind returns the kind of the pass being recorded.
func (c *PassContext) Kind() NodeKind {
	return c.node.kind
}

// Inputs returns the read bindings of the pass.
func (c *PassContext) Inputs() []NodeInput {
	return append([]NodeInput(nil), c.node.inputs...)
}

// Outputs returns the write bindings of the pass.
func (c *PassContext) Outputs() []NodeOutput {
	return append([]NodeOutput(nil), c.node.outputs...)
}

// Device returns the device the frame is compiled on, for creating per-pass objects such as
// bind groups. Objects created here are owned by the caller.
func (c *PassContext) Device() Device {
	return c.compiler.device
}

// Pipeline returns the resolved pipeline object bound for this pass, or nil.
func (c *PassContext) Pipeline() any {
	return c.pipeline
}

// RenderPass returns the encoder of the open render pass.
//
// Returns:
//   - RenderPassEncoder: the encoder
//   - error: ErrKindMismatch if the pass is not a render pass
func (c *PassContext) RenderPass() (RenderPassEncoder, error) {
	if c.render == nil {
		return nil, fmt.Errorf("%w: %s pass %q has no render encoder", ErrKindMismatch, c.node.kind, c.node.name)
	}
	return c.render, nil
}

// ComputePass returns the encoder of the open compute pass.
//
// Returns:
//   - ComputePassEncoder: the encoder
//   - error: ErrKindMismatch if the pass is not a compute pass
func (c *PassContext) ComputePass() (ComputePassEncoder, error) {
	if c.compute == nil {
		return nil, fmt.Errorf("%w: %s pass %q has no compute encoder", ErrKindMismatch, c.node.kind, c.node.name)
	}
	return c.compute, nil
}

// Buffer returns the buffer behind a handle the pass declared.
//
// Parameters:
//   - h: a declared buffer handle
//
// Returns:
//   - Buffer: the backing buffer
//   - error: ErrUndeclaredResource if the pass did not declare h
func (c *PassContext) Buffer(h ResourceHandle) (Buffer, error) {
	if err := c.checkDeclared(h, ResourceKindBuffer); err != nil {
		return nil, err
	}
	return c.compiler.resolveBuffer(c.node.name, h)
}

// Texture returns the texture behind a handle the pass declared. Imported textures registered
// without a texture object return nil.
//
// Parameters:
//   - h: a declared texture handle
//
// Returns:
//   - Texture: the backing texture
//   - error: ErrUndeclaredResource if the pass did not declare h
func (c *PassContext) Texture(h ResourceHandle) (Texture, error) {
	if err := c.checkDeclared(h, ResourceKindTexture); err != nil {
		return nil, err
	}
	tex, _, err := c.compiler.resolveTexture(c.node.name, h)
	return tex, err
}

// TextureView returns the default view of a texture the pass declared.
//
// Parameters:
//   - h: a declared texture handle
//
// Returns:
//   - TextureView: the backing view
//   - error: ErrUndeclaredResource if the pass did not declare h
func (c *PassContext) TextureView(h ResourceHandle) (TextureView, error) {
	if err := c.checkDeclared(h, ResourceKindTexture); err != nil {
		return nil, err
	}
	_, view, err := c.compiler.resolveTexture(c.node.name, h)
	return view, err
}

// SetVertexBuffer binds the whole buffer behind h to a vertex slot of the open render pass.
func (c *PassContext) SetVertexBuffer(slot uint32, h ResourceHandle) error {
	rp, err := c.RenderPass()
	if err != nil {
		return err
	}
	buf, err := c.Buffer(h)
	if err != nil {
		return err
	}
	rp.SetVertexBuffer(slot, buf, 0, WholeSize)
	return nil
}

// SetIndexBuffer binds the whole buffer behind h as the index buffer of the open render pass.
func (c *PassContext) SetIndexBuffer(h ResourceHandle, format IndexFormat) error {
	rp, err := c.RenderPass()
	if err != nil {
		return err
	}
	buf, err := c.Buffer(h)
	if err != nil {
		return err
	}
	rp.SetIndexBuffer(buf, format, 0, WholeSize)
	return nil
}

func (c *PassContext) checkDeclared(h ResourceHandle, kind ResourceKind) error {
	if h.Kind != kind || !c.node.declares(h) {
		return fmt.Errorf("%w: pass %q did not declare %s", ErrUndeclaredResource, c.node.name, h)
	}
	return nil
}
