package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-framegraph/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrForeignObject is returned when a render graph object handed to the wgpu device was created
// by a different Device implementation.
var ErrForeignObject = errors.New("renderer: object was not created by the wgpu device")

type wgpuBuffer struct {
	buffer *wgpu.Buffer
}

func (b *wgpuBuffer) Release() { b.buffer.Release() }

type wgpuTexture struct {
	texture *wgpu.Texture
}

func (t *wgpuTexture) Release() { t.texture.Release() }

type wgpuTextureView struct {
	view *wgpu.TextureView
}

func (v *wgpuTextureView) Release() { v.view.Release() }

type wgpuCommandBuffer struct {
	commands *wgpu.CommandBuffer
}

func (c *wgpuCommandBuffer) Release() { c.commands.Release() }

// WrapBuffer wraps a caller owned wgpu buffer for RenderGraph.ImportBuffer.
//
// Parameters:
//   - buffer: the wgpu buffer
//
// Returns:
//   - render_graph.Buffer: the wrapped buffer
func WrapBuffer(buffer *wgpu.Buffer) render_graph.Buffer {
	return &wgpuBuffer{buffer: buffer}
}

// WrapTexture wraps a caller owned wgpu texture and view for RenderGraph.ImportTexture.
//
// Parameters:
//   - texture: the wgpu texture
//   - view: a view of texture
//
// Returns:
//   - render_graph.Texture: the wrapped texture
//   - render_graph.TextureView: the wrapped view
func WrapTexture(texture *wgpu.Texture, view *wgpu.TextureView) (render_graph.Texture, render_graph.TextureView) {
	return &wgpuTexture{texture: texture}, &wgpuTextureView{view: view}
}

// WGPUBuffer returns the wgpu buffer behind a render graph buffer, for building bind groups
// inside pass commands.
//
// Parameters:
//   - buffer: a buffer created by the wgpu device or wrapped with WrapBuffer
//
// Returns:
//   - *wgpu.Buffer: the underlying buffer
//   - bool: false if buffer is not backed by wgpu
func WGPUBuffer(buffer render_graph.Buffer) (*wgpu.Buffer, bool) {
	b, err := unwrapBuffer(buffer)
	return b, err == nil
}

// WGPUTextureView returns the wgpu view behind a render graph texture view.
//
// Parameters:
//   - view: a view created by the wgpu device or wrapped with WrapTexture
//
// Returns:
//   - *wgpu.TextureView: the underlying view
//   - bool: false if view is not backed by wgpu
func WGPUTextureView(view render_graph.TextureView) (*wgpu.TextureView, bool) {
	v, err := unwrapTextureView(view)
	return v, err == nil
}

func unwrapBuffer(buffer render_graph.Buffer) (*wgpu.Buffer, error) {
	if b, ok := buffer.(*wgpuBuffer); ok && b != nil {
		return b.buffer, nil
	}
	return nil, fmt.Errorf("%w: buffer %T", ErrForeignObject, buffer)
}

func unwrapTexture(texture render_graph.Texture) (*wgpu.Texture, error) {
	if t, ok := texture.(*wgpuTexture); ok && t != nil {
		return t.texture, nil
	}
	return nil, fmt.Errorf("%w: texture %T", ErrForeignObject, texture)
}

func unwrapTextureView(view render_graph.TextureView) (*wgpu.TextureView, error) {
	if v, ok := view.(*wgpuTextureView); ok && v != nil {
		return v.view, nil
	}
	return nil, fmt.Errorf("%w: texture view %T", ErrForeignObject, view)
}

// wgpuDevice implements render_graph.Device on a wgpu device and queue.
type wgpuDevice struct {
	// readMu serializes map and poll cycles issued from readback workers.
	readMu *sync.Mutex

	device *wgpu.Device
	queue  *wgpu.Queue
}

var _ render_graph.Device = &wgpuDevice{}

func newWGPUDevice(device *wgpu.Device, queue *wgpu.Queue) *wgpuDevice {
	return &wgpuDevice{readMu: &sync.Mutex{}, device: device, queue: queue}
}

func (d *wgpuDevice) CreateBuffer(label string, desc render_graph.BufferDesc) (render_graph.Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             desc.Size,
		Usage:            toWGPUBufferUsage(desc.Usage),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buffer: buf}, nil
}

func (d *wgpuDevice) CreateTexture(label string, desc render_graph.TextureDesc) (render_graph.Texture, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.DepthOrArrayLayers,
		},
		MipLevelCount: desc.MipLevelCount,
		SampleCount:   desc.SampleCount,
		Dimension:     toWGPUTextureDimension(desc.Dimension),
		Format:        toWGPUTextureFormat(desc.Format),
		Usage:         toWGPUTextureUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	return &wgpuTexture{texture: tex}, nil
}

func (d *wgpuDevice) CreateTextureView(texture render_graph.Texture) (render_graph.TextureView, error) {
	tex, err := unwrapTexture(texture)
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuTextureView{view: view}, nil
}

func (d *wgpuDevice) CreateCommandEncoder(label string) (render_graph.CommandEncoder, error) {
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{encoder: enc}, nil
}

func (d *wgpuDevice) WriteBuffer(buffer render_graph.Buffer, offset uint64, data []byte) error {
	buf, err := unwrapBuffer(buffer)
	if err != nil {
		return err
	}
	return d.queue.WriteBuffer(buf, offset, data)
}

func (d *wgpuDevice) Submit(commands render_graph.CommandBuffer) error {
	cb, ok := commands.(*wgpuCommandBuffer)
	if !ok || cb == nil {
		return fmt.Errorf("%w: command buffer %T", ErrForeignObject, commands)
	}
	d.queue.Submit(cb.commands)
	return nil
}

func (d *wgpuDevice) ReadBuffer(buffer render_graph.Buffer, offset, size uint64) ([]byte, error) {
	buf, err := unwrapBuffer(buffer)
	if err != nil {
		return nil, err
	}

	d.readMu.Lock()
	defer d.readMu.Unlock()

	var status wgpu.BufferMapAsyncStatus
	if err := buf.MapAsync(wgpu.MapModeRead, offset, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, err
	}
	d.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("renderer: mapping readback buffer failed: %s", status.String())
	}

	data := bytes.Clone(buf.GetMappedRange(uint(offset), uint(size)))
	buf.Unmap()
	return data, nil
}

// wgpuCommandEncoder records one frame's commands.
type wgpuCommandEncoder struct {
	encoder *wgpu.CommandEncoder
}

func (e *wgpuCommandEncoder) BeginRenderPass(desc render_graph.RenderPassDesc) (render_graph.RenderPassEncoder, error) {
	rpd, err := toWGPURenderPassDescriptor(desc)
	if err != nil {
		return nil, err
	}
	return &wgpuRenderPass{pass: e.encoder.BeginRenderPass(rpd)}, nil
}

func (e *wgpuCommandEncoder) BeginComputePass(label string) (render_graph.ComputePassEncoder, error) {
	return &wgpuComputePass{pass: e.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})}, nil
}

func (e *wgpuCommandEncoder) CopyBufferToBuffer(src render_graph.Buffer, srcOffset uint64, dst render_graph.Buffer, dstOffset uint64, size uint64) error {
	s, err := unwrapBuffer(src)
	if err != nil {
		return err
	}
	d, err := unwrapBuffer(dst)
	if err != nil {
		return err
	}
	e.encoder.CopyBufferToBuffer(s, srcOffset, d, dstOffset, size)
	return nil
}

func (e *wgpuCommandEncoder) Finish(label string) (render_graph.CommandBuffer, error) {
	cb, err := e.encoder.Finish(&wgpu.CommandBufferDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBuffer{commands: cb}, nil
}

func (e *wgpuCommandEncoder) Release() {
	e.encoder.Release()
}

type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuRenderPass) SetPipeline(pipeline any) error {
	rp, ok := pipeline.(*wgpu.RenderPipeline)
	if !ok {
		return fmt.Errorf("%w: render pipeline %T", ErrForeignObject, pipeline)
	}
	p.pass.SetPipeline(rp)
	return nil
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group any, dynamicOffsets []uint32) error {
	bg, ok := group.(*wgpu.BindGroup)
	if !ok {
		return fmt.Errorf("%w: bind group %T", ErrForeignObject, group)
	}
	p.pass.SetBindGroup(index, bg, dynamicOffsets)
	return nil
}

// SetVertexBuffer ignores buffers that are not backed by wgpu.
func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buffer render_graph.Buffer, offset, size uint64) {
	if buf, err := unwrapBuffer(buffer); err == nil {
		p.pass.SetVertexBuffer(slot, buf, offset, toWGPUSize(size))
	}
}

// SetIndexBuffer ignores buffers that are not backed by wgpu.
func (p *wgpuRenderPass) SetIndexBuffer(buffer render_graph.Buffer, format render_graph.IndexFormat, offset, size uint64) {
	if buf, err := unwrapBuffer(buffer); err == nil {
		p.pass.SetIndexBuffer(buf, toWGPUIndexFormat(format), offset, toWGPUSize(size))
	}
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *wgpuRenderPass) End() error {
	p.pass.End()
	return nil
}

type wgpuComputePass struct {
	pass *wgpu.ComputePassEncoder
}

func (p *wgpuComputePass) SetPipeline(pipeline any) error {
	cp, ok := pipeline.(*wgpu.ComputePipeline)
	if !ok {
		return fmt.Errorf("%w: compute pipeline %T", ErrForeignObject, pipeline)
	}
	p.pass.SetPipeline(cp)
	return nil
}

func (p *wgpuComputePass) SetBindGroup(index uint32, group any, dynamicOffsets []uint32) error {
	bg, ok := group.(*wgpu.BindGroup)
	if !ok {
		return fmt.Errorf("%w: bind group %T", ErrForeignObject, group)
	}
	p.pass.SetBindGroup(index, bg, dynamicOffsets)
	return nil
}

func (p *wgpuComputePass) DispatchWorkgroups(x, y, z uint32) {
	p.pass.DispatchWorkgroups(x, y, z)
}

func (p *wgpuComputePass) End() error {
	p.pass.End()
	return nil
}
