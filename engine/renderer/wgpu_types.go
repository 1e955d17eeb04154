package renderer

import (
	"github.com/Carmen-Shannon/oxy-framegraph/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

var bufferUsages = []struct {
	graph render_graph.BufferUsage
	wgpu  wgpu.BufferUsage
}{
	{render_graph.BufferUsageMapRead, wgpu.BufferUsageMapRead},
	{render_graph.BufferUsageMapWrite, wgpu.BufferUsageMapWrite},
	{render_graph.BufferUsageCopySrc, wgpu.BufferUsageCopySrc},
	{render_graph.BufferUsageCopyDst, wgpu.BufferUsageCopyDst},
	{render_graph.BufferUsageIndex, wgpu.BufferUsageIndex},
	{render_graph.BufferUsageVertex, wgpu.BufferUsageVertex},
	{render_graph.BufferUsageUniform, wgpu.BufferUsageUniform},
	{render_graph.BufferUsageStorage, wgpu.BufferUsageStorage},
	{render_graph.BufferUsageIndirect, wgpu.BufferUsageIndirect},
}

var textureUsages = []struct {
	graph render_graph.TextureUsage
	wgpu  wgpu.TextureUsage
}{
	{render_graph.TextureUsageCopySrc, wgpu.TextureUsageCopySrc},
	{render_graph.TextureUsageCopyDst, wgpu.TextureUsageCopyDst},
	{render_graph.TextureUsageTextureBinding, wgpu.TextureUsageTextureBinding},
	{render_graph.TextureUsageStorageBinding, wgpu.TextureUsageStorageBinding},
	{render_graph.TextureUsageRenderAttachment, wgpu.TextureUsageRenderAttachment},
}

var textureFormats = map[render_graph.TextureFormat]wgpu.TextureFormat{
	render_graph.TextureFormatRGBA8Unorm:          wgpu.TextureFormatRGBA8Unorm,
	render_graph.TextureFormatRGBA8UnormSrgb:      wgpu.TextureFormatRGBA8UnormSrgb,
	render_graph.TextureFormatBGRA8Unorm:          wgpu.TextureFormatBGRA8Unorm,
	render_graph.TextureFormatBGRA8UnormSrgb:      wgpu.TextureFormatBGRA8UnormSrgb,
	render_graph.TextureFormatRGBA16Float:         wgpu.TextureFormatRGBA16Float,
	render_graph.TextureFormatRGBA32Float:         wgpu.TextureFormatRGBA32Float,
	render_graph.TextureFormatR32Float:            wgpu.TextureFormatR32Float,
	render_graph.TextureFormatDepth24Plus:         wgpu.TextureFormatDepth24Plus,
	render_graph.TextureFormatDepth24PlusStencil8: wgpu.TextureFormatDepth24PlusStencil8,
	render_graph.TextureFormatDepth32Float:        wgpu.TextureFormatDepth32Float,
}

func toWGPUBufferUsage(usage render_graph.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	for _, u := range bufferUsages {
		if usage&u.graph != 0 {
			out |= u.wgpu
		}
	}
	return out
}

func toWGPUTextureUsage(usage render_graph.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	for _, u := range textureUsages {
		if usage&u.graph != 0 {
			out |= u.wgpu
		}
	}
	return out
}

func toWGPUTextureFormat(format render_graph.TextureFormat) wgpu.TextureFormat {
	if f, ok := textureFormats[format]; ok {
		return f
	}
	return wgpu.TextureFormatUndefined
}

// fromWGPUTextureFormat maps a backend format back to the graph format, reporting false for
// formats the graph has no name for.
func fromWGPUTextureFormat(format wgpu.TextureFormat) (render_graph.TextureFormat, bool) {
	for graph, f := range textureFormats {
		if f == format {
			return graph, true
		}
	}
	return render_graph.TextureFormatUndefined, false
}

func toWGPUTextureDimension(dim render_graph.TextureDimension) wgpu.TextureDimension {
	switch dim {
	case render_graph.TextureDimension1D:
		return wgpu.TextureDimension1D
	case render_graph.TextureDimension3D:
		return wgpu.TextureDimension3D
	default:
		return wgpu.TextureDimension2D
	}
}

func toWGPUIndexFormat(format render_graph.IndexFormat) wgpu.IndexFormat {
	if format == render_graph.IndexFormatUint16 {
		return wgpu.IndexFormatUint16
	}
	return wgpu.IndexFormatUint32
}

func toWGPUSize(size uint64) uint64 {
	if size == render_graph.WholeSize {
		return wgpu.WholeSize
	}
	return size
}

func toWGPULoadOp(load bool) wgpu.LoadOp {
	if load {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func toWGPURenderPassDescriptor(desc render_graph.RenderPassDesc) (*wgpu.RenderPassDescriptor, error) {
	out := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: make([]wgpu.RenderPassColorAttachment, 0, len(desc.ColorAttachments)),
	}
	for _, a := range desc.ColorAttachments {
		view, err := unwrapTextureView(a.View)
		if err != nil {
			return nil, err
		}
		out.ColorAttachments = append(out.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  toWGPULoadOp(a.Load),
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: a.ClearValue.R, G: a.ClearValue.G, B: a.ClearValue.B, A: a.ClearValue.A,
			},
		})
	}
	if d := desc.DepthStencil; d != nil {
		view, err := unwrapTextureView(d.View)
		if err != nil {
			return nil, err
		}
		out.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     toWGPULoadOp(d.Load),
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: d.ClearValue,
		}
	}
	return out, nil
}
