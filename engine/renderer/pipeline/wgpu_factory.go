package pipeline

import (
	"github.com/Carmen-Shannon/oxy-framegraph/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuPipelineFactory creates pipelines on a wgpu device. Pipeline layouts are left to the
// backend, which derives them from the shader bindings; Manager.BindGroupLayout exposes them.
type wgpuPipelineFactory struct {
	device *wgpu.Device
}

func (f *wgpuPipelineFactory) createRender(p Pipeline, colorFormats []wgpu.TextureFormat) (any, error) {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := f.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return nil, err
	}
	defer vs.Release()
	fs, err := f.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return nil, err
	}
	defer fs.Release()

	targets := make([]wgpu.ColorTargetState, len(colorFormats))
	for i, format := range colorFormats {
		targets[i] = wgpu.ColorTargetState{
			Format:    format,
			WriteMask: p.WriteMask(),
		}
		if p.BlendEnabled() {
			targets[i].Blend = p.BlendState()
		}
	}

	var depthStencil *wgpu.DepthStencilState
	if p.DepthFormat() != wgpu.TextureFormatUndefined {
		depthCompare := wgpu.CompareFunctionLess
		if !p.DepthTestEnabled() {
			depthCompare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:              p.DepthFormat(),
			DepthWriteEnabled:   p.DepthWriteEnabled(),
			DepthCompare:        depthCompare,
			DepthBias:           p.DepthBias(),
			DepthBiasSlopeScale: p.DepthBiasSlopeScale(),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	return f.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: p.PipelineKey() + " Render Pipeline",
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    p.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: p.SampleCount(),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
}

func (f *wgpuPipelineFactory) createCompute(p Pipeline) (any, error) {
	computeShader := p.Shader(shader.ShaderTypeCompute)
	module, err := f.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return nil, err
	}
	defer module.Release()

	return f.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: p.PipelineKey() + " Compute Pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
}

func (f *wgpuPipelineFactory) release(object any) {
	switch o := object.(type) {
	case *wgpu.RenderPipeline:
		o.Release()
	case *wgpu.ComputePipeline:
		o.Release()
	}
}
