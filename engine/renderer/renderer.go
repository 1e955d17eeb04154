package renderer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-framegraph/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	pipelines   pipeline.Manager
	logger      *slog.Logger

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingPipelines     []pipeline.Pipeline
}

// SurfaceFrame is the swapchain image acquired for one frame.
type SurfaceFrame struct {
	Texture render_graph.Texture
	View    render_graph.TextureView
	Desc    render_graph.TextureDesc
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns the GPU device, the window surface and the pipeline Manager. Each frame the
// application builds a render graph, compiles it against Device(), imports the acquired surface
// texture as the presentation target, submits the compiled frame and finally calls Present.
type Renderer interface {
	// Device returns the render_graph.Device render graphs compile against.
	//
	// Returns:
	//   - render_graph.Device: the wgpu backed device
	Device() render_graph.Device

	// WGPUDevice returns the raw wgpu device, for creating bind groups and other objects the
	// render graph does not manage.
	//
	// Returns:
	//   - *wgpu.Device: the wgpu device
	WGPUDevice() *wgpu.Device

	// Pipelines returns the pipeline Manager, which is also the graph's PipelineResolver.
	//
	// Returns:
	//   - pipeline.Manager: the pipeline manager
	Pipelines() pipeline.Manager

	// RegisterPipelines registers pipeline descriptions with the pipeline Manager.
	//
	// Parameters:
	//   - pipelines: the pipelines to register
	//
	// Returns:
	//   - error: the first registration error
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// SurfaceFormat returns the graph texture format of the surface, or TextureFormatUndefined
	// when the surface uses a format the graph has no name for.
	//
	// Returns:
	//   - render_graph.TextureFormat: the surface format
	SurfaceFormat() render_graph.TextureFormat

	// AcquireFrame acquires the next surface texture. The returned objects stay owned by the
	// renderer; import them into a graph with RenderGraph.ImportTexture or ImportFrame.
	//
	// Returns:
	//   - SurfaceFrame: the surface texture, its view and its descriptor
	//   - error: an error if no surface texture could be acquired
	AcquireFrame() (SurfaceFrame, error)

	// ImportFrame acquires the next surface texture and imports it into g.
	//
	// Parameters:
	//   - g: the render graph of the current frame
	//
	// Returns:
	//   - render_graph.ResourceHandle: the handle of the surface texture in g
	//   - error: an error if no surface texture could be acquired
	ImportFrame(g render_graph.RenderGraph) (render_graph.ResourceHandle, error)

	// Present presents the acquired surface texture. Call it after CompiledFrame.Submit.
	Present()

	// DiscardFrame gives the acquired surface texture back without presenting it, such as when the
	// frame failed to compile.
	DiscardFrame()

	// Resize reconfigures the surface, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	Resize(width, height int) error

	// SetPresentMode changes the present mode and reconfigures the surface.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	//
	// Returns:
	//   - error: an error if the surface could not be configured
	SetPresentMode(mode PresentMode) error

	// Release frees the pipelines, the device and the surface.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer presenting to the given window's surface.
//
// Parameters:
//   - backendType: the GPU backend implementation to use
//   - w: the window providing the surface descriptor and initial size
//   - options: optional builder options
//
// Returns:
//   - Renderer: the created renderer
//   - error: an error if the device, the surface or a pre-registered pipeline could not be set up
func NewRenderer(backendType RendererBackendType, w window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		logger:      render_graph.Logger(),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(w.SurfaceDescriptor(), r.forceFallbackAdapter)
	}
	if err != nil {
		return nil, err
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if err := r.backend.ConfigureSurface(w.Width(), w.Height()); err != nil {
		r.backend.Release()
		return nil, err
	}

	r.pipelines = pipeline.NewManager(r.backend.Device(),
		pipeline.WithDefaultColorFormat(r.backend.SurfaceFormat()),
		pipeline.WithLogger(r.logger),
	)
	if err := r.pipelines.Register(r.pendingPipelines...); err != nil {
		r.Release()
		return nil, err
	}
	r.pendingPipelines = nil

	r.logger.Info("renderer ready", "width", w.Width(), "height", w.Height(), "surface_format", r.SurfaceFormat())
	return r, nil
}

func (r *renderer) Device() render_graph.Device {
	return r.backend.GraphDevice()
}

func (r *renderer) WGPUDevice() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Pipelines() pipeline.Manager {
	return r.pipelines
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	return r.pipelines.Register(pipelines...)
}

func (r *renderer) SurfaceFormat() render_graph.TextureFormat {
	format, _ := fromWGPUTextureFormat(r.backend.SurfaceFormat())
	return format
}

func (r *renderer) AcquireFrame() (SurfaceFrame, error) {
	tex, view, err := r.backend.AcquireFrame()
	if err != nil {
		return SurfaceFrame{}, fmt.Errorf("renderer: acquire frame: %w", err)
	}
	width, height := r.backend.SurfaceSize()
	texture, textureView := WrapTexture(tex, view)
	return SurfaceFrame{
		Texture: texture,
		View:    textureView,
		Desc: render_graph.TextureDesc{
			Width:  width,
			Height: height,
			Format: r.SurfaceFormat(),
			Usage:  render_graph.TextureUsageRenderAttachment,
		},
	}, nil
}

func (r *renderer) ImportFrame(g render_graph.RenderGraph) (render_graph.ResourceHandle, error) {
	frame, err := r.AcquireFrame()
	if err != nil {
		return render_graph.ResourceHandle{}, err
	}
	return g.ImportTexture(frame.Desc, frame.Texture, frame.View), nil
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) DiscardFrame() {
	r.backend.DiscardFrame()
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.SetPresentMode(mode)
	width, height := r.backend.SurfaceSize()
	return r.backend.ConfigureSurface(int(width), int(height))
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pipelines != nil {
		r.pipelines.Release()
	}
	r.backend.Release()
}
