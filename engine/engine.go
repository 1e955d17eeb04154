package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/profiler"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/window"
)

// ErrNoApp is returned by NewEngine when no UserApp is supplied.
var ErrNoApp = errors.New("engine: no user app")

// FrameInfo describes the frame a UserApp is building.
type FrameInfo struct {
	// Index counts attempted frames from 0, including skipped ones.
	Index uint64

	// DeltaTime is the time since the previous frame in seconds.
	DeltaTime float32

	// Elapsed is the time since the render loop started.
	Elapsed time.Duration

	// Width and Height are the surface size in pixels.
	Width  int
	Height int

	// Surface is the handle of the imported swapchain texture in this frame's graph.
	Surface render_graph.ResourceHandle

	// SurfaceFormat is the texture format of Surface.
	SurfaceFormat render_graph.TextureFormat
}

// InitContext is handed to UserApp.Init once the window and renderer exist.
type InitContext struct {
	Renderer renderer.Renderer
	Window   window.Window
	Logger   *slog.Logger
}

// UserApp is the application driven by the engine. Update declares the frame's passes on a fresh
// render graph; the engine compiles, submits, and presents it.
type UserApp interface {
	// Init runs once before the first frame, on the thread that created the renderer.
	//
	// Parameters:
	//   - ctx: the renderer, window, and logger of the engine
	//
	// Returns:
	//   - error: an error aborts NewEngine
	Init(ctx *InitContext) error

	// Update declares the resources and passes of one frame.
	//
	// Parameters:
	//   - graph: the empty render graph of the frame, with the surface already imported
	//   - frame: timing and surface information of the frame
	//
	// Returns:
	//   - error: an error skips the frame
	Update(graph render_graph.RenderGraph, frame FrameInfo) error
}

// frameTarget is the part of renderer.Renderer the frame loop drives.
type frameTarget interface {
	Device() render_graph.Device
	SurfaceFormat() render_graph.TextureFormat
	ImportFrame(g render_graph.RenderGraph) (render_graph.ResourceHandle, error)
	Present()
	DiscardFrame()
}

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	mu      *sync.Mutex
	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	app      UserApp
	window   window.Window
	renderer renderer.Renderer
	target   frameTarget
	resolver render_graph.PipelineResolver
	logger   *slog.Logger

	windowOptions   []window.WindowBuilderOption
	rendererOptions []renderer.RendererBuilderOption
	graphOptions    []render_graph.RenderGraphBuilderOption

	readbackPool    worker.DynamicWorkerPool
	readbackWorkers int

	profiler         *profiler.Profiler
	profilingEnabled bool
	profilerInterval time.Duration

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	frameIndex       uint64
	startTime        time.Time
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It owns the window and renderer, and runs one render graph per frame.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer frames are compiled against.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// EnableProfiler enables frame statistics output to the log.
	EnableProfiler()

	// DisableProfiler disables frame statistics output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback will be called at this rate for application logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for simulation and input processing that should not depend on the frame rate.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the engine loops and blocks until the window closes or Quit is called. The
	// renderer and window are released before Run returns.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates the window and renderer, then calls app.Init.
//
// Parameters:
//   - app: the application building each frame's render graph
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: ErrNoApp, or an error if the window, the renderer, or app.Init failed
func NewEngine(app UserApp, options ...EngineBuilderOption) (Engine, error) {
	if app == nil {
		return nil, ErrNoApp
	}
	e := newEngine(app, options...)

	if e.window == nil {
		w, err := window.NewWindow(e.windowOptions...)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.window = w
	}

	if e.renderer == nil {
		opts := append([]renderer.RendererBuilderOption{renderer.WithLogger(e.logger)}, e.rendererOptions...)
		r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, e.window, opts...)
		if err != nil {
			_ = e.window.Close()
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.renderer = r
	}
	e.target = e.renderer
	e.resolver = e.renderer.Pipelines()

	e.window.SetResizeCallback(func(width, height int) {
		if err := e.renderer.Resize(width, height); err != nil {
			e.logger.Warn("engine: resize failed", "width", width, "height", height, "error", err)
		}
	})

	if err := app.Init(&InitContext{Renderer: e.renderer, Window: e.window, Logger: e.logger}); err != nil {
		e.release()
		return nil, fmt.Errorf("engine: init app: %w", err)
	}
	return e, nil
}

// newEngine applies options without creating any platform objects.
func newEngine(app UserApp, options ...EngineBuilderOption) *engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		mu:              &sync.Mutex{},
		quitChannel:     make(chan struct{}),
		app:             app,
		logger:          render_graph.Logger(),
		readbackWorkers: 2,
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger), profiler.WithInterval(e.profilerInterval))
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.handle()
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.release()
}

// Quit signals all engine goroutines to stop and closes the window message loop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines, and stops the window loop on quit.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleTick()
	go e.handleRender()

	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.RequestClose()
		default:
		}
	})
}

func (e *engine) release() {
	if e.renderer != nil {
		e.renderer.Release()
	}
	if e.window != nil {
		_ = e.window.Close()
	}
}

// handleTick runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// A frame that fails is logged and skipped; the loop keeps running.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine: render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	e.startTime = time.Now()
	lastRender := e.startTime

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			stats, err := e.renderFrame(dt)
			if err != nil {
				e.logger.Warn("engine: frame skipped", "frame", e.frameIndex-1, "error", err)
			}
			if e.profilingEnabled {
				if err != nil {
					e.profiler.Skip()
				} else {
					e.profiler.Tick(stats)
				}
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame runs one frame: import the surface, let the app declare passes, compile, submit,
// present, and release. The surface is discarded when any step before Present fails.
func (e *engine) renderFrame(dt float32) (render_graph.FrameStats, error) {
	info := FrameInfo{
		Index:         e.frameIndex,
		DeltaTime:     dt,
		Elapsed:       time.Since(e.startTime),
		SurfaceFormat: e.target.SurfaceFormat(),
	}
	e.frameIndex++

	opts := make([]render_graph.RenderGraphBuilderOption, 0, len(e.graphOptions)+3)
	opts = append(opts,
		render_graph.WithLabel(fmt.Sprintf("frame %d", info.Index)),
		render_graph.WithLogger(e.logger),
	)
	if e.readbackPool != nil {
		opts = append(opts, render_graph.WithReadbackPool(e.readbackPool))
	} else {
		// Workers the frame starts are stopped by frame.Release.
		opts = append(opts, render_graph.WithReadbackWorkers(e.readbackWorkers))
	}
	opts = append(opts, e.graphOptions...)
	g := render_graph.NewRenderGraph(opts...)

	surface, err := e.target.ImportFrame(g)
	if err != nil {
		return render_graph.FrameStats{}, err
	}
	info.Surface = surface
	if desc, ok := g.TextureDesc(surface); ok {
		info.Width, info.Height = int(desc.Width), int(desc.Height)
	}

	if err := e.app.Update(g, info); err != nil {
		e.target.DiscardFrame()
		return render_graph.FrameStats{}, fmt.Errorf("update: %w", err)
	}

	frame, err := g.Compile(e.target.Device(), e.resolver)
	if err != nil {
		e.target.DiscardFrame()
		return render_graph.FrameStats{}, fmt.Errorf("compile: %w", err)
	}
	defer frame.Release()

	if err := frame.Submit(); err != nil {
		e.target.DiscardFrame()
		return render_graph.FrameStats{}, fmt.Errorf("submit: %w", err)
	}
	e.target.Present()
	return frame.Stats(), nil
}

// EnableProfiler enables frame statistics output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables frame statistics output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if !running {
		e.engineTickRate = newRate
		return
	}
	// Non-blocking send - if the channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
