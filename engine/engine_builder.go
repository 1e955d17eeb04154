package engine

import (
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/config"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables frame statistics output.
//
// Parameters:
//   - enabled: if true, enables the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfilerInterval sets how often the profiler logs a report. Values <= 0 keep the default of 1 second.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfilerInterval(interval time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.profilerInterval = interval
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally. Window options are ignored when a window is supplied.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets a renderer created by the caller. It must present to the engine's window.
// Renderer options are ignored when a renderer is supplied.
//
// Parameters:
//   - r: a pre-configured Renderer instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithWindowOptions adds options for the window the engine creates.
//
// Parameters:
//   - options: the window builder options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindowOptions(options ...window.WindowBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.windowOptions = append(e.windowOptions, options...)
	}
}

// WithRendererOptions adds options for the renderer the engine creates.
//
// Parameters:
//   - options: the renderer builder options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}

// WithGraphOptions adds options applied to every per-frame render graph.
//
// Parameters:
//   - options: the render graph builder options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGraphOptions(options ...render_graph.RenderGraphBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.graphOptions = append(e.graphOptions, options...)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// WithLogger sets the logger of the engine, its renderer, its profiler, and every frame graph.
//
// Parameters:
//   - logger: the logger to use; nil keeps the render graph package logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithReadbackPool resolves the readback tickets of every frame on a caller owned worker pool. The
// engine never stops it.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithReadbackPool(pool worker.DynamicWorkerPool) EngineBuilderOption {
	return func(e *engine) {
		e.readbackPool = pool
	}
}

// WithReadbackWorkers sets how many readback workers each frame starts and stops again on release.
// Values below 1 are clamped to 1. Ignored when WithReadbackPool is used.
//
// Parameters:
//   - n: the worker count (default 2)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithReadbackWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		e.readbackWorkers = max(n, 1)
	}
}

// WithConfig applies a loaded configuration file. Options given after it override its values.
// The log block replaces the engine logger with one writing to stderr.
//
// Parameters:
//   - cfg: the decoded configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		if cfg == nil {
			return
		}
		if cfg.Log != nil {
			e.logger = cfg.NewLogger(os.Stderr)
		}
		e.windowOptions = append(e.windowOptions, cfg.WindowOptions()...)
		e.rendererOptions = append(e.rendererOptions, cfg.RendererOptions()...)
		e.graphOptions = append(e.graphOptions, cfg.GraphOptions()...)
		if limit := cfg.FrameLimit(); limit > 0 {
			e.renderFrameLimit = frameDuration(limit)
		}
		if enabled, interval := cfg.Profiling(); enabled {
			e.profilingEnabled = true
			e.profilerInterval = interval
		}
	}
}
