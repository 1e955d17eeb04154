package render_graph

import (
	"log/slog"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// RenderGraphBuilderOption is a functional option applied to a graph during construction via NewRenderGraph.
type RenderGraphBuilderOption func(*renderGraph)

// WithLabel sets the debug label used for the frame encoder, command buffer, and pooled resources.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - RenderGraphBuilderOption: a function that applies the label option to a graph
func WithLabel(label string) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		g.label = label
	}
}

// WithStrictWriters makes Compile reject a resource handle written by more than one node with
// ErrMultipleWriters instead of letting the last declared writer win.
//
// Parameters:
//   - strict: true to reject multiple writers
//
// Returns:
//   - RenderGraphBuilderOption: a function that applies the strict writers option to a graph
func WithStrictWriters(strict bool) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		g.strictWriters = strict
	}
}

// WithClearColor sets the color that render pass color attachments clear to. Defaults to opaque black.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RenderGraphBuilderOption: a function that applies the clear color option to a graph
func WithClearColor(c Color) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		g.clearColor = c
	}
}

// WithDepthClearValue sets the value that depth attachments clear to. Defaults to 1.0.
//
// Parameters:
//   - v: the depth clear value
//
// Returns:
//   - RenderGraphBuilderOption: a function that applies the depth clear option to a graph
func WithDepthClearValue(v float32) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		g.depthClearValue = v
	}
}

// WithReadbackWorkers sets how many workers resolve readback tickets after submission when no
// shared pool is supplied. Values below 1 are clamped to 1.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - RenderGraphBuilderOption: a function that applies the readback workers option to a graph
func WithReadbackWorkers(n int) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		g.readbackWorkers = max(n, 1)
	}
}

// WithReadbackPool resolves readback tickets on a caller owned worker pool, which lets the pool be
// reused across frames.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - RenderGraphBuilderOption: a function that applies the readback pool option to a graph
func WithReadbackPool(pool worker.DynamicWorkerPool) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		g.readbackPool = pool
	}
}

// WithLogger overrides the package logger for this graph.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - RenderGraphBuilderOption: a function that applies the logger option to a graph
func WithLogger(l *slog.Logger) RenderGraphBuilderOption {
	return func(g *renderGraph) {
		g.logger = l
	}
}
