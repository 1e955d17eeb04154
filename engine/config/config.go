package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-framegraph/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/window"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ErrInvalidConfig is wrapped by every validation error returned from Load and Parse.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the decoded engine configuration file. Every block is optional; a missing block or
// attribute keeps the default of the component it configures.
type Config struct {
	Window   *WindowConfig   `hcl:"window,block"`
	Renderer *RendererConfig `hcl:"renderer,block"`
	Graph    *GraphConfig    `hcl:"graph,block"`
	Log      *LogConfig      `hcl:"log,block"`
	Engine   *EngineConfig   `hcl:"engine,block"`
}

// WindowConfig configures the window the engine presents to.
type WindowConfig struct {
	Title         *string `hcl:"title,optional"`
	Width         *int    `hcl:"width,optional"`
	Height        *int    `hcl:"height,optional"`
	MinWidth      *int    `hcl:"min_width,optional"`
	MinHeight     *int    `hcl:"min_height,optional"`
	MaxWidth      *int    `hcl:"max_width,optional"`
	MaxHeight     *int    `hcl:"max_height,optional"`
	Resizable     *bool   `hcl:"resizable,optional"`
	CloseOnEscape *bool   `hcl:"close_on_escape,optional"`
}

// RendererConfig configures the surface and adapter selection.
type RendererConfig struct {
	PresentMode   *string `hcl:"present_mode,optional"`
	ForceSoftware *bool   `hcl:"force_software,optional"`
}

// GraphConfig configures every per-frame render graph.
type GraphConfig struct {
	Label           *string   `hcl:"label,optional"`
	StrictWriters   *bool     `hcl:"strict_writers,optional"`
	ClearColor      []float64 `hcl:"clear_color,optional"`
	DepthClear      *float64  `hcl:"depth_clear,optional"`
	ReadbackWorkers *int      `hcl:"readback_workers,optional"`
}

// LogConfig configures the slog logger shared by the engine packages.
type LogConfig struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

// EngineConfig configures the frame loop.
type EngineConfig struct {
	FrameLimit       *float64 `hcl:"frame_limit,optional"`
	Profiling        *bool    `hcl:"profiling,optional"`
	ProfilerInterval *string  `hcl:"profiler_interval,optional"`
}

// Load parses and validates the HCL configuration file at path.
//
// Parameters:
//   - path: the path of the .hcl file
//
// Returns:
//   - *Config: the decoded configuration
//   - error: an error if the file cannot be parsed or decoded, or wraps ErrInvalidConfig
func Load(path string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	return decode(file, path)
}

// Parse parses and validates HCL configuration source.
//
// Parameters:
//   - src: the HCL source
//   - filename: the name used in diagnostics
//
// Returns:
//   - *Config: the decoded configuration
//   - error: an error if the source cannot be parsed or decoded, or wraps ErrInvalidConfig
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}
	return decode(file, filename)
}

func decode(file *hcl.File, filename string) (*Config, error) {
	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config %s: %w", filename, diags)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	return &cfg, nil
}

// Validate checks values the decoder cannot, such as enum strings and durations.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig describing the first invalid value
func (c *Config) Validate() error {
	if r := c.Renderer; r != nil && r.PresentMode != nil {
		if _, ok := renderer.ParsePresentMode(*r.PresentMode); !ok {
			return fmt.Errorf("%w: renderer.present_mode %q, want \"vsync\" or \"uncapped\"", ErrInvalidConfig, *r.PresentMode)
		}
	}
	if g := c.Graph; g != nil {
		if g.ClearColor != nil && len(g.ClearColor) != 4 {
			return fmt.Errorf("%w: graph.clear_color needs 4 components, got %d", ErrInvalidConfig, len(g.ClearColor))
		}
		if g.ReadbackWorkers != nil && *g.ReadbackWorkers < 1 {
			return fmt.Errorf("%w: graph.readback_workers must be at least 1", ErrInvalidConfig)
		}
	}
	if l := c.Log; l != nil {
		if l.Level != nil {
			if _, err := parseLevel(*l.Level); err != nil {
				return err
			}
		}
		if l.Format != nil && *l.Format != "text" && *l.Format != "json" {
			return fmt.Errorf("%w: log.format %q, want \"text\" or \"json\"", ErrInvalidConfig, *l.Format)
		}
	}
	if e := c.Engine; e != nil && e.ProfilerInterval != nil {
		if _, err := c.profilerInterval(); err != nil {
			return err
		}
	}
	return nil
}

// WindowOptions converts the window block into window builder options.
//
// Returns:
//   - []window.WindowBuilderOption: the options, empty when the block is absent
func (c *Config) WindowOptions() []window.WindowBuilderOption {
	w := c.Window
	if w == nil {
		return nil
	}
	var opts []window.WindowBuilderOption
	if w.Title != nil {
		opts = append(opts, window.WithTitle(*w.Title))
	}
	if w.Width != nil {
		opts = append(opts, window.WithWidth(*w.Width))
	}
	if w.Height != nil {
		opts = append(opts, window.WithHeight(*w.Height))
	}
	if w.MinWidth != nil {
		opts = append(opts, window.WithMinWidth(*w.MinWidth))
	}
	if w.MinHeight != nil {
		opts = append(opts, window.WithMinHeight(*w.MinHeight))
	}
	if w.MaxWidth != nil {
		opts = append(opts, window.WithMaxWidth(*w.MaxWidth))
	}
	if w.MaxHeight != nil {
		opts = append(opts, window.WithMaxHeight(*w.MaxHeight))
	}
	if w.Resizable != nil {
		opts = append(opts, window.WithResizable(*w.Resizable))
	}
	if w.CloseOnEscape != nil {
		opts = append(opts, window.WithCloseOnEscape(*w.CloseOnEscape))
	}
	return opts
}

// RendererOptions converts the renderer block into renderer builder options.
//
// Returns:
//   - []renderer.RendererBuilderOption: the options, empty when the block is absent
func (c *Config) RendererOptions() []renderer.RendererBuilderOption {
	r := c.Renderer
	if r == nil {
		return nil
	}
	var opts []renderer.RendererBuilderOption
	if r.PresentMode != nil {
		if mode, ok := renderer.ParsePresentMode(*r.PresentMode); ok {
			opts = append(opts, renderer.WithPresentMode(mode))
		}
	}
	if r.ForceSoftware != nil {
		opts = append(opts, renderer.WithForceSoftwareRenderer(*r.ForceSoftware))
	}
	return opts
}

// GraphOptions converts the graph block into render graph builder options.
//
// Returns:
//   - []render_graph.RenderGraphBuilderOption: the options, empty when the block is absent
func (c *Config) GraphOptions() []render_graph.RenderGraphBuilderOption {
	g := c.Graph
	if g == nil {
		return nil
	}
	var opts []render_graph.RenderGraphBuilderOption
	if g.Label != nil {
		opts = append(opts, render_graph.WithLabel(*g.Label))
	}
	if g.StrictWriters != nil {
		opts = append(opts, render_graph.WithStrictWriters(*g.StrictWriters))
	}
	if len(g.ClearColor) == 4 {
		opts = append(opts, render_graph.WithClearColor(render_graph.Color{
			R: g.ClearColor[0], G: g.ClearColor[1], B: g.ClearColor[2], A: g.ClearColor[3],
		}))
	}
	if g.DepthClear != nil {
		opts = append(opts, render_graph.WithDepthClearValue(float32(*g.DepthClear)))
	}
	if g.ReadbackWorkers != nil {
		opts = append(opts, render_graph.WithReadbackWorkers(*g.ReadbackWorkers))
	}
	return opts
}

// NewLogger builds the slog logger described by the log block. Without a block it logs Info and
// above as text.
//
// Parameters:
//   - out: the destination of log records
//
// Returns:
//   - *slog.Logger: the logger
func (c *Config) NewLogger(out io.Writer) *slog.Logger {
	level, format := slog.LevelInfo, "text"
	if l := c.Log; l != nil {
		if l.Level != nil {
			// Validate already rejected unknown levels.
			level, _ = parseLevel(*l.Level)
		}
		if l.Format != nil {
			format = *l.Format
		}
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(out, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts))
}

// FrameLimit returns the configured render frame cap in frames per second, 0 meaning uncapped.
//
// Returns:
//   - float64: the frame limit
func (c *Config) FrameLimit() float64 {
	if c.Engine == nil || c.Engine.FrameLimit == nil {
		return 0
	}
	return *c.Engine.FrameLimit
}

// Profiling reports whether the frame profiler is enabled and its reporting interval.
//
// Returns:
//   - bool: true when profiling is enabled
//   - time.Duration: the reporting interval, 0 for the profiler default
func (c *Config) Profiling() (bool, time.Duration) {
	if c.Engine == nil {
		return false, 0
	}
	interval, _ := c.profilerInterval()
	return c.Engine.Profiling != nil && *c.Engine.Profiling, interval
}

func (c *Config) profilerInterval() (time.Duration, error) {
	if c.Engine == nil || c.Engine.ProfilerInterval == nil {
		return 0, nil
	}
	d, err := time.ParseDuration(*c.Engine.ProfilerInterval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: engine.profiler_interval %q is not a positive duration", ErrInvalidConfig, *c.Engine.ProfilerInterval)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, s)
	}
	return level, nil
}
