package pipeline

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-framegraph/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineFactory creates and frees the backend objects behind pipeline descriptions.
type pipelineFactory interface {
	createRender(p Pipeline, colorFormats []wgpu.TextureFormat) (any, error)
	createCompute(p Pipeline) (any, error)
	release(object any)
}

type registeredPipeline struct {
	description Pipeline
	object      any
}

// manager is the implementation of the Manager interface.
type manager struct {
	mu *sync.Mutex

	factory   pipelineFactory
	pipelines map[string]registeredPipeline

	defaultColorFormat wgpu.TextureFormat
	logger             *slog.Logger
}

// Manager owns the GPU pipelines of an application. Pipelines are registered once, outside the
// frame loop, and resolved by key whenever a render graph compiles a pass that uses them.
// Manager implements render_graph.PipelineResolver.
type Manager interface {
	render_graph.PipelineResolver

	// Register validates each pipeline description and creates its backend object. A key that is
	// already registered is skipped.
	//
	// Parameters:
	//   - pipelines: the pipeline descriptions to register
	//
	// Returns:
	//   - error: the first validation or creation error, wrapped with the pipeline key
	Register(pipelines ...Pipeline) error

	// Pipeline retrieves the registered description for key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - Pipeline: the registered description
	//   - bool: whether a pipeline is registered under key
	Pipeline(key string) (Pipeline, bool)

	// Keys returns the registered pipeline keys in sorted order.
	//
	// Returns:
	//   - []string: the registered keys
	Keys() []string

	// BindGroupLayout returns the bind group layout the backend derived for group of the
	// pipeline registered under key. Bind groups created from it can be set inside pass commands.
	//
	// Parameters:
	//   - key: the pipeline key
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the derived layout
	//   - error: an error wrapping render_graph.ErrUnknownPipeline if nothing is registered for key
	BindGroupLayout(key string, group uint32) (*wgpu.BindGroupLayout, error)

	// Release frees every registered pipeline object.
	Release()
}

var _ Manager = &manager{}

// NewManager creates a pipeline Manager that creates its pipelines on the given wgpu device.
//
// Parameters:
//   - device: the wgpu device pipelines are created on
//   - options: optional builder options
//
// Returns:
//   - Manager: the created manager
func NewManager(device *wgpu.Device, options ...ManagerBuilderOption) Manager {
	return newManager(&wgpuPipelineFactory{device: device}, options...)
}

func newManager(factory pipelineFactory, options ...ManagerBuilderOption) *manager {
	m := &manager{
		mu:                 &sync.Mutex{},
		factory:            factory,
		pipelines:          make(map[string]registeredPipeline),
		defaultColorFormat: wgpu.TextureFormatBGRA8Unorm,
		logger:             render_graph.Logger(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *manager) Register(pipelines ...Pipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := m.pipelines[key]; exists {
			continue
		}
		if err := p.Validate(); err != nil {
			return err
		}

		var (
			object any
			err    error
		)
		switch p.Type() {
		case PipelineTypeRender:
			formats := p.ColorFormats()
			if len(formats) == 0 {
				formats = []wgpu.TextureFormat{m.defaultColorFormat}
			}
			object, err = m.factory.createRender(p, formats)
		case PipelineTypeCompute:
			object, err = m.factory.createCompute(p)
		}
		if err != nil {
			return fmt.Errorf("pipeline %s: %w", key, err)
		}

		m.pipelines[key] = registeredPipeline{description: p, object: object}
		m.logger.Debug("pipeline registered", "key", key, "kind", p.Desc().Kind)
	}
	return nil
}

func (m *manager) ResolvePipeline(desc render_graph.PipelineDesc) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	registered, ok := m.pipelines[desc.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", render_graph.ErrUnknownPipeline, desc.Key)
	}
	if kind := registered.description.Desc().Kind; kind != desc.Kind {
		return nil, fmt.Errorf("%w: %s is a %s pipeline, not %s", render_graph.ErrKindMismatch, desc.Key, kind, desc.Kind)
	}
	return registered.object, nil
}

func (m *manager) Pipeline(key string) (Pipeline, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	registered, ok := m.pipelines[key]
	return registered.description, ok
}

func (m *manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.pipelines))
	for key := range m.pipelines {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func (m *manager) BindGroupLayout(key string, group uint32) (*wgpu.BindGroupLayout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	registered, ok := m.pipelines[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", render_graph.ErrUnknownPipeline, key)
	}
	switch object := registered.object.(type) {
	case *wgpu.RenderPipeline:
		return object.GetBindGroupLayout(group), nil
	case *wgpu.ComputePipeline:
		return object.GetBindGroupLayout(group), nil
	default:
		return nil, fmt.Errorf("pipeline %s: no wgpu pipeline object", key)
	}
}

func (m *manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, registered := range m.pipelines {
		m.factory.release(registered.object)
		delete(m.pipelines, key)
	}
}
