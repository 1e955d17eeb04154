package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-framegraph/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-framegraph/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFactory struct {
	renders  map[string][]wgpu.TextureFormat
	computes []string
	released []any
	fail     error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{renders: make(map[string][]wgpu.TextureFormat)}
}

func (f *fakeFactory) createRender(p Pipeline, colorFormats []wgpu.TextureFormat) (any, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.renders[p.PipelineKey()] = colorFormats
	return "render:" + p.PipelineKey(), nil
}

func (f *fakeFactory) createCompute(p Pipeline) (any, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.computes = append(f.computes, p.PipelineKey())
	return "compute:" + p.PipelineKey(), nil
}

func (f *fakeFactory) release(object any) {
	f.released = append(f.released, object)
}

func testShader(t *testing.T, key string, shaderType shader.ShaderType) shader.Shader {
	t.Helper()
	s, err := shader.NewShader(key, shaderType, "", shader.WithValidation(false), shader.WithEntryPoint("main"))
	require.NoError(t, err)
	return s
}

func renderPipeline(t *testing.T, key string, opts ...PipelineBuilderOption) Pipeline {
	opts = append([]PipelineBuilderOption{
		WithVertexShader(testShader(t, key+"_vs", shader.ShaderTypeVertex)),
		WithFragmentShader(testShader(t, key+"_fs", shader.ShaderTypeFragment)),
	}, opts...)
	return NewPipeline(key, PipelineTypeRender, opts...)
}

func computePipeline(t *testing.T, key string) Pipeline {
	return NewPipeline(key, PipelineTypeCompute, WithComputeShader(testShader(t, key, shader.ShaderTypeCompute)))
}

func TestManagerResolvesRegisteredPipelines(t *testing.T) {
	factory := newFakeFactory()
	m := newManager(factory)

	draw := renderPipeline(t, "draw")
	sim := computePipeline(t, "sim")
	require.NoError(t, m.Register(draw, sim))

	obj, err := m.ResolvePipeline(draw.Desc())
	require.NoError(t, err)
	assert.Equal(t, "render:draw", obj)

	obj, err = m.ResolvePipeline(sim.Desc())
	require.NoError(t, err)
	assert.Equal(t, "compute:sim", obj)

	assert.Equal(t, []string{"draw", "sim"}, m.Keys())
	got, ok := m.Pipeline("sim")
	require.True(t, ok)
	assert.Same(t, sim, got)
}

func TestManagerResolveErrors(t *testing.T) {
	m := newManager(newFakeFactory())
	require.NoError(t, m.Register(computePipeline(t, "sim")))

	_, err := m.ResolvePipeline(render_graph.PipelineDesc{Kind: render_graph.PipelineKindCompute, Key: "missing"})
	assert.ErrorIs(t, err, render_graph.ErrUnknownPipeline)

	_, err = m.ResolvePipeline(render_graph.PipelineDesc{Kind: render_graph.PipelineKindRender, Key: "sim"})
	assert.ErrorIs(t, err, render_graph.ErrKindMismatch)

	_, err = m.BindGroupLayout("missing", 0)
	assert.ErrorIs(t, err, render_graph.ErrUnknownPipeline)
}

func TestManagerDefaultColorFormat(t *testing.T) {
	factory := newFakeFactory()
	m := newManager(factory, WithDefaultColorFormat(wgpu.TextureFormatRGBA8UnormSrgb))

	require.NoError(t, m.Register(
		renderPipeline(t, "present"),
		renderPipeline(t, "gbuffer", WithColorFormats(wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA8Unorm)),
	))

	assert.Equal(t, []wgpu.TextureFormat{wgpu.TextureFormatRGBA8UnormSrgb}, factory.renders["present"])
	assert.Equal(t, []wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA8Unorm}, factory.renders["gbuffer"])
}

func TestManagerSkipsDuplicateKeys(t *testing.T) {
	factory := newFakeFactory()
	m := newManager(factory)
	require.NoError(t, m.Register(computePipeline(t, "sim")))
	require.NoError(t, m.Register(computePipeline(t, "sim")))
	assert.Equal(t, []string{"sim"}, factory.computes)
}

func TestManagerRegisterErrors(t *testing.T) {
	factory := newFakeFactory()
	m := newManager(factory)

	err := m.Register(NewPipeline("bare", PipelineTypeRender))
	assert.ErrorIs(t, err, ErrMissingShader)

	factory.fail = errors.New("device lost")
	err = m.Register(computePipeline(t, "sim"))
	require.ErrorIs(t, err, factory.fail)
	assert.Contains(t, err.Error(), "sim")
	assert.Empty(t, m.Keys())
}

func TestManagerRelease(t *testing.T) {
	factory := newFakeFactory()
	m := newManager(factory)
	require.NoError(t, m.Register(computePipeline(t, "a"), computePipeline(t, "b")))

	m.Release()
	assert.ElementsMatch(t, []any{"compute:a", "compute:b"}, factory.released)
	assert.Empty(t, m.Keys())
}

func TestPipelineDescAndDefaults(t *testing.T) {
	p := renderPipeline(t, "draw")
	assert.Equal(t, render_graph.PipelineDesc{Kind: render_graph.PipelineKindRender, Key: "draw"}, p.Desc())
	assert.Equal(t, wgpu.TextureFormatUndefined, p.DepthFormat())
	assert.Equal(t, uint32(1), p.SampleCount())
	assert.Nil(t, p.VertexLayouts(), "an empty vertex shader has no vertex inputs")
	assert.NoError(t, p.Validate())

	c := computePipeline(t, "sim")
	assert.Equal(t, render_graph.PipelineKindCompute, c.Desc().Kind)

	layout := wgpu.VertexBufferLayout{ArrayStride: 8}
	overridden := renderPipeline(t, "lines", WithVertexLayouts(layout), WithSampleCount(0), WithDepthFormat(wgpu.TextureFormatDepth24Plus))
	assert.Equal(t, []wgpu.VertexBufferLayout{layout}, overridden.VertexLayouts())
	assert.Equal(t, uint32(1), overridden.SampleCount())
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, overridden.DepthFormat())
}
