package render_graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolReusesSlotForDisjointLifetimes(t *testing.T) {
	g := NewRenderGraph()
	first := g.AddTexture(testTexture)
	second := g.AddTexture(testTexture)
	require.NoError(t, g.AddPass("a", NodeKindRenderPass).Write(first).Execute(noop))
	require.NoError(t, g.AddPass("b", NodeKindRenderPass).Write(second).Execute(noop))

	device := newFakeDevice()
	frame, err := g.Compile(device, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, frame.Allocations())
	assert.Len(t, device.textures, 1)

	enc := device.encoders[0]
	var views []TextureView
	for _, c := range enc.commands {
		if c.op == "begin_render" {
			require.Len(t, c.render.ColorAttachments, 1)
			views = append(views, c.render.ColorAttachments[0].View)
		}
	}
	require.Len(t, views, 2)
	assert.Same(t, views[0], views[1])

	frame.Release()
	assert.Equal(t, 0, device.liveObjects())
}

func TestPoolSeparatesOverlappingLifetimes(t *testing.T) {
	g := NewRenderGraph()
	a := g.AddTexture(testTexture)
	b := g.AddTexture(testTexture)
	require.NoError(t, g.AddPass("write_a", NodeKindRenderPass).Write(a).Execute(noop))
	require.NoError(t, g.AddPass("write_b", NodeKindRenderPass).Write(b).Execute(noop))
	require.NoError(t, g.AddPass("combine", NodeKindRenderPass).Read(a).Read(b).Execute(noop))

	device := newFakeDevice()
	frame, err := g.Compile(device, nil)
	require.NoError(t, err)
	defer frame.Release()

	assert.Equal(t, 2, frame.Allocations())
	assert.Len(t, device.textures, 2)
}

func TestPoolNeverSharesAcrossDescriptors(t *testing.T) {
	g := NewRenderGraph()
	small := g.AddBuffer(BufferDesc{Size: 4, Usage: BufferUsageStorage})
	large := g.AddBuffer(BufferDesc{Size: 64, Usage: BufferUsageStorage})
	compute(t, g, "a", nil, []ResourceHandle{small})
	compute(t, g, "b", nil, []ResourceHandle{large})

	device := newFakeDevice()
	frame, err := g.Compile(device, nil)
	require.NoError(t, err)
	defer frame.Release()

	require.Len(t, device.buffers, 2)
	assert.Equal(t, uint64(4), device.buffers[0].desc.Size)
	assert.Equal(t, uint64(64), device.buffers[1].desc.Size)
}

func TestPoolSkipsImportedResources(t *testing.T) {
	g := NewRenderGraph()
	swapTex := &fakeTexture{label: "swapchain"}
	swapView := &fakeView{texture: swapTex}
	target := g.ImportTexture(testTexture, swapTex, swapView)
	require.NoError(t, g.AddPass("present", NodeKindRenderPass).Write(target).Execute(noop))

	device := newFakeDevice()
	frame, err := g.Compile(device, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, frame.Allocations())
	assert.Empty(t, device.textures)
	begin := device.encoders[0].commands[0]
	require.Equal(t, "begin_render", begin.op)
	assert.Same(t, swapView, begin.render.ColorAttachments[0].View)

	frame.Release()
	assert.False(t, swapView.released, "imported views are owned by the caller")
	assert.False(t, swapTex.released)
}

func TestPoolPlanIsGreedyByFirstUse(t *testing.T) {
	g := NewRenderGraph().(*renderGraph)
	var hs []ResourceHandle
	for i := 0; i < 3; i++ {
		hs = append(hs, g.AddBuffer(testBuffer))
	}
	pool := newResourcePool(newFakeDevice(), "test", Logger())
	pool.plan(g, lifetimes{
		uses: map[ResourceHandle]ResourceLifetime{
			hs[0]: {0, 1},
			hs[1]: {1, 2},
			hs[2]: {2, 3},
		},
		first: hs,
	})

	assert.Len(t, pool.slots, 2)
	assert.Same(t, pool.assigned[hs[0]], pool.assigned[hs[2]])
	assert.NotSame(t, pool.assigned[hs[0]], pool.assigned[hs[1]])
	assert.Equal(t, 0, pool.materialized(), "planning creates no GPU objects")
}
