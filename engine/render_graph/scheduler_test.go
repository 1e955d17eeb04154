package render_graph

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compute declares a compute pass reading and writing the given handles.
func compute(t *testing.T, g RenderGraph, name string, reads, writes []ResourceHandle) {
	t.Helper()
	b := g.AddPass(name, NodeKindComputePass)
	for _, h := range reads {
		b.Read(h)
	}
	for _, h := range writes {
		b.Write(h)
	}
	require.NoError(t, b.Execute(noop))
}

func compileOrder(t *testing.T, g RenderGraph) []string {
	t.Helper()
	frame, err := g.Compile(newFakeDevice(), nil)
	require.NoError(t, err)
	defer frame.Release()
	return frame.Order()
}

func TestScheduleWriterBeforeReader(t *testing.T) {
	g := NewRenderGraph()
	b := g.AddBuffer(testBuffer)
	compute(t, g, "pass1", nil, []ResourceHandle{b})
	compute(t, g, "pass2", []ResourceHandle{b}, nil)

	assert.Equal(t, []string{"pass1", "pass2"}, compileOrder(t, g))
}

func TestScheduleWriterDeclaredAfterReader(t *testing.T) {
	g := NewRenderGraph()
	b := g.AddBuffer(testBuffer)
	compute(t, g, "reader", []ResourceHandle{b}, nil)
	compute(t, g, "writer", nil, []ResourceHandle{b})

	assert.Equal(t, []string{"writer", "reader"}, compileOrder(t, g))
}

func TestScheduleIndependentPassesKeepDeclarationOrder(t *testing.T) {
	g := NewRenderGraph()
	// Equal descriptors, distinct uses: no dependency between the passes.
	read := g.AddBuffer(testBuffer)
	write := g.AddBuffer(testBuffer)
	compute(t, g, "pass1", []ResourceHandle{read}, nil)
	compute(t, g, "pass2", nil, []ResourceHandle{write})

	assert.Equal(t, []string{"pass1", "pass2"}, compileOrder(t, g))
}

func TestScheduleLastWriterWins(t *testing.T) {
	g := NewRenderGraph()
	b := g.AddBuffer(testBuffer)
	compute(t, g, "reader", []ResourceHandle{b}, nil)
	compute(t, g, "first", nil, []ResourceHandle{b})
	compute(t, g, "second", nil, []ResourceHandle{b})

	// Only the last declared writer feeds the reader; "first" has no edges and runs first.
	assert.Equal(t, []string{"first", "second", "reader"}, compileOrder(t, g))
}

func TestScheduleReadWriteHasNoSelfEdge(t *testing.T) {
	g := NewRenderGraph()
	b := g.AddBuffer(testBuffer)
	compute(t, g, "producer", nil, []ResourceHandle{b})
	require.NoError(t, g.AddPass("accumulate", NodeKindComputePass).ReadWrite(b).Execute(noop))

	assert.Equal(t, []string{"producer", "accumulate"}, compileOrder(t, g))
}

func TestScheduleCycle(t *testing.T) {
	g := NewRenderGraph().(*renderGraph)
	x := g.AddBuffer(testBuffer)
	y := g.AddBuffer(testBuffer)
	z := g.AddBuffer(testBuffer)
	compute(t, g, "A", []ResourceHandle{y}, []ResourceHandle{x})
	compute(t, g, "B", []ResourceHandle{z}, []ResourceHandle{y})
	compute(t, g, "C", []ResourceHandle{x}, []ResourceHandle{z})
	compute(t, g, "D", nil, nil)

	device := newFakeDevice()
	frame, err := g.Compile(device, nil)
	require.Error(t, err)
	assert.Nil(t, frame)

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"A", "B", "C"}, cycle.Unscheduled)

	assert.Empty(t, device.encoders, "no encoder is created for a rejected graph")
	assert.Empty(t, device.buffers)
	for _, n := range g.Nodes() {
		assert.Equal(t, NodeStateRejected, n.State, n.Name)
	}
}

func TestScheduleTwoNodeCycle(t *testing.T) {
	g := NewRenderGraph()
	a := g.AddBuffer(testBuffer)
	b := g.AddBuffer(testBuffer)
	compute(t, g, "A", []ResourceHandle{b}, []ResourceHandle{a})
	compute(t, g, "B", []ResourceHandle{a}, []ResourceHandle{b})

	_, err := g.Compile(newFakeDevice(), nil)
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Len(t, cycle.Unscheduled, 2)
}

func TestScheduleStrictWriters(t *testing.T) {
	g := NewRenderGraph(WithStrictWriters(true))
	b := g.AddBuffer(testBuffer)
	compute(t, g, "first", nil, []ResourceHandle{b})
	compute(t, g, "second", nil, []ResourceHandle{b})

	_, err := g.Compile(newFakeDevice(), nil)
	require.ErrorIs(t, err, ErrMultipleWriters)
	assert.Contains(t, err.Error(), `"first" and "second"`)
}

func TestScheduleStrictWritersAllowsReadWrite(t *testing.T) {
	g := NewRenderGraph(WithStrictWriters(true))
	b := g.AddBuffer(testBuffer)
	require.NoError(t, g.AddPass("rw", NodeKindComputePass).ReadWrite(b).Execute(noop))

	assert.Equal(t, []string{"rw"}, compileOrder(t, g))
}

func TestScheduleDepthTargetIsAWrite(t *testing.T) {
	g := NewRenderGraph()
	depth := g.AddTexture(testDepth)
	require.NoError(t, g.AddPass("shade", NodeKindRenderPass).Read(depth).Execute(noop))
	require.NoError(t, g.AddPass("prepass", NodeKindRenderPass).WriteDepth(depth).Execute(noop))

	assert.Equal(t, []string{"prepass", "shade"}, compileOrder(t, g))
}

// TestScheduleRandomDAGs builds acyclic graphs declared in shuffled order and checks every reader is
// scheduled after the writer of each resource it reads.
func TestScheduleRandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for iter := 0; iter < 50; iter++ {
		n := 2 + rng.IntN(12)
		g := NewRenderGraph()
		outs := make([]ResourceHandle, n)
		for i := range outs {
			outs[i] = g.AddBuffer(testBuffer)
		}

		// Node i writes outs[i] and may read outputs of lower ranked nodes only.
		reads := make([][]int, n)
		for i := 1; i < n; i++ {
			for j := 0; j < i; j++ {
				if rng.IntN(3) == 0 {
					reads[i] = append(reads[i], j)
				}
			}
		}

		for _, i := range rng.Perm(n) {
			var in []ResourceHandle
			for _, j := range reads[i] {
				in = append(in, outs[j])
			}
			compute(t, g, fmt.Sprintf("n%d", i), in, []ResourceHandle{outs[i]})
		}

		order := compileOrder(t, g)
		require.Len(t, order, n)
		pos := make(map[string]int, n)
		for p, name := range order {
			pos[name] = p
		}
		for i := range reads {
			for _, j := range reads[i] {
				assert.Less(t, pos[fmt.Sprintf("n%d", j)], pos[fmt.Sprintf("n%d", i)])
			}
		}
	}
}

func TestScheduleIsDeterministic(t *testing.T) {
	build := func() RenderGraph {
		g := NewRenderGraph()
		a := g.AddBuffer(testBuffer)
		b := g.AddBuffer(testBuffer)
		c := g.AddTexture(testTexture)
		compute(t, g, "sim", []ResourceHandle{a}, []ResourceHandle{b})
		compute(t, g, "seed", nil, []ResourceHandle{a})
		require.NoError(t, g.AddPass("draw", NodeKindRenderPass).Read(b).Write(c).Execute(noop))
		compute(t, g, "idle", nil, nil)
		return g
	}

	first := compileOrder(t, build())
	second := compileOrder(t, build())
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"seed", "idle", "sim", "draw"}, first)
}
