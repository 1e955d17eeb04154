package render_graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassBuilderAssignsSequentialBindings(t *testing.T) {
	g := NewRenderGraph()
	a := g.AddBuffer(testBuffer)
	b := g.AddBuffer(testBuffer)
	c := g.AddTexture(testTexture)
	d := g.AddTexture(testDepth)

	require.NoError(t, g.AddPass("p", NodeKindRenderPass).Read(a).ReadWrite(b).Write(c).WriteDepth(d).Execute(nil))

	nodes := g.Nodes()
	require.Len(t, nodes, 1)
	n := nodes[0]
	assert.Equal(t, []NodeInput{{Binding: 0, Resource: a}, {Binding: 1, Resource: b}}, n.Inputs)
	assert.Equal(t, []NodeOutput{{Binding: 1, Resource: b}, {Binding: 2, Resource: c}}, n.Outputs)
	require.NotNil(t, n.Depth)
	assert.Equal(t, d, *n.Depth)
	assert.Equal(t, NodeStateDeclared, n.State)
}

func TestPassBuilderRejectsSecondDepthTarget(t *testing.T) {
	g := NewRenderGraph()
	d1 := g.AddTexture(testDepth)
	d2 := g.AddTexture(testDepth)

	err := g.AddPass("p", NodeKindRenderPass).WriteDepth(d1).WriteDepth(d2).Execute(nil)
	require.ErrorIs(t, err, ErrDepthTargetAlreadySet)
	assert.Empty(t, g.Nodes(), "a pass with usage errors is not added")
}

func TestPassBuilderRejectsBufferDepthTarget(t *testing.T) {
	g := NewRenderGraph()
	err := g.AddPass("p", NodeKindRenderPass).WriteDepth(g.AddBuffer(testBuffer)).Execute(nil)
	assert.ErrorIs(t, err, ErrInvalidDepthTarget)
}

func TestPassBuilderRejectsForeignHandles(t *testing.T) {
	other := NewRenderGraph()
	foreign := other.AddBuffer(testBuffer)

	g := NewRenderGraph()
	g.AddBuffer(testBuffer)
	err := g.AddPass("p", NodeKindComputePass).Read(foreign).Execute(nil)

	var unknown *UnknownResourceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "p", unknown.Pass)
	assert.Equal(t, foreign, unknown.Handle)
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestPassBuilderIsSingleUse(t *testing.T) {
	g := NewRenderGraph()
	b := g.AddPass("p", NodeKindComputePass)
	require.NoError(t, b.Execute(nil))
	assert.ErrorIs(t, b.Execute(nil), ErrBuilderConsumed)
	assert.Len(t, g.Nodes(), 1)

	// Calls on a consumed builder change nothing.
	b.Write(g.AddBuffer(testBuffer))
	assert.Empty(t, g.Nodes()[0].Outputs)
}

func TestPassBuilderRejectsTransferKind(t *testing.T) {
	g := NewRenderGraph()
	err := g.AddPass("p", NodeKindTransfer).Execute(nil)
	assert.ErrorIs(t, err, ErrInvalidNodeKind)
	assert.Empty(t, g.Nodes())
}

func TestPassBuilderPipelineValidation(t *testing.T) {
	g := NewRenderGraph()
	sim := g.AddPipeline(PipelineDesc{Kind: PipelineKindCompute, Key: "sim"})

	err := g.AddPass("draw", NodeKindRenderPass).UsePipeline(sim).Execute(nil)
	assert.ErrorIs(t, err, ErrKindMismatch)

	err = g.AddPass("sim", NodeKindComputePass).UsePipeline(PipelineHandle{}).Execute(nil)
	assert.ErrorIs(t, err, ErrUnknownPipeline)

	require.NoError(t, g.AddPass("sim", NodeKindComputePass).UsePipeline(sim).Execute(nil))
	require.NotNil(t, g.Nodes()[0].Pipeline)
	assert.Equal(t, sim, *g.Nodes()[0].Pipeline)
}

func TestTransferBuilderDerivesBindings(t *testing.T) {
	g := NewRenderGraph()
	src := g.AddBuffer(testBuffer)
	dst := g.AddBuffer(testBuffer)

	tb := g.AddTransfer("xfer")
	tb.Write(src, 0, []byte{1, 2, 3, 4}).Copy(src, dst, 4, 0, 0)
	tb.Read(dst, 0, 4)
	require.NoError(t, tb.Finish())

	n := g.Nodes()[0]
	assert.Equal(t, NodeKindTransfer, n.Kind)
	assert.Equal(t, []NodeInput{{Binding: 1, Resource: src}, {Binding: 3, Resource: dst}}, n.Inputs)
	assert.Equal(t, []NodeOutput{{Binding: 0, Resource: src}, {Binding: 2, Resource: dst}}, n.Outputs)
}

func TestTransferBuilderCopiesUploadData(t *testing.T) {
	g := NewRenderGraph().(*renderGraph)
	buf := g.AddBuffer(testBuffer)
	data := []byte{9, 9, 9, 9}

	tb := g.AddTransfer("upload")
	tb.Write(buf, 0, data)
	data[0] = 0
	require.NoError(t, tb.Finish())

	op := g.nodes[0].ops[0].(uploadOp)
	assert.Equal(t, []byte{9, 9, 9, 9}, op.data)
}

func TestTransferBuilderRejectsTextures(t *testing.T) {
	g := NewRenderGraph()
	tex := g.AddTexture(testTexture)
	buf := g.AddBuffer(testBuffer)

	tb := g.AddTransfer("bad")
	tb.Copy(buf, tex, 4, 0, 0)
	ticket := tb.Read(tex, 0, 4)
	err := tb.Finish()
	require.ErrorIs(t, err, ErrUnsupportedTransfer)
	assert.Empty(t, g.Nodes())

	_, ready, terr := ticket.TryGet()
	assert.True(t, ready, "tickets of a rejected transfer resolve immediately")
	assert.ErrorIs(t, terr, ErrUnsupportedTransfer)
}

func TestTransferBuilderIsSingleUse(t *testing.T) {
	g := NewRenderGraph()
	tb := g.AddTransfer("once")
	require.NoError(t, tb.Finish())
	assert.ErrorIs(t, tb.Finish(), ErrBuilderConsumed)

	_, ready, err := tb.Read(g.AddBuffer(testBuffer), 0, 4).TryGet()
	assert.True(t, ready)
	assert.ErrorIs(t, err, ErrBuilderConsumed)
}

func TestTransferReadWholeSize(t *testing.T) {
	g := NewRenderGraph().(*renderGraph)
	buf := g.AddBuffer(testBuffer)

	tb := g.AddTransfer("read")
	tb.Read(buf, 4, WholeSize)
	require.NoError(t, tb.Finish())

	op := g.nodes[0].ops[0].(readOp)
	assert.Equal(t, testBuffer.Size-4, op.size)
}

func TestTransferReadRejectsBadRanges(t *testing.T) {
	cases := []struct {
		name   string
		offset uint64
		size   uint64
	}{
		{name: "zero size", offset: 0, size: 0},
		{name: "past end", offset: 8, size: 16},
		{name: "offset past end", offset: 32, size: 4},
		{name: "whole size at end", offset: testBuffer.Size, size: WholeSize},
		{name: "overflow", offset: 8, size: ^uint64(0) - 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewRenderGraph().(*renderGraph)
			buf := g.AddBuffer(testBuffer)

			tb := g.AddTransfer("read")
			ticket := tb.Read(buf, tc.offset, tc.size)
			err := tb.Finish()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "transfer \"read\"")
			assert.Empty(t, g.nodes)

			_, ready, terr := ticket.TryGet()
			assert.True(t, ready)
			assert.Equal(t, err, terr)
		})
	}
}

func TestWriteSlice(t *testing.T) {
	g := NewRenderGraph().(*renderGraph)
	buf := g.AddBuffer(testBuffer)

	tb := g.AddTransfer("upload")
	WriteSlice(tb, buf, 0, []uint32{1, 2})
	require.NoError(t, tb.Finish())

	op := g.nodes[0].ops[0].(uploadOp)
	assert.Len(t, op.data, 8)
}
