package render_graph

import (
	"errors"
	"fmt"
	"sync"
)

var errFakeDevice = errors.New("fake device failure")

// fakeDevice is a CPU only Device. Buffers hold real bytes, queue writes land immediately, and
// recorded copies run in order when the command buffer is submitted.
type fakeDevice struct {
	mu sync.Mutex

	buffers   []*fakeBuffer
	textures  []*fakeTexture
	views     []*fakeView
	encoders  []*fakeEncoder
	submitted []*fakeCommandBuffer

	// failTextureAt fails the n-th CreateTexture call (1 based) when non-zero.
	failTextureAt int
	// failBufferAt fails the n-th CreateBuffer call (1 based) when non-zero.
	failBufferAt int
	failSubmit   bool
	failRead     bool
}

var _ Device = &fakeDevice{}

type fakeBuffer struct {
	label    string
	desc     BufferDesc
	data     []byte
	released bool
}

func (b *fakeBuffer) Release() { b.released = true }

type fakeTexture struct {
	label    string
	desc     TextureDesc
	released bool
}

func (t *fakeTexture) Release() { t.released = true }

type fakeView struct {
	texture  *fakeTexture
	released bool
}

func (v *fakeView) Release() { v.released = true }

type fakeCommand struct {
	op        string
	label     string
	render    RenderPassDesc
	src       *fakeBuffer
	dst       *fakeBuffer
	srcOffset uint64
	dstOffset uint64
	size      uint64
	pipeline  any
	args      []uint32
}

type fakeCommandBuffer struct {
	label    string
	commands []fakeCommand
	released bool
}

func (c *fakeCommandBuffer) Release() { c.released = true }

func newFakeDevice() *fakeDevice {
	return &fakeDevice{}
}

func (d *fakeDevice) CreateBuffer(label string, desc BufferDesc) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failBufferAt != 0 && len(d.buffers)+1 == d.failBufferAt {
		d.failBufferAt = 0
		return nil, errFakeDevice
	}
	b := &fakeBuffer{label: label, desc: desc, data: make([]byte, desc.Size)}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDevice) CreateTexture(label string, desc TextureDesc) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failTextureAt != 0 && len(d.textures)+1 == d.failTextureAt {
		d.failTextureAt = 0
		return nil, errFakeDevice
	}
	t := &fakeTexture{label: label, desc: desc}
	d.textures = append(d.textures, t)
	return t, nil
}

func (d *fakeDevice) CreateTextureView(texture Texture) (TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := &fakeView{texture: texture.(*fakeTexture)}
	d.views = append(d.views, v)
	return v, nil
}

func (d *fakeDevice) CreateCommandEncoder(label string) (CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := &fakeEncoder{label: label}
	d.encoders = append(d.encoders, e)
	return e, nil
}

func (d *fakeDevice) WriteBuffer(buffer Buffer, offset uint64, data []byte) error {
	b := buffer.(*fakeBuffer)
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("write of %d bytes at %d overflows %q", len(data), offset, b.label)
	}
	copy(b.data[offset:], data)
	return nil
}

func (d *fakeDevice) Submit(commands CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failSubmit {
		return errFakeDevice
	}
	cb := commands.(*fakeCommandBuffer)
	for _, c := range cb.commands {
		if c.op == "copy" {
			copy(c.dst.data[c.dstOffset:c.dstOffset+c.size], c.src.data[c.srcOffset:c.srcOffset+c.size])
		}
	}
	d.submitted = append(d.submitted, cb)
	return nil
}

func (d *fakeDevice) ReadBuffer(buffer Buffer, offset, size uint64) ([]byte, error) {
	if d.failRead {
		return nil, errFakeDevice
	}
	b := buffer.(*fakeBuffer)
	if b.desc.Usage&BufferUsageMapRead == 0 {
		return nil, fmt.Errorf("buffer %q is not mappable", b.label)
	}
	return append([]byte(nil), b.data[offset:offset+size]...), nil
}

// liveObjects counts buffers and textures that were created and not released.
func (d *fakeDevice) liveObjects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, b := range d.buffers {
		if !b.released {
			n++
		}
	}
	for _, t := range d.textures {
		if !t.released {
			n++
		}
	}
	for _, v := range d.views {
		if !v.released {
			n++
		}
	}
	return n
}

type fakeEncoder struct {
	label    string
	commands []fakeCommand
	finished bool
	released bool
	open     bool
}

func (e *fakeEncoder) BeginRenderPass(desc RenderPassDesc) (RenderPassEncoder, error) {
	if e.open {
		return nil, errors.New("pass already open")
	}
	e.open = true
	e.commands = append(e.commands, fakeCommand{op: "begin_render", label: desc.Label, render: desc})
	return &fakeRenderPass{encoder: e}, nil
}

func (e *fakeEncoder) BeginComputePass(label string) (ComputePassEncoder, error) {
	if e.open {
		return nil, errors.New("pass already open")
	}
	e.open = true
	e.commands = append(e.commands, fakeCommand{op: "begin_compute", label: label})
	return &fakeComputePass{encoder: e}, nil
}

func (e *fakeEncoder) CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset uint64, size uint64) error {
	if e.open {
		return errors.New("copy inside pass")
	}
	e.commands = append(e.commands, fakeCommand{
		op:        "copy",
		src:       src.(*fakeBuffer),
		dst:       dst.(*fakeBuffer),
		srcOffset: srcOffset,
		dstOffset: dstOffset,
		size:      size,
	})
	return nil
}

func (e *fakeEncoder) Finish(label string) (CommandBuffer, error) {
	if e.open {
		return nil, errors.New("pass still open")
	}
	e.finished = true
	return &fakeCommandBuffer{label: label, commands: e.commands}, nil
}

func (e *fakeEncoder) Release() { e.released = true }

// ops returns the op names of the recorded commands.
func (e *fakeEncoder) ops() []string {
	out := make([]string, len(e.commands))
	for i, c := range e.commands {
		out[i] = c.op
		if c.label != "" {
			out[i] += ":" + c.label
		}
	}
	return out
}

type fakeRenderPass struct {
	encoder *fakeEncoder
}

func (p *fakeRenderPass) SetPipeline(pipeline any) error {
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "set_pipeline", pipeline: pipeline})
	return nil
}

func (p *fakeRenderPass) SetBindGroup(index uint32, group any, dynamicOffsets []uint32) error {
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "set_bind_group", args: []uint32{index}})
	return nil
}

func (p *fakeRenderPass) SetVertexBuffer(slot uint32, buffer Buffer, offset, size uint64) {
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "set_vertex_buffer", dst: buffer.(*fakeBuffer), args: []uint32{slot}})
}

func (p *fakeRenderPass) SetIndexBuffer(buffer Buffer, format IndexFormat, offset, size uint64) {
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "set_index_buffer", dst: buffer.(*fakeBuffer)})
}

func (p *fakeRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "draw", args: []uint32{vertexCount, instanceCount, firstVertex, firstInstance}})
}

func (p *fakeRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "draw_indexed", args: []uint32{indexCount, instanceCount, firstIndex}})
}

func (p *fakeRenderPass) End() error {
	p.encoder.open = false
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "end"})
	return nil
}

type fakeComputePass struct {
	encoder *fakeEncoder
}

func (p *fakeComputePass) SetPipeline(pipeline any) error {
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "set_pipeline", pipeline: pipeline})
	return nil
}

func (p *fakeComputePass) SetBindGroup(index uint32, group any, dynamicOffsets []uint32) error {
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "set_bind_group", args: []uint32{index}})
	return nil
}

func (p *fakeComputePass) DispatchWorkgroups(x, y, z uint32) {
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "dispatch", args: []uint32{x, y, z}})
}

func (p *fakeComputePass) End() error {
	p.encoder.open = false
	p.encoder.commands = append(p.encoder.commands, fakeCommand{op: "end"})
	return nil
}

// fakePipelines resolves every registered key to its own name.
type fakePipelines map[PipelineDesc]string

func (f fakePipelines) ResolvePipeline(desc PipelineDesc) (any, error) {
	p, ok := f[desc]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, desc.Key)
	}
	return p, nil
}

var (
	testTexture = TextureDesc{Width: 64, Height: 64, Format: TextureFormatRGBA8Unorm, Usage: TextureUsageRenderAttachment | TextureUsageTextureBinding}
	testDepth   = TextureDesc{Width: 64, Height: 64, Format: TextureFormatDepth24Plus, Usage: TextureUsageRenderAttachment}
	testBuffer  = BufferDesc{Size: 16, Usage: BufferUsageStorage | BufferUsageCopySrc | BufferUsageCopyDst}
)

// noop is a command that records nothing.
var noop = CommandFunc(func(*PassContext) error { return nil })
