package render_graph

import (
	"fmt"
	"log/slog"
)

// poolSlot is one physical GPU resource. Several uses of the same logical resource share a slot when
// their lifetimes do not overlap.
type poolSlot struct {
	index   int
	kind    ResourceKind
	buffer  BufferDesc
	texture TextureDesc
	lastUse int

	buf  Buffer
	tex  Texture
	view TextureView
}

func (s *poolSlot) materialized() bool {
	return s.buf != nil || s.tex != nil
}

// resourcePool assigns transient handles to physical slots for one frame and creates the GPU objects
// behind them on first touch. Imported handles are never assigned.
type resourcePool struct {
	device   Device
	label    string
	buckets  map[LogicalResource][]*poolSlot
	slots    []*poolSlot
	assigned map[ResourceHandle]*poolSlot
	logger   *slog.Logger
}

func newResourcePool(device Device, label string, logger *slog.Logger) *resourcePool {
	return &resourcePool{
		device:   device,
		label:    label,
		logger:   logger,
		buckets:  make(map[LogicalResource][]*poolSlot),
		assigned: make(map[ResourceHandle]*poolSlot),
	}
}

// plan walks uses in first-use order and places each in the first slot of its logical bucket whose
// previous occupant's last use comes strictly before the new use begins.
//
// Parameters:
//   - g: the graph owning the handles
//   - lt: the tracked lifetimes of the scheduled frame
func (p *resourcePool) plan(g *renderGraph, lt lifetimes) {
	for _, h := range lt.first {
		if g.isImported(h) {
			continue
		}
		lr, ok := g.Logical(h)
		if !ok {
			continue
		}
		span := lt.uses[h]

		var slot *poolSlot
		for _, s := range p.buckets[lr] {
			if s.lastUse < span.FirstUse {
				slot = s
				break
			}
		}
		if slot == nil {
			slot = &poolSlot{index: len(p.slots), kind: h.Kind}
			switch h.Kind {
			case ResourceKindBuffer:
				slot.buffer, _ = g.BufferDesc(h)
			case ResourceKindTexture:
				slot.texture, _ = g.TextureDesc(h)
			}
			p.slots = append(p.slots, slot)
			p.buckets[lr] = append(p.buckets[lr], slot)
		}
		slot.lastUse = span.LastUse
		p.assigned[h] = slot
	}

	p.logger.Debug("render graph: resource plan", "graph", p.label, "uses", len(p.assigned), "slots", len(p.slots))
}

// buffer returns the buffer backing h, creating it on first touch.
func (p *resourcePool) buffer(h ResourceHandle) (Buffer, error) {
	slot, ok := p.assigned[h]
	if !ok || slot.kind != ResourceKindBuffer {
		return nil, &UnknownResourceError{Handle: h}
	}
	if slot.buf == nil {
		buf, err := p.device.CreateBuffer(p.slotLabel(slot), slot.buffer)
		if err != nil {
			return nil, err
		}
		slot.buf = buf
	}
	return slot.buf, nil
}

// texture returns the texture and default view backing h, creating them on first touch.
func (p *resourcePool) texture(h ResourceHandle) (Texture, TextureView, error) {
	slot, ok := p.assigned[h]
	if !ok || slot.kind != ResourceKindTexture {
		return nil, nil, &UnknownResourceError{Handle: h}
	}
	if slot.tex == nil {
		tex, err := p.device.CreateTexture(p.slotLabel(slot), slot.texture)
		if err != nil {
			return nil, nil, err
		}
		view, err := p.device.CreateTextureView(tex)
		if err != nil {
			tex.Release()
			return nil, nil, err
		}
		slot.tex, slot.view = tex, view
	}
	return slot.tex, slot.view, nil
}

// materialized returns the number of slots that own a GPU object.
func (p *resourcePool) materialized() int {
	n := 0
	for _, s := range p.slots {
		if s.materialized() {
			n++
		}
	}
	return n
}

// release frees every GPU object the pool created. Safe to call more than once.
func (p *resourcePool) release() {
	for _, s := range p.slots {
		if s.view != nil {
			s.view.Release()
			s.view = nil
		}
		if s.tex != nil {
			s.tex.Release()
			s.tex = nil
		}
		if s.buf != nil {
			s.buf.Release()
			s.buf = nil
		}
	}
}

func (p *resourcePool) slotLabel(s *poolSlot) string {
	return fmt.Sprintf("%s/%s-slot-%d", p.label, s.kind, s.index)
}
