package render_graph

// lifetimes holds the schedule span of every resource the scheduled nodes touch.
type lifetimes struct {
	// uses is keyed by handle; each handle is one use of a logical resource.
	uses map[ResourceHandle]ResourceLifetime
	// logical is keyed by logical resource and spans all of its uses.
	logical map[LogicalResource]ResourceLifetime
	// first lists handles in order of first use, ties in binding order.
	first []ResourceHandle
}

// trackLifetimes walks the schedule and records the first and last position at which each handle
// and each logical resource is read or written.
//
// Parameters:
//   - g: the graph owning the handles
//   - order: node indices in schedule order
//
// Returns:
//   - lifetimes: the tracked spans
func trackLifetimes(g *renderGraph, order []int) lifetimes {
	lt := lifetimes{
		uses:    make(map[ResourceHandle]ResourceLifetime),
		logical: make(map[LogicalResource]ResourceLifetime),
	}

	for pos, idx := range order {
		for _, h := range g.nodes[idx].touches() {
			if span, ok := lt.uses[h]; ok {
				span.LastUse = pos
				lt.uses[h] = span
			} else {
				lt.uses[h] = ResourceLifetime{FirstUse: pos, LastUse: pos}
				lt.first = append(lt.first, h)
			}

			lr, ok := g.Logical(h)
			if !ok {
				continue
			}
			if span, ok := lt.logical[lr]; ok {
				span.LastUse = pos
				lt.logical[lr] = span
			} else {
				lt.logical[lr] = ResourceLifetime{FirstUse: pos, LastUse: pos}
			}
		}
	}

	return lt
}
