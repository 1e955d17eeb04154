package render_graph

import "fmt"

// schedule orders nodes with Kahn's algorithm. For each handle the last declared writer is the
// producer every reader depends on; a node reading its own output adds no edge. Ready nodes are
// dequeued first in first out, seeded in declaration order, so identical graphs always produce
// identical schedules.
//
// Parameters:
//   - nodes: the nodes in declaration order
//   - strict: reject handles written by more than one node
//
// Returns:
//   - []int: node indices in execution order
//   - error: a *CycleError if the dependencies are cyclic, or ErrMultipleWriters in strict mode
func schedule(nodes []*node, strict bool) ([]int, error) {
	writer := make(map[ResourceHandle]int)
	for i, n := range nodes {
		for _, h := range n.writes() {
			if prev, ok := writer[h]; ok && prev != i && strict {
				return nil, fmt.Errorf("%w: %s written by %q and %q", ErrMultipleWriters, h, nodes[prev].name, n.name)
			}
			writer[h] = i
		}
	}

	dependents := make([][]int, len(nodes))
	inDegree := make([]int, len(nodes))
	for i, n := range nodes {
		for _, in := range n.inputs {
			w, ok := writer[in.Resource]
			if !ok || w == i {
				continue
			}
			dependents[w] = append(dependents[w], i)
			inDegree[i]++
		}
	}

	queue := make([]int, 0, len(nodes))
	for i := range nodes {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(nodes))
	for head := 0; head < len(queue); head++ {
		i := queue[head]
		order = append(order, i)
		for _, d := range dependents[i] {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(order) < len(nodes) {
		scheduled := make([]bool, len(nodes))
		for _, i := range order {
			scheduled[i] = true
		}
		cycle := &CycleError{}
		for i, n := range nodes {
			if !scheduled[i] {
				cycle.Unscheduled = append(cycle.Unscheduled, n.name)
			}
		}
		return nil, cycle
	}

	return order, nil
}
