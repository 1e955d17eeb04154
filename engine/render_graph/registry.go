package render_graph

import "sync/atomic"

// registryOwners hands out a unique owner id per registry so keys issued by one registry
// never resolve in another.
var registryOwners atomic.Uint32

// InstanceKey is a lightweight per-use key issued by an InstanceRegistry.
// The zero value is never issued and resolves nowhere.
type InstanceKey struct {
	owner uint32
	index uint32
}

// Valid reports whether the key was issued by some registry.
func (k InstanceKey) Valid() bool {
	return k.owner != 0
}

// LogicalID identifies the canonical record behind one or more InstanceKeys with equal values.
type LogicalID uint32

// InstanceRegistry deduplicates values into canonical records and issues a fresh InstanceKey on
// every insert. All keys obtained from equal values resolve to the same canonical record, yet
// remain distinguishable from each other as separate uses.
//
// The registry only grows; it lives exactly as long as the RenderGraph that owns it.
type InstanceRegistry[V comparable] struct {
	owner uint32

	// set maps a value to its canonical slot.
	set map[V]LogicalID
	// values holds canonical values indexed by LogicalID.
	values []V
	// instances is the indirection table from per-use key index to canonical slot.
	instances []LogicalID
}

// NewInstanceRegistry creates an empty registry with a process unique owner id.
//
// Returns:
//   - *InstanceRegistry[V]: the new registry
func NewInstanceRegistry[V comparable]() *InstanceRegistry[V] {
	return &InstanceRegistry[V]{
		owner: registryOwners.Add(1),
		set:   make(map[V]LogicalID),
	}
}

// Insert registers a use of value. Equal values share one canonical record; every call returns a new key.
//
// Parameters:
//   - value: the description to register
//
// Returns:
//   - InstanceKey: a key unique to this insert
func (r *InstanceRegistry[V]) Insert(value V) InstanceKey {
	id, ok := r.set[value]
	if !ok {
		id = LogicalID(len(r.values))
		r.values = append(r.values, value)
		r.set[value] = id
	}
	r.instances = append(r.instances, id)
	return InstanceKey{owner: r.owner, index: uint32(len(r.instances) - 1)}
}

// Get returns the value that was inserted to obtain key. It fails only for foreign keys.
//
// Parameters:
//   - key: a key previously returned by Insert
//
// Returns:
//   - V: the canonical value
//   - bool: false if the key was not issued by this registry
func (r *InstanceRegistry[V]) Get(key InstanceKey) (V, bool) {
	id, ok := r.Logical(key)
	if !ok {
		var zero V
		return zero, false
	}
	return r.values[id], true
}

// Logical returns the canonical record id behind key.
//
// Parameters:
//   - key: a key previously returned by Insert
//
// Returns:
//   - LogicalID: the canonical record id
//   - bool: false if the key was not issued by this registry
func (r *InstanceRegistry[V]) Logical(key InstanceKey) (LogicalID, bool) {
	if key.owner != r.owner || int(key.index) >= len(r.instances) {
		return 0, false
	}
	return r.instances[key.index], true
}

// Value returns the canonical value stored for a logical id.
func (r *InstanceRegistry[V]) Value(id LogicalID) (V, bool) {
	if int(id) >= len(r.values) {
		var zero V
		return zero, false
	}
	return r.values[id], true
}

// Len returns the number of keys issued.
func (r *InstanceRegistry[V]) Len() int {
	return len(r.instances)
}

// LogicalLen returns the number of distinct canonical records.
func (r *InstanceRegistry[V]) LogicalLen() int {
	return len(r.values)
}
