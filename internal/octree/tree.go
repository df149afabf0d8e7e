// Package octree implements the out-of-core octree: a pointer-free arena of
// Nodes keyed by NodeKey, lazily materialized as points are routed in. The
// tree never rebalances and is pure parent-to-child: no cycles, no owning
// pointers (§9).
package octree

import (
	"sync"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
)

// Tree is the arena of octree nodes sharing one global cubic bounds and one
// point schema. It is safe for concurrent use: GetOrCreate is the only
// mutating entry point and is safe to call from many goroutines at once,
// since two tasks never materialize the same node concurrently without this
// lock serializing them.
type Tree struct {
	mu     sync.RWMutex
	nodes  map[NodeKey]*Node
	schema *data.Schema
	root   geometry.AABB
}

// NewTree creates the tree with its root materialized from the precomputed
// global cubic AABB (§3 lifecycle).
func NewTree(rootBounds geometry.AABB, schema *data.Schema) *Tree {
	t := &Tree{
		nodes:  make(map[NodeKey]*Node),
		schema: schema,
		root:   rootBounds,
	}
	t.nodes[RootKey] = newNode(RootKey, rootBounds, schema)
	return t
}

func (t *Tree) Schema() *data.Schema { return t.schema }

func (t *Tree) Root() *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[RootKey]
}

// Get returns the node for key if it has been materialized.
func (t *Tree) Get(key NodeKey) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[key]
	return n, ok
}

// GetOrCreate materializes key's node on first access, deriving its bounds
// from the root AABB and the key's octant path, and flags it as an existing
// child of its parent (§3 "child nodes materialized lazily").
func (t *Tree) GetOrCreate(key NodeKey) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[key]; ok {
		return n
	}
	bounds := t.boundsOfLocked(key)
	n := newNode(key, bounds, t.schema)
	t.nodes[key] = n
	if parentKey, ok := key.Parent(); ok {
		if parent, ok := t.nodes[parentKey]; ok {
			parent.SetChild(key.Octant())
		}
	}
	return n
}

func (t *Tree) boundsOfLocked(key NodeKey) geometry.AABB {
	bounds := t.root
	for i := 0; i < key.Depth(); i++ {
		octant := key[i] - '0'
		bounds = bounds.ChildBounds(octant)
	}
	return bounds
}

// BoundsOf derives a node's bounds deterministically from the root AABB and
// its key, without requiring the node to be materialized.
func (t *Tree) BoundsOf(key NodeKey) geometry.AABB {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.boundsOfLocked(key)
}

// Nodes returns a snapshot of every materialized node key, for traversal
// during flush/finalize.
func (t *Tree) Nodes() []NodeKey {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]NodeKey, 0, len(t.nodes))
	for k := range t.nodes {
		keys = append(keys, k)
	}
	return keys
}

func (t *Tree) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}
