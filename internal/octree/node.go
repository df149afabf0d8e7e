package octree

import (
	"sync"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
)

// Node is one node of the octree, identified by its NodeKey. Nodes live in
// an arena keyed by NodeKey (see Tree); children are existence flags, not
// owning pointers, so the arena can grow without invalidating references
// held elsewhere (§9 "arena + index vs pointers").
type Node struct {
	Key    NodeKey
	Bounds geometry.AABB

	mu       sync.RWMutex
	accepted *data.PointBatch
	children [8]bool
	persisted bool
	// persistedCount is how many points have already been flushed to the
	// node store across prior flushes; AcceptedCount adds it to the
	// resident buffer's length so capacity checks stay correct across a
	// flush that drops the resident buffer (§5 memory governor).
	persistedCount int
}

func newNode(key NodeKey, bounds geometry.AABB, schema *data.Schema) *Node {
	return &Node{
		Key:      key,
		Bounds:   bounds,
		accepted: data.NewPointBatch(schema),
	}
}

// Accepted returns the node's resident LOD sample. The returned batch must
// not be mutated by the caller; use AppendAccepted, ReplaceAccepted or
// DropAccepted instead.
func (n *Node) Accepted() *data.PointBatch {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.accepted
}

// AcceptedCount returns the node's cumulative accepted point count: points
// still resident plus points already flushed to the node store. A node's
// capacity policy is enforced against this total, not just the resident
// buffer, so a flush never lets a node silently exceed max_points_per_node.
func (n *Node) AcceptedCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.persistedCount + n.accepted.Count()
}

// ResidentCount returns only the points currently held in memory, excluding
// anything already flushed. The memory governor sizes its estimate off this,
// not AcceptedCount, since flushed points no longer occupy resident memory.
func (n *Node) ResidentCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.accepted.Count()
}

// AppendAccepted adds a single accepted point to the node's resident sample.
func (n *Node) AppendAccepted(p data.Point) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted.AddPoint(p)
}

// ReplaceAccepted swaps in a freshly built accepted batch (used by the
// reduction pass to leave a child only the points it did not promote).
func (n *Node) ReplaceAccepted(batch *data.PointBatch) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = batch
}

// DropAccepted frees the resident accepted buffer, keeping the schema so a
// later AppendAccepted still has somewhere to write. Used by flush().
func (n *Node) DropAccepted(schema *data.Schema) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = data.NewPointBatch(schema)
}

func (n *Node) SetChild(octant uint8) {
	n.mu.Lock()
	n.children[octant] = true
	n.mu.Unlock()
}

func (n *Node) HasChild(octant uint8) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.children[octant]
}

func (n *Node) IsLeaf() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, c := range n.children {
		if c {
			return false
		}
	}
	return true
}

func (n *Node) Persisted() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.persisted
}

// RecordFlush marks n persisted and folds count resident points into the
// node's cumulative persisted count. Call it with the resident point count
// right before DropAccepted, so AcceptedCount keeps reflecting the node's
// full history once the resident buffer is cleared.
func (n *Node) RecordFlush(count int) {
	n.mu.Lock()
	n.persisted = true
	n.persistedCount += count
	n.mu.Unlock()
}
