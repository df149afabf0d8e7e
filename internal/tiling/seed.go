package tiling

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/lodtiler/octiler/internal/octree"
)

// DeriveSeed produces a deterministic per-(node, batch) RNG seed from the
// node key and the batch's arrival index, so RandomSorted (and any future
// randomized strategy) reproduces identical acceptance decisions across
// runs over identical input (§4.1 "Determinism").
func DeriveSeed(key octree.NodeKey, batchIndex uint64) uint64 {
	buf := make([]byte, len(key)+8)
	copy(buf, key)
	binary.LittleEndian.PutUint64(buf[len(key):], batchIndex)
	return xxhash.Sum64(buf)
}
