package octree

import "strings"

// NodeKey is a variable-length path of octant indices from the root. The
// root is the empty key; depth equals key length. Each byte is an octant
// digit in [0,8), stored as its ASCII '0'..'7' so the key doubles as a map
// key and, via String, as the node's on-disk file name.
type NodeKey string

// RootKey is the empty key identifying the tree root.
const RootKey NodeKey = ""

func (k NodeKey) Depth() int { return len(k) }

// Child returns the key of the given octant child of k.
func (k NodeKey) Child(octant uint8) NodeKey {
	return k + NodeKey('0'+octant)
}

// Parent returns k's parent key and true, or ("", false) if k is the root.
func (k NodeKey) Parent() (NodeKey, bool) {
	if len(k) == 0 {
		return "", false
	}
	return k[:len(k)-1], true
}

// Octant returns the octant digit this key occupies within its parent.
// Only valid for non-root keys.
func (k NodeKey) Octant() uint8 {
	if len(k) == 0 {
		return 0
	}
	return k[len(k)-1] - '0'
}

// String renders the key as the octal path used for node file names, with
// the root rendered as "r" (§4.4).
func (k NodeKey) String() string {
	if k == RootKey {
		return "r"
	}
	return string(k)
}

// ParseNodeKey is the inverse of String, accepting "r" for the root.
func ParseNodeKey(s string) NodeKey {
	if s == "r" {
		return RootKey
	}
	return NodeKey(s)
}

// IsAncestorOf reports whether k is a strict prefix of other.
func (k NodeKey) IsAncestorOf(other NodeKey) bool {
	return len(other) > len(k) && strings.HasPrefix(string(other), string(k))
}
