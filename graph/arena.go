package graph

// Arena assigns dense integer indexes to nodes as they are first seen.
// Pipelines use the indexes instead of the nodes themselves for visited
// sets and in-flight bookkeeping, which keeps those sets allocation-light
// and independent of how heavy the node values are.
//
// An Arena is not safe for concurrent use; each traversal owns its own.
type Arena[N comparable] struct {
	indexes map[N]int
	nodes   []N
}

// NewArena returns an empty arena.
func NewArena[N comparable]() *Arena[N] {
	return &Arena[N]{indexes: map[N]int{}}
}

// Index returns the node's index, assigning the next free one on first
// sight.
func (a *Arena[N]) Index(n N) int {
	if i, ok := a.indexes[n]; ok {
		return i
	}
	i := len(a.nodes)
	a.indexes[n] = i
	a.nodes = append(a.nodes, n)
	return i
}

// Lookup returns the node's index without assigning one.
func (a *Arena[N]) Lookup(n N) (int, bool) {
	i, ok := a.indexes[n]
	return i, ok
}

// Node returns the node stored at index i.
func (a *Arena[N]) Node(i int) N {
	return a.nodes[i]
}

// Len returns how many nodes have been interned.
func (a *Arena[N]) Len() int {
	return len(a.nodes)
}
