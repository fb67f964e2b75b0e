package graph

// Walker runs depth-first traversals over a graph described solely by a
// neighbor function. Nodes are compared by equality, so traversals work on
// pointers, interned arena indexes, or identities alike.
type Walker[N comparable] struct {
	// Neighbors returns the nodes reachable from n in one hop.
	Neighbors func(n N) []N
}

// PathExists reports whether to is reachable from from, including the
// trivial case from == to. The visited set guarantees termination on
// cyclic graphs.
func (w Walker[N]) PathExists(from, to N) bool {
	visited := map[N]struct{}{}
	return w.search(from, to, visited)
}

func (w Walker[N]) search(cur, target N, visited map[N]struct{}) bool {
	if cur == target {
		return true
	}
	if _, seen := visited[cur]; seen {
		return false
	}
	visited[cur] = struct{}{}
	for _, next := range w.Neighbors(cur) {
		if w.search(next, target, visited) {
			return true
		}
	}
	return false
}

// CyclesBackTo reports whether any walk of at least one edge leads from
// root back to root. Cycles that do not pass through root are tolerated:
// once a node is visited it is never expanded again, so a side loop is
// entered once, found not to reach root, and abandoned.
func (w Walker[N]) CyclesBackTo(root N) bool {
	visited := map[N]struct{}{}
	for _, next := range w.Neighbors(root) {
		if w.search(next, root, visited) {
			return true
		}
	}
	return false
}
