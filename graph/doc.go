// Package graph provides the small traversal primitives the save and load
// pipelines share: an arena that interns nodes to dense integer indexes,
// and a depth-first walker answering reachability questions over a graph
// described by a neighbor function.
package graph
