// Package graph computes deterministic traversal orders over workflow
// graphs. The order is used for stable node naming and layout, not for
// scheduling; graphs may contain cycles and unreachable components.
package graph

import (
	"cmp"

	"github.com/hrflow/hrflow/model"
	"golang.org/x/exp/slices"
)

// Roots returns the nodes with no incoming edge, in input order.
func Roots(nodes []model.WorkflowNode, edges []model.WorkflowEdge) []model.WorkflowNode {
	incoming := make(map[int64]bool, len(edges))
	for _, e := range edges {
		incoming[e.ToNodeId] = true
	}
	var roots []model.WorkflowNode
	for _, n := range nodes {
		if !incoming[n.Id] {
			roots = append(roots, n)
		}
	}
	return roots
}

// SortedOutgoing groups edges by source node, each group sorted by ascending
// priority with insertion order breaking ties. This is the canonical edge
// order everywhere a node's outgoing edges are walked.
func SortedOutgoing(edges []model.WorkflowEdge) map[int64][]model.WorkflowEdge {
	outgoing := make(map[int64][]model.WorkflowEdge)
	for _, e := range edges {
		outgoing[e.FromNodeId] = append(outgoing[e.FromNodeId], e)
	}
	for id := range outgoing {
		slices.SortStableFunc(outgoing[id], func(a, b model.WorkflowEdge) int {
			return cmp.Compare(a.Priority, b.Priority)
		})
	}
	return outgoing
}

// Order returns every node exactly once. Traversal starts from the first
// root (or the first node when no root exists) and walks depth-first along
// sorted outgoing edges; nodes the walk never reaches are appended in input
// order. The traversal is stack-based so cyclic graphs cannot overflow.
func Order(nodes []model.WorkflowNode, edges []model.WorkflowEdge) []model.WorkflowNode {
	if len(nodes) == 0 {
		return []model.WorkflowNode{}
	}
	byId := make(map[int64]model.WorkflowNode, len(nodes))
	for _, n := range nodes {
		byId[n.Id] = n
	}
	outgoing := SortedOutgoing(edges)

	start := nodes[0]
	if roots := Roots(nodes, edges); len(roots) > 0 {
		start = roots[0]
	}

	ordered := make([]model.WorkflowNode, 0, len(nodes))
	visited := make(map[int64]bool, len(nodes))
	stack := []int64{start.Id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		node, found := byId[id]
		if !found {
			continue
		}
		ordered = append(ordered, node)
		out := outgoing[id]
		for i := len(out) - 1; i >= 0; i-- {
			if !visited[out[i].ToNodeId] {
				stack = append(stack, out[i].ToNodeId)
			}
		}
	}
	for _, n := range nodes {
		if !visited[n.Id] {
			visited[n.Id] = true
			ordered = append(ordered, n)
		}
	}
	return ordered
}
