package compiler

import (
	"strings"

	"github.com/hrflow/hrflow/engine"
	"github.com/hrflow/hrflow/graph"
	"github.com/hrflow/hrflow/model"
)

// buildConnections converts domain edges into the engine's connection map.
// The injected entry node feeds every root; condition nodes split their
// outgoing edges across the true/false output ports; everything else fans
// out on port 0 in canonical edge order.
func buildConnections(ordered []model.WorkflowNode, edges []model.WorkflowEdge, entryName string) engine.Connections {
	conns := engine.Connections{}
	nameById := make(map[int64]string, len(ordered))
	for _, n := range ordered {
		nameById[n.Id] = nodeName(n)
	}

	var entryTargets []engine.Target
	roots := graph.Roots(ordered, edges)
	if len(roots) == 0 && len(ordered) > 0 {
		roots = ordered[:1]
	}
	for _, r := range roots {
		entryTargets = append(entryTargets, mainTarget(nameById[r.Id]))
	}
	if len(entryTargets) > 0 {
		conns[entryName] = engine.NodePorts{Main: [][]engine.Target{entryTargets}}
	}

	outgoing := graph.SortedOutgoing(edges)
	for _, node := range ordered {
		out := outgoing[node.Id]
		if len(out) == 0 {
			continue
		}
		ports := make(map[int][]engine.Target)
		assignments := portAssignments(node, out)
		maxPort := 0
		for i, e := range out {
			target, known := nameById[e.ToNodeId]
			if !known {
				continue
			}
			port := assignments[i]
			ports[port] = append(ports[port], mainTarget(target))
			if port > maxPort {
				maxPort = port
			}
		}
		if len(ports) == 0 {
			continue
		}
		main := make([][]engine.Target, maxPort+1)
		for port := 0; port <= maxPort; port++ {
			if ports[port] == nil {
				main[port] = []engine.Target{}
			} else {
				main[port] = ports[port]
			}
		}
		conns[nameById[node.Id]] = engine.NodePorts{Main: main}
	}
	return conns
}

// portAssignments maps each outgoing edge, in canonical order, to an output
// port. Non-condition nodes use port 0 throughout. Condition edges are
// matched on label text: "true" means port 0, "false" port 1, anything else
// port 0. When no label matches at all, assignment is positional - first
// edge true, second false, the rest true.
func portAssignments(node model.WorkflowNode, out []model.WorkflowEdge) []int {
	assignments := make([]int, len(out))
	if node.Kind != model.KIND_CONDITION {
		return assignments
	}
	matched := false
	for i, e := range out {
		label := strings.ToLower(e.Label)
		switch {
		case strings.Contains(label, "true"):
			assignments[i] = 0
			matched = true
		case strings.Contains(label, "false"):
			assignments[i] = 1
			matched = true
		}
	}
	if !matched {
		for i := range assignments {
			if i == 1 {
				assignments[i] = 1
			}
		}
	}
	return assignments
}

func mainTarget(name string) engine.Target {
	return engine.Target{Node: name, Type: engine.CONNECTION_TYPE_MAIN, Index: 0}
}
