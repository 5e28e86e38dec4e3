package diagram

import (
	"arsflow/pkg/schema"
)

// Build converts a scenario into a renderable model. currentNodeID, when
// non-empty, marks the node a running simulation sits on. Levels are
// computed breadth-first from the start nodes; unreachable nodes land in
// a trailing level so they still show up.
func Build(sc *schema.Scenario, currentNodeID string) (*Model, error) {
	if len(sc.Nodes) == 0 {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "scenario %q has no nodes", sc.ID)
	}

	m := &Model{Title: sc.Name}

	byID := make(map[string]*Node, len(sc.Nodes))
	for i := range sc.Nodes {
		n := &sc.Nodes[i]
		label := n.Name
		if label == "" {
			label = n.NodeType.DefaultLabel()
		}
		dn := &Node{
			ID:      n.NodeID,
			Label:   label,
			Kind:    string(n.NodeType),
			Current: n.NodeID == currentNodeID,
		}
		byID[n.NodeID] = dn
		m.Nodes = append(m.Nodes, dn)
	}

	adjacency := make(map[string][]string)
	for _, conn := range sc.Connections {
		label := conn.Label
		if label == "" && conn.Condition != "" {
			label = conn.Condition
		}
		m.Edges = append(m.Edges, Edge{From: conn.SourceNodeID, To: conn.TargetNodeID, Label: label})
		adjacency[conn.SourceNodeID] = append(adjacency[conn.SourceNodeID], conn.TargetNodeID)
	}

	m.Levels = layoutLevels(sc, adjacency)
	return m, nil
}

func layoutLevels(sc *schema.Scenario, adjacency map[string][]string) [][]string {
	var frontier []string
	for _, n := range sc.Nodes {
		if n.NodeType == schema.NodeTypeStart {
			frontier = append(frontier, n.NodeID)
		}
	}

	visited := make(map[string]bool)
	var levels [][]string
	for len(frontier) > 0 {
		var level, next []string
		for _, id := range frontier {
			if visited[id] {
				continue
			}
			visited[id] = true
			level = append(level, id)
			next = append(next, adjacency[id]...)
		}
		if len(level) > 0 {
			levels = append(levels, level)
		}
		frontier = next
	}

	// Orphans at the bottom.
	var orphans []string
	for _, n := range sc.Nodes {
		if !visited[n.NodeID] {
			orphans = append(orphans, n.NodeID)
		}
	}
	if len(orphans) > 0 {
		levels = append(levels, orphans)
	}
	return levels
}
