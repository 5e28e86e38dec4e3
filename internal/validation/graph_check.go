package validation

import (
	"fmt"

	"arsflow/pkg/schema"
)

// validateGraph performs flow analysis: reachability from the start node
// (BFS over directed edges) and dangling-node detection. Cycles are legal in
// call flows (repeat-menu loops), so none of these are hard errors.
func validateGraph(doc *schema.ScenarioDocument) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	var startID string
	outgoing := make(map[string][]string, len(doc.Nodes))
	types := make(map[string]schema.NodeType, len(doc.Nodes))

	for _, n := range doc.Nodes {
		types[n.ID] = n.Type
		if n.Type == schema.NodeTypeStart {
			startID = n.ID
		}
	}
	for _, e := range doc.Edges {
		outgoing[e.Source] = append(outgoing[e.Source], e.Target)
	}
	// Branch option targets are transitions too.
	for _, n := range doc.Nodes {
		if n.Type != schema.NodeTypeBranch {
			continue
		}
		cfg, err := schema.DecodeConfig(n.Type, n.Config)
		if err != nil {
			continue
		}
		for _, opt := range cfg.(*schema.BranchConfig).Branches {
			if opt.Target != "" {
				outgoing[n.ID] = append(outgoing[n.ID], opt.Target)
			}
		}
	}

	// BFS from the start node.
	reachable := map[string]bool{startID: true}
	queue := []string{startID}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range outgoing[node] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, n := range doc.Nodes {
		if !reachable[n.ID] {
			result.AddWarning(fmt.Sprintf("nodes[%s]", n.ID), schema.ErrCodeValidation,
				fmt.Sprintf("node %q is unreachable from the start node", n.ID))
		}
		// Non-terminal nodes with no way out strand the caller.
		if n.Type != schema.NodeTypeEnd && n.Type != schema.NodeTypeTransfer && len(outgoing[n.ID]) == 0 {
			result.AddWarning(fmt.Sprintf("nodes[%s]", n.ID), schema.ErrCodeValidation,
				fmt.Sprintf("%s node %q has no outgoing transition", n.Type, n.ID))
		}
	}

	return result
}
