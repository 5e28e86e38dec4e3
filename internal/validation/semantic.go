package validation

import (
	"fmt"
	"strings"

	"arsflow/pkg/schema"
)

// validateSemantic performs semantic analysis on the scenario document.
// Checks: exactly one start node, duplicate node ids (named), edge endpoints
// present and resolvable (named by index), per-type config decodability,
// branch option integrity, edge-condition compilability.
func validateSemantic(doc *schema.ScenarioDocument, checker ConditionChecker) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	nodeIDs := make(map[string]bool, len(doc.Nodes))
	var dupes []string
	starts := 0

	for i, n := range doc.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)

		if nodeIDs[n.ID] {
			dupes = append(dupes, n.ID)
		}
		nodeIDs[n.ID] = true

		if n.Type == schema.NodeTypeStart {
			starts++
		}

		validateNodeConfig(&doc.Nodes[i], path, result)
	}

	if starts == 0 {
		result.AddError("nodes", schema.ErrCodeValidation, "scenario has no start node; exactly one is required")
	} else if starts > 1 {
		result.AddError("nodes", schema.ErrCodeValidation,
			fmt.Sprintf("scenario has %d start nodes; exactly one is required", starts))
	}

	if len(dupes) > 0 {
		result.AddError("nodes", schema.ErrCodeValidation,
			fmt.Sprintf("duplicate node ids: %s", strings.Join(dupes, ", ")))
	}

	for i, e := range doc.Edges {
		path := fmt.Sprintf("edges[%d]", i)

		if e.Source == "" {
			result.AddError(path+".source", schema.ErrCodeValidation,
				fmt.Sprintf("edge %d is missing a source node id", i))
		} else if !nodeIDs[e.Source] {
			result.AddError(path+".source", schema.ErrCodeValidation,
				fmt.Sprintf("edge %d references non-existent source node %q", i, e.Source))
		}

		if e.Target == "" {
			result.AddError(path+".target", schema.ErrCodeValidation,
				fmt.Sprintf("edge %d is missing a target node id", i))
		} else if !nodeIDs[e.Target] {
			result.AddError(path+".target", schema.ErrCodeValidation,
				fmt.Sprintf("edge %d references non-existent target node %q", i, e.Target))
		}

		if e.Condition != "" && checker != nil {
			if err := checker.Check(e.Condition); err != nil {
				result.AddError(path+".condition", schema.ErrCodeValidation,
					fmt.Sprintf("edge %d condition does not compile: %s", i, err.Error()))
			}
		}
	}

	// Branch option targets can only be checked once the full id set is known.
	for i, n := range doc.Nodes {
		if n.Type != schema.NodeTypeBranch {
			continue
		}
		cfg, err := schema.DecodeConfig(n.Type, n.Config)
		if err != nil {
			continue // already reported by validateNodeConfig
		}
		br := cfg.(*schema.BranchConfig)
		for j, opt := range br.Branches {
			if opt.Target != "" && !nodeIDs[opt.Target] {
				result.AddError(fmt.Sprintf("nodes[%d].config.branches[%d].target", i, j),
					schema.ErrCodeValidation,
					fmt.Sprintf("branch option %q targets non-existent node %q", opt.Key, opt.Target))
			}
		}
	}

	return result
}

// validateNodeConfig checks that a node's config bag decodes as its type's
// variant and flags type-specific issues.
func validateNodeConfig(n *schema.DocumentNode, path string, result *schema.ValidationResult) {
	cfg, err := schema.DecodeConfig(n.Type, n.Config)
	if err != nil {
		result.AddError(path+".config", schema.ErrCodeValidation,
			fmt.Sprintf("node %q: %s", n.ID, err.Error()))
		return
	}

	switch c := cfg.(type) {
	case *schema.MessageConfig:
		if c.Text == "" {
			result.AddWarning(path+".config.text", schema.ErrCodeValidation,
				fmt.Sprintf("message node %q has no text; nothing will be played", n.ID))
		}
	case *schema.BranchConfig:
		if len(c.Branches) == 0 {
			result.AddWarning(path+".config.branches", schema.ErrCodeValidation,
				fmt.Sprintf("branch node %q has no options", n.ID))
		}
		seen := make(map[string]bool, len(c.Branches))
		for j, opt := range c.Branches {
			if opt.Key == "" {
				result.AddError(fmt.Sprintf("%s.config.branches[%d].key", path, j),
					schema.ErrCodeValidation,
					fmt.Sprintf("branch node %q option %d has an empty key", n.ID, j))
				continue
			}
			if seen[opt.Key] {
				result.AddError(fmt.Sprintf("%s.config.branches[%d].key", path, j),
					schema.ErrCodeValidation,
					fmt.Sprintf("branch node %q has duplicate option key %q", n.ID, opt.Key))
			}
			seen[opt.Key] = true
		}
	case *schema.InputConfig:
		if c.InputType == "" {
			result.AddWarning(path+".config.input_type", schema.ErrCodeValidation,
				fmt.Sprintf("input node %q has no input type", n.ID))
		}
	}
}
