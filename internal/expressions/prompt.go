package expressions

import (
	"encoding/json"
	"fmt"
	"strings"

	"arsflow/pkg/schema"
)

// PromptScope holds the data available when rendering message text.
type PromptScope struct {
	Session  map[string]any // session variables accumulated during the call
	Inputs   map[string]any // caller inputs keyed by input node id
	Scenario map[string]any // scenario metadata (name, category, version)
}

// PromptRenderer resolves ${{...}} references in message node text, so prompts
// can say things like "잔액은 ${{session.balance}}원입니다".
type PromptRenderer struct{}

// NewPromptRenderer creates a PromptRenderer.
func NewPromptRenderer() *PromptRenderer {
	return &PromptRenderer{}
}

// Render resolves all ${{...}} tokens in text against the scope.
func (r *PromptRenderer) Render(text string, scope *PromptScope) (string, error) {
	if scope == nil {
		scope = &PromptScope{}
	}

	var result strings.Builder
	result.Grow(len(text))

	i := 0
	for i < len(text) {
		idx := strings.Index(text[i:], "${{")
		if idx == -1 {
			result.WriteString(text[i:])
			break
		}

		result.WriteString(text[i : i+idx])
		start := i + idx + 3 // skip "${{".

		end := strings.Index(text[start:], "}}")
		if end == -1 {
			return "", schema.NewError(schema.ErrCodeExecution, "unclosed ${{ reference in message text")
		}
		end += start

		expr := strings.TrimSpace(text[start:end])

		// Reject recursive interpolation: no nested ${{ inside the reference.
		if strings.Contains(expr, "${{") {
			return "", schema.NewError(schema.ErrCodeExecution,
				"nested interpolation not allowed: ${{...}} cannot contain ${{")
		}

		if expr == "" {
			return "", schema.NewError(schema.ErrCodeExecution, "empty variable reference: ${{  }}")
		}

		val, err := r.resolve(expr, scope)
		if err != nil {
			return "", err
		}

		result.WriteString(stringify(val))
		i = end + 2 // skip "}}".
	}

	return result.String(), nil
}

// HasPlaceholders checks if message text contains any ${{...}} references.
func HasPlaceholders(text string) bool {
	return strings.Contains(text, "${{")
}

// resolve resolves a single reference like "session.balance" or "inputs.input-5".
func (r *PromptRenderer) resolve(expr string, scope *PromptScope) (any, error) {
	parts := strings.SplitN(expr, ".", 2)
	namespace := parts[0]
	if len(parts) < 2 || parts[1] == "" {
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"invalid reference %q: expected <namespace>.<field>", expr).
			WithDetails(map[string]any{"expression": expr})
	}

	var data map[string]any
	switch namespace {
	case "session":
		data = scope.Session
	case "inputs":
		data = scope.Inputs
	case "scenario":
		data = scope.Scenario
	default:
		available := []string{"session", "inputs", "scenario"}
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"unknown namespace %q in ${{%s}}; available: %s", namespace, expr, strings.Join(available, ", ")).
			WithDetails(map[string]any{"expression": expr, "available_namespaces": available})
	}

	if data == nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"cannot resolve %q: %s scope is empty", expr, namespace).
			WithDetails(map[string]any{"expression": expr})
	}

	fieldPath := parts[1]

	// Try direct key lookup first (supports keys with dots, like node ids).
	if val, ok := data[fieldPath]; ok {
		return val, nil
	}

	return traversePath(data, fieldPath, expr)
}

// traversePath navigates into nested maps using a dot-delimited path.
func traversePath(root any, path, expr string) (any, error) {
	segments := strings.Split(path, ".")
	current := root

	for i, seg := range segments {
		if seg == "" {
			return nil, schema.NewErrorf(schema.ErrCodeExecution,
				"empty segment in path %q at position %d", expr, i).
				WithDetails(map[string]any{"expression": expr})
		}

		switch v := current.(type) {
		case map[string]any:
			val, ok := v[seg]
			if !ok {
				availableKeys := mapKeys(v)
				return nil, schema.NewErrorf(schema.ErrCodeExecution,
					"field %q not found in %q; available: [%s]", seg, expr, strings.Join(availableKeys, ", ")).
					WithDetails(map[string]any{"expression": expr, "available_fields": availableKeys})
			}
			current = val
		default:
			return nil, schema.NewErrorf(schema.ErrCodeExecution,
				"cannot traverse into non-object at %q in %q (type: %T)", seg, expr, current).
				WithDetails(map[string]any{"expression": expr})
		}
	}

	return current, nil
}

// stringify converts a resolved value into its spoken-text representation.
func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// mapKeys returns sorted keys from a map[string]any.
func mapKeys(m map[string]any) []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Simple insertion sort for small slices.
	for i := 1; i < len(keys); i++ {
		key := keys[i]
		j := i - 1
		for j >= 0 && keys[j] > key {
			keys[j+1] = keys[j]
			j--
		}
		keys[j+1] = key
	}
	return keys
}
