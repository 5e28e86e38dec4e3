package expressions

import "context"

// Engine evaluates expressions against simulation and scenario data.
// Three implementations: CEL (edge conditions), Expr (input validation rules),
// GoJQ (export filters).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
