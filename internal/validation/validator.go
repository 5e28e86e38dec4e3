package validation

import "arsflow/pkg/schema"

// Validator is the contract for scenario document validation.
type Validator interface {
	ValidateDocument(doc *schema.ScenarioDocument) error
}

// ConditionChecker verifies that an edge condition expression compiles.
// Satisfied by the CEL expression engine; nil skips condition checks.
type ConditionChecker interface {
	Check(expression string) error
}
