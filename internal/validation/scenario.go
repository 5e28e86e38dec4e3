package validation

import "arsflow/pkg/schema"

// ScenarioValidator orchestrates the three-stage validation pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (start-node count, duplicate ids, edge endpoints, configs)
// 3. Graph (reachability, cycles)
type ScenarioValidator struct {
	jsonSchema *JSONSchemaValidator
	conditions ConditionChecker
}

// NewScenarioValidator creates a ScenarioValidator.
// checker may be nil to skip edge-condition compile checks.
func NewScenarioValidator(checker ConditionChecker) (*ScenarioValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &ScenarioValidator{
		jsonSchema: jsv,
		conditions: checker,
	}, nil
}

// Validate runs the full 3-stage pipeline and returns an aggregated result.
// Structural errors short-circuit: semantic and graph stages are skipped.
func (sv *ScenarioValidator) Validate(doc *schema.ScenarioDocument) *schema.ValidationResult {
	if doc == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "scenario document is nil")
		return r
	}

	// Stage 1: Structural (JSON Schema).
	result := validateStructural(sv.jsonSchema, doc)
	if !result.Valid() {
		return result
	}

	// Stage 2: Semantic.
	result.Merge(validateSemantic(doc, sv.conditions))

	// Stage 3: Graph (skip if semantic errors - node references may be invalid).
	if result.Valid() {
		result.Merge(validateGraph(doc))
	}

	return result
}

// ValidateDocument satisfies the Validator interface.
func (sv *ScenarioValidator) ValidateDocument(doc *schema.ScenarioDocument) error {
	return sv.Validate(doc).ToError()
}

// validateStructural wraps JSONSchemaValidator.ValidateDocument, converting
// its error output into ValidationResult.
func validateStructural(v *JSONSchemaValidator, doc *schema.ScenarioDocument) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	err := v.ValidateDocument(doc)
	if err == nil {
		return result
	}

	fe, ok := err.(*schema.FlowError)
	if !ok {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}

	if fe.Details != nil {
		if violations, ok := fe.Details["violations"].([]string); ok {
			for _, v := range violations {
				result.AddError("/", schema.ErrCodeValidation, v)
			}
			return result
		}
	}
	result.AddError("/", schema.ErrCodeValidation, fe.Message)
	return result
}
