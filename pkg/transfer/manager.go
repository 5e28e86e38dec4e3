package transfer

import (
	"context"
	"encoding/json"

	"arsflow/internal/expressions"
	"arsflow/internal/validation"
	"arsflow/pkg/schema"
)

// Manager imports and exports scenarios as JSON documents. Imports pass the
// full validation pipeline before they are accepted; exports produce the
// canonical document shape, optionally narrowed by a jq filter.
type Manager struct {
	validator *validation.ScenarioValidator
	jq        *expressions.GoJQEngine
}

// NewManager creates a Manager. jq may be nil to disable filtered exports.
func NewManager(validator *validation.ScenarioValidator, jq *expressions.GoJQEngine) *Manager {
	return &Manager{validator: validator, jq: jq}
}

// Import parses and validates an uploaded document. The ValidationResult is
// returned alongside the error so callers can present the full issue list;
// an invalid document never yields a usable document value.
func (m *Manager) Import(data []byte) (*schema.ScenarioDocument, *schema.ValidationResult, error) {
	var doc schema.ScenarioDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "document is not valid JSON: "+err.Error())
		return nil, r, schema.NewError(schema.ErrCodeValidation, "document is not valid JSON").WithCause(err)
	}

	result := m.validator.Validate(&doc)
	if !result.Valid() {
		return nil, result, result.ToError()
	}
	return &doc, result, nil
}

// Export renders a scenario as the canonical document, indented.
func (m *Manager) Export(sc *schema.Scenario) ([]byte, error) {
	doc := FromScenario(sc)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "encode scenario %q", sc.ID).WithCause(err)
	}
	return data, nil
}

// ExportFiltered exports a scenario and applies a jq filter to the document.
// An empty filter behaves like Export but returns the decoded value.
func (m *Manager) ExportFiltered(ctx context.Context, sc *schema.Scenario, filter string) (any, error) {
	data, err := m.Export(sc)
	if err != nil {
		return nil, err
	}

	var docMap map[string]any
	if err := json.Unmarshal(data, &docMap); err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "reparse exported document").WithCause(err)
	}
	if filter == "" {
		return docMap, nil
	}
	if m.jq == nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "jq filtering is not enabled")
	}
	return m.jq.Evaluate(ctx, filter, docMap)
}

// FromScenario maps a stored scenario into the document shape.
func FromScenario(sc *schema.Scenario) *schema.ScenarioDocument {
	doc := &schema.ScenarioDocument{
		Scenario: schema.DocumentScenario{
			Name:        sc.Name,
			Description: sc.Description,
			Category:    sc.Category,
			Version:     sc.Version,
			Metadata:    sc.Metadata,
		},
	}
	for _, n := range sc.Nodes {
		doc.Nodes = append(doc.Nodes, schema.DocumentNode{
			ID:       n.NodeID,
			Type:     n.NodeType,
			Label:    n.Name,
			Position: schema.DocumentPoint{X: n.PositionX, Y: n.PositionY},
			Config:   n.Config,
		})
	}
	for _, conn := range sc.Connections {
		doc.Edges = append(doc.Edges, schema.DocumentEdge{
			Source:    conn.SourceNodeID,
			Target:    conn.TargetNodeID,
			Condition: conn.Condition,
			Label:     conn.Label,
		})
	}
	return doc
}

// ToScenario maps a validated document into a scenario ready for creation.
// The caller assigns the id.
func ToScenario(doc *schema.ScenarioDocument) *schema.Scenario {
	sc := &schema.Scenario{
		Name:        doc.Scenario.Name,
		Description: doc.Scenario.Description,
		Category:    doc.Scenario.Category,
		Version:     doc.Scenario.Version,
		Status:      schema.ScenarioStatusDraft,
		Metadata:    doc.Scenario.Metadata,
	}
	if sc.Version == "" {
		sc.Version = "1.0"
	}
	for _, n := range doc.Nodes {
		name := n.Label
		if name == "" {
			name = n.Type.DefaultLabel()
		}
		sc.Nodes = append(sc.Nodes, schema.ScenarioNode{
			NodeID:    n.ID,
			NodeType:  n.Type,
			Name:      name,
			PositionX: n.Position.X,
			PositionY: n.Position.Y,
			Config:    n.Config,
		})
	}
	for _, e := range doc.Edges {
		sc.Connections = append(sc.Connections, schema.Connection{
			SourceNodeID: e.Source,
			TargetNodeID: e.Target,
			Condition:    e.Condition,
			Label:        e.Label,
		})
	}
	return sc
}
