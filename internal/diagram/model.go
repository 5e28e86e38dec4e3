package diagram

// Model is the intermediate representation used by all renderers.
type Model struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents one scenario node in the diagram.
type Node struct {
	ID      string
	Label   string
	Kind    string // schema.NodeType value
	Current bool   // highlighted as the simulation's position
}

// Edge represents a connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}
