package graph

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"arsflow/pkg/schema"
)

// Position is the canvas placement of a node. Pure presentation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is the editor-side view of a scenario node.
type Node struct {
	ID       string            `json:"id"`
	Type     schema.NodeType   `json:"type"`
	Label    string            `json:"label"`
	Position Position          `json:"position"`
	Config   schema.NodeConfig `json:"config,omitempty"`
}

// Edge is the editor-side view of a connection.
type Edge struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Condition string `json:"condition,omitempty"`
	Label     string `json:"label,omitempty"`
}

// Session holds one editing session's node and edge sets. It is the single
// source of truth between load and save; nothing is persisted until the
// caller hands the sets to the persistence client.
type Session struct {
	mu       sync.Mutex
	nodes    []Node
	edges    []Edge
	selected string
	counter  int
	loaded   []string // node ids present at load time; save deletes these first
}

// NewSession creates an empty editing session.
func NewSession() *Session {
	return &Session{counter: 1}
}

// Load replaces the session contents with a freshly fetched graph and seeds
// the id counter to 1 + the highest numeric suffix found in existing node
// ids, so ids minted after a reload cannot collide.
func (s *Session) Load(nodes []Node, edges []Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = append([]Node(nil), nodes...)
	s.edges = append([]Edge(nil), edges...)
	s.selected = ""
	s.loaded = make([]string, 0, len(nodes))

	maxSuffix := 0
	for _, n := range nodes {
		s.loaded = append(s.loaded, n.ID)
		if idx := strings.LastIndex(n.ID, "-"); idx >= 0 {
			if v, err := strconv.Atoi(n.ID[idx+1:]); err == nil && v > maxSuffix {
				maxSuffix = v
			}
		}
	}
	s.counter = maxSuffix + 1
}

// AddNode appends a new node of the given type at the given position.
// The id is synthesized as {type}-{counter} and the label defaults per type.
func (s *Session) AddNode(t schema.NodeType, pos Position) (Node, error) {
	if !t.Valid() {
		return Node{}, schema.NewErrorf(schema.ErrCodeValidation, "unknown node type %q", string(t))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := Node{
		ID:       fmt.Sprintf("%s-%d", t, s.counter),
		Type:     t,
		Label:    t.DefaultLabel(),
		Position: pos,
	}
	s.counter++
	s.nodes = append(s.nodes, n)
	return n, nil
}

// Connect appends a new edge between two existing nodes. No cycle or
// type-compatibility check is performed; an end node's output can be wired.
func (s *Session) Connect(source, target string) (Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(source) < 0 {
		return Edge{}, schema.NewErrorf(schema.ErrCodeNotFound, "source node %q not in graph", source)
	}
	if s.indexOf(target) < 0 {
		return Edge{}, schema.NewErrorf(schema.ErrCodeNotFound, "target node %q not in graph", target)
	}

	e := Edge{
		ID:     "edge-" + uuid.New().String(),
		Source: source,
		Target: target,
	}
	s.edges = append(s.edges, e)
	return e, nil
}

// Select marks a node as the inspector's current target.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not in graph", id)
	}
	s.selected = id
	return nil
}

// Selected returns a copy of the currently selected node, if any.
func (s *Session) Selected() (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(s.selected)
	if i < 0 {
		return Node{}, false
	}
	return s.nodes[i], true
}

// UpdateSelectedLabel rewrites the selected node's display name.
func (s *Session) UpdateSelectedLabel(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(s.selected)
	if i < 0 {
		return schema.NewError(schema.ErrCodeNotFound, "no node selected")
	}
	s.nodes[i].Label = label
	return nil
}

// UpdateSelectedConfig replaces the selected node's config bag. The variant
// must match the node's type so a branch node cannot carry message fields.
func (s *Session) UpdateSelectedConfig(cfg schema.NodeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(s.selected)
	if i < 0 {
		return schema.NewError(schema.ErrCodeNotFound, "no node selected")
	}
	if cfg != nil && cfg.Kind() != s.nodes[i].Type {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"config kind %s does not match node type %s", cfg.Kind(), s.nodes[i].Type)
	}
	s.nodes[i].Config = cfg
	return nil
}

// MoveNode updates a node's canvas position.
func (s *Session) MoveNode(id string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not in graph", id)
	}
	s.nodes[i].Position = pos
	return nil
}

// DeleteSelected removes the selected node and every edge touching it.
// Start nodes are non-deletable; the graph is left unchanged.
func (s *Session) DeleteSelected() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(s.selected)
	if i < 0 {
		return schema.NewError(schema.ErrCodeNotFound, "no node selected")
	}
	if s.nodes[i].Type == schema.NodeTypeStart {
		return schema.NewError(schema.ErrCodeInvalidAction, "start node cannot be deleted")
	}

	id := s.nodes[i].ID
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source == id || e.Target == id {
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	s.selected = ""
	return nil
}

// Nodes returns a copy of the node set in insertion order.
func (s *Session) Nodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Node(nil), s.nodes...)
}

// Edges returns a copy of the edge set in insertion order.
func (s *Session) Edges() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Edge(nil), s.edges...)
}

// LoadedNodeIDs returns the node ids that were present when Load ran.
func (s *Session) LoadedNodeIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.loaded...)
}

// indexOf returns the position of a node id, or -1. Caller holds mu.
func (s *Session) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, n := range s.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
