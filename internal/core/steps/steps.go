// Package steps decodes canvas nodes into typed, kind-specific steps.
//
// Each chain has a closed set of step types and a visitor interface with
// one method per type. Emitters and the executor implement the visitors,
// so adding a kind without handling it everywhere fails to compile.
package steps

import "github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"

// Base is embedded by every step.
type Base struct {
	Node *graph.Node `json:"-" validate:"-"`
}

// NodeID returns the id of the underlying node.
func (b Base) NodeID() string { return b.Node.ID }

// Kind returns the kind of the underlying node.
func (b Base) Kind() graph.Kind { return b.Node.Kind }

// Name returns the label of the underlying node, or its id.
func (b Base) Name() string { return b.Node.DisplayName() }

// Step is the part shared by both chain unions.
type Step interface {
	NodeID() string
	Kind() graph.Kind
	Name() string
}

// Unsupported wraps a node whose kind is outside the chain vocabulary.
// Consumers treat it as a no-op.
type Unsupported struct {
	Base
}

// AcceptAlgorand dispatches to v.
func (s *Unsupported) AcceptAlgorand(v AlgorandVisitor) error { return v.VisitUnsupported(s) }

// AcceptUTXO dispatches to v.
func (s *Unsupported) AcceptUTXO(v UTXOVisitor) error { return v.VisitUnsupported(s) }
