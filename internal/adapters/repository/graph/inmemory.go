package graphrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/validation"
)

// InMemoryGraphRepository keeps submitted flow graphs for the HTTP service.
// PRINCIPLES:
// - KISS: Simple map-based storage
// - SRP: Only responsible for graph persistence
// - Thread-safe, callers never share a stored graph
type InMemoryGraphRepository struct {
	mu     sync.RWMutex
	graphs map[string]*graph.Graph
}

func NewInMemoryGraphRepository() *InMemoryGraphRepository {
	return &InMemoryGraphRepository{
		graphs: make(map[string]*graph.Graph),
	}
}

// Save validates g and stores a copy, replacing any graph with the same ID.
func (r *InMemoryGraphRepository) Save(ctx context.Context, g *graph.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Cycles are legal here; the scheduler excludes the affected nodes.
	if err := validation.ValidateCoreGraph(g); err != nil {
		return fmt.Errorf("invalid graph: %w", err)
	}
	if g.ID == "" {
		return fmt.Errorf("invalid graph: missing id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[g.ID] = g.Clone()
	return nil
}

func (r *InMemoryGraphRepository) Get(ctx context.Context, id string) (*graph.Graph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[id]
	if !ok {
		return nil, graph.ErrGraphNotFound
	}
	return g.Clone(), nil
}

// List returns copies of all stored graphs ordered by ID.
func (r *InMemoryGraphRepository) List(ctx context.Context) ([]*graph.Graph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*graph.Graph, 0, len(r.graphs))
	for _, g := range r.graphs {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryGraphRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.graphs[id]; !ok {
		return graph.ErrGraphNotFound
	}
	delete(r.graphs, id)
	return nil
}
