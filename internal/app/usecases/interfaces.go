package usecases

import (
	"context"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/checkpoint"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
)

// GraphRepository defines the interface for graph storage and retrieval
// PRINCIPLES:
// - SRP: Only responsible for graph persistence
// - DIP: Used for dependency injection
type GraphRepository interface {
	Save(ctx context.Context, g *graph.Graph) error
	Get(ctx context.Context, id string) (*graph.Graph, error)
	List(ctx context.Context) ([]*graph.Graph, error)
}

// FlowRunner defines the interface for executing flow graphs
// PRINCIPLES:
// - SRP: Single responsibility for run orchestration
// - DIP: Depends on abstractions, not concretions
type FlowRunner interface {
	// Run executes the graph in the request and returns its log and state
	Run(ctx context.Context, req *dto.RunRequest) (*dto.RunResponse, error)

	// Phase returns the current phase of the in-flight run, or idle
	Phase() Phase
}

// SnapshotManager records run state after each node
type SnapshotManager interface {
	Record(ctx context.Context, graphID, runID, nodeID string, step int, state checkpoint.State) (string, error)
}
