package serialization

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
)

// DocumentVersion is the current graph document version.
const DocumentVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported graph document version")
	ErrEmptyDocument      = errors.New("graph document has no graph")
)

// GraphDocument is the portable file format of a flow.
type GraphDocument struct {
	Version int          `json:"version" yaml:"version" msgpack:"version"`
	Graph   *graph.Graph `json:"graph" yaml:"graph" msgpack:"graph"`
}

// FormatFromPath picks a codec name from a file extension; json is the
// default.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".msgpack", ".mp":
		return "msgpack"
	}
	return "json"
}

// ExportGraph encodes g as a versioned document.
func ExportGraph(g *graph.Graph, format string) ([]byte, error) {
	if g == nil {
		return nil, ErrEmptyDocument
	}
	codec, err := CodecByName(format)
	if err != nil {
		return nil, err
	}
	return codec.Encode(GraphDocument{Version: DocumentVersion, Graph: g})
}

// ImportGraph decodes a document produced by ExportGraph. A bare graph
// without the document wrapper is accepted as well.
func ImportGraph(data []byte, format string) (*graph.Graph, error) {
	codec, err := CodecByName(format)
	if err != nil {
		return nil, err
	}
	var doc GraphDocument
	if err := codec.Decode(data, &doc); err != nil {
		return nil, fmt.Errorf("decode graph document: %w", err)
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	if doc.Graph != nil {
		return doc.Graph, nil
	}

	var bare graph.Graph
	if err := codec.Decode(data, &bare); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	if len(bare.Nodes) == 0 && len(bare.Edges) == 0 && bare.ID == "" {
		return nil, ErrEmptyDocument
	}
	return &bare, nil
}
