package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/config"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/checkpoint"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/log"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/flowgraph"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Config{
		App:     config.AppConfig{LogLevel: "info", Addr: "127.0.0.1:0"},
		Wallet:  config.WalletConfig{Network: "mainnet", FaucetSats: 100_000},
		Storage: config.StorageConfig{BackupDir: filepath.Join(t.TempDir(), "backups")},
		Algod:   config.AlgodConfig{Server: "https://testnet-api.algonode.cloud"},
	}
	rt, err := flowgraph.NewRuntime(context.Background(), cfg, flowgraph.WithLogger(log.Nop))
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return NewServer(rt).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func bchGraph() *graph.Graph {
	return &graph.Graph{
		ID:    "srv",
		Name:  "Server flow",
		Chain: graph.ChainBitcoinCash,
		Nodes: []*graph.Node{
			{ID: "w", Kind: graph.KindWallet},
			{ID: "x", Kind: graph.KindSetVariable, Config: graph.Config{"name": "X", "value": 5}},
			{ID: "m", Kind: graph.KindMathOp, Config: graph.Config{"variable": "X", "operation": "mul", "operand": 3}},
		},
		Edges: []*graph.Edge{{ID: "e1", Source: "x", Target: "m"}},
	}
}

func algoGraph() *graph.Graph {
	return &graph.Graph{
		ID:    "algo",
		Chain: graph.ChainAlgorand,
		Nodes: []*graph.Node{
			{ID: "acct", Kind: graph.KindAccount},
			{ID: "pay", Kind: graph.KindPayment, Config: graph.Config{"amount": 0.001, "receiver": "ADDR"}},
		},
		Edges: []*graph.Edge{{ID: "e1", Source: "acct", Target: "pay"}},
	}
}

func TestServer_Health(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = do(t, h, http.MethodGet, "/debug/vars", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cashflow_runs_active")
}

func TestServer_Graphs(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/v1/graphs", bchGraph())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/v1/graphs/srv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got graph.Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Server flow", got.Name)
	assert.Len(t, got.Nodes, 3)

	w = do(t, h, http.MethodGet, "/v1/graphs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []graph.Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	w = do(t, h, http.MethodGet, "/v1/graphs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	bad := bchGraph()
	bad.Edges = append(bad.Edges, &graph.Edge{ID: "dangling", Source: "w", Target: "nowhere"})
	w = do(t, h, http.MethodPost, "/v1/graphs", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/graphs", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON body")
}

func TestServer_OrderAndEmit(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/v1/order", algoGraph())
	require.Equal(t, http.StatusOK, w.Code)
	var order dto.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, []string{"acct", "pay"}, order.Order)
	assert.Empty(t, order.Excluded)

	w = do(t, h, http.MethodPost, "/v1/emit", dto.EmitRequest{Graph: algoGraph()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var emitted dto.EmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &emitted))
	assert.Equal(t, "algorand", emitted.Target)
	assert.Contains(t, emitted.Code, "amount: 1000,")
	assert.Contains(t, emitted.Code, `to: "ADDR",`)

	w = do(t, h, http.MethodPost, "/v1/emit", dto.EmitRequest{Graph: algoGraph(), Target: "evm"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, h, http.MethodPost, "/v1/emit", dto.EmitRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Run(t *testing.T) {
	h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/v1/run", dto.RunRequest{Graph: bchGraph()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.RunStatusCompleted, resp.Status)
	assert.Equal(t, 15.0, resp.Variables["X"])
	require.NotNil(t, resp.Backup)
	assert.Len(t, resp.Backup.Wallets, 1)

	w = do(t, h, http.MethodPost, "/v1/run", dto.RunRequest{Graph: algoGraph()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/v1/run/phase", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"phase":"idle"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# TYPE cashflow_runs_total counter")
	assert.Contains(t, w.Body.String(), `cashflow_runs_total{status="completed"}`)
}

func TestServer_RunStoredGraph(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/v1/graphs", bchGraph()).Code)

	w := do(t, h, http.MethodPost, "/v1/graphs/srv/run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = do(t, h, http.MethodGet, "/v1/runs/"+resp.RunID+"/snapshots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snaps []checkpoint.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snaps))
	require.Len(t, snaps, 3)
	assert.Equal(t, "w", snaps[0].NodeID)

	w = do(t, h, http.MethodPost, "/v1/graphs/nope/run", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/run", nil)
	req.Header.Set("Origin", "http://canvas.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
