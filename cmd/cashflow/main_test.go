package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walletadapter "github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/wallet"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
)

const bchDoc = `{
  "version": 1,
  "graph": {
    "id": "cli-flow",
    "name": "CLI flow",
    "chain": "bitcoincash",
    "nodes": [
      {"id": "split", "kind": "splitUTXO", "config": {"count": 2, "amount": 1000, "unit": "sat"}},
      {"id": "w", "kind": "wallet"},
      {"id": "gen", "kind": "generateWallet"}
    ],
    "edges": [{"id": "e1", "source": "w", "target": "split"}]
  }
}`

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// setEnv points every writable location at temp dirs.
func setEnv(t *testing.T) (backupDir, credDir string) {
	t.Helper()
	backupDir, credDir = t.TempDir(), t.TempDir()
	t.Setenv("CASHFLOW_BACKUP_DIR", backupDir)
	t.Setenv("CASHFLOW_CREDENTIAL_DIR", credDir)
	t.Setenv("CASHFLOW_FAUCET_SATS", "100000")
	t.Setenv("CASHFLOW_SIM_DELAY", "0s")
	t.Setenv("CASHFLOW_NETWORK", "mainnet")
	t.Setenv("CASHFLOW_LOG_LEVEL", "error")
	t.Setenv("CASHFLOW_SNAPSHOT_DSN", "")
	t.Setenv("CASHFLOW_BACKUP_KEY", "")
	return backupDir, credDir
}

func exec(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), &stdout, &stderr, args)
	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "want ExitError, got %v", err)
	return exitErr.Code
}

func TestRun_Version(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		want      string
	}{
		{
			name:      "version with dev defaults",
			version:   "dev",
			commit:    "unknown",
			buildTime: "unknown",
			want:      "cashflow dev (commit: unknown, built: unknown)\n",
		},
		{
			name:      "version with custom values",
			version:   "v1.0.0",
			commit:    "abc123",
			buildTime: "2024-01-01",
			want:      "cashflow v1.0.0 (commit: abc123, built: 2024-01-01)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldVersion, oldCommit, oldBuildTime := Version, Commit, BuildTime
			defer func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuildTime }()
			Version, Commit, BuildTime = tt.version, tt.commit, tt.buildTime

			out, _, err := exec("version")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRun_Usage(t *testing.T) {
	_, stderr, err := exec()
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, stderr, "Usage:")

	out, _, err := exec("help")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands:")

	_, _, err = exec("deploy")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), `unknown command "deploy"`)

	_, _, err = exec("order", "-bogus")
	assert.Equal(t, 2, exitCode(t, err))

	_, _, err = exec("order")
	assert.Equal(t, 2, exitCode(t, err))
}

func TestOrderCmd(t *testing.T) {
	path := writeDoc(t, "flow.yaml", `
id: cyc
chain: algorand
nodes:
  - {id: a, kind: account}
  - {id: b, kind: signTxn}
  - {id: c, kind: submitTxn}
  - {id: p, kind: payment}
edges:
  - {id: e1, source: b, target: c}
  - {id: e2, source: c, target: b}
  - {id: e3, source: a, target: p}
`)
	out, _, err := exec("order", "-file", path)
	require.NoError(t, err)
	assert.Equal(t, "a\np\nexcluded (cycle): b, c\n", out)

	out, _, err = exec("order", "-file", path, "-json")
	require.NoError(t, err)
	var res dto.OrderResponse
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"a", "p"}, res.Order)
	assert.Equal(t, []string{"b", "c"}, res.Excluded)
}

func TestValidateCmd(t *testing.T) {
	out, _, err := exec("validate", "-file", writeDoc(t, "ok.json", bchDoc))
	require.NoError(t, err)
	assert.Equal(t, "graph cli-flow is valid: 3 node(s), 1 edge(s)\n", out)

	bad := strings.Replace(bchDoc, `"generateWallet"`, `"assetCreate"`, 1)
	_, _, err = exec("validate", "-file", writeDoc(t, "bad.json", bad))
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, err.Error(), "invalid graph")

	_, _, err = exec("validate", "-file", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 1, exitCode(t, err))
}

func TestEmitCmd(t *testing.T) {
	setEnv(t)
	t.Setenv("ALGOD_SERVER", "http://localhost")
	doc := writeDoc(t, "flow.json", bchDoc)

	out, _, err := exec("emit", "-file", doc)
	require.NoError(t, err)
	assert.Contains(t, out, `require("mainnet-js")`)
	assert.Contains(t, out, "const wallet_w = await Wallet.newRandom();")

	target := filepath.Join(t.TempDir(), "flow.js")
	out, stderr, err := exec("emit", "-file", doc, "-network", "testnet", "-out", target)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "wrote bitcoincash program to "+target)
	code, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(code), "TestNetWallet.newRandom()")

	_, _, err = exec("emit", "-file", doc, "-target", "evm")
	assert.Equal(t, 1, exitCode(t, err))
}

func TestRunCmd(t *testing.T) {
	backupDir, _ := setEnv(t)
	doc := writeDoc(t, "flow.json", bchDoc)

	out, stderr, err := exec("run", "-file", doc)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "[INFO] Starting flow CLI flow"), lines[0])
	assert.Contains(t, out, "[GEN] Generated ephemeral wallet")
	assert.Contains(t, out, "[SUCCESS] Split transaction")
	assert.Contains(t, out, "[BACKUP] Backed up 2 generated wallet(s)")
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "[FINISH]"))
	assert.Contains(t, stderr, "completed")

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	out, _, err = exec("run", "-file", doc, "-json", "-order", "insertion")
	require.NoError(t, err)
	var resp dto.RunResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, dto.RunStatusCompleted, resp.Status)
	require.Len(t, resp.Steps, 3)
	assert.Equal(t, "split", resp.Steps[0].NodeID)

	_, _, err = exec("run", "-file", doc, "-order", "random")
	assert.Equal(t, 2, exitCode(t, err))
}

func TestCredentialCmd(t *testing.T) {
	_, credDir := setEnv(t)
	ctx := context.Background()
	_, secret, err := walletadapter.NewProvider(walletadapter.NewLedger(walletadapter.LedgerConfig{})).CreateRandom(ctx)
	require.NoError(t, err)

	out, _, err := exec("credential", "-wif", secret.WIF, "-label", "main")
	require.NoError(t, err)
	assert.Contains(t, out, "saved default wallet "+secret.Address)
	assert.FileExists(t, filepath.Join(credDir, "cashlabs_default_wallet.json"))

	out, _, err = exec("run", "-file", writeDoc(t, "flow.json", bchDoc))
	require.NoError(t, err)
	assert.Contains(t, out, "using the saved default wallet: "+secret.Address)
	assert.Contains(t, out, "[BACKUP] Backed up 1 generated wallet(s)")

	_, _, err = exec("credential")
	assert.Equal(t, 2, exitCode(t, err))
	_, _, err = exec("credential", "-wif", "not-a-key")
	assert.Equal(t, 1, exitCode(t, err))
}
