package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walletadapter "github.com/nickthelegend/cashlabs-flow-sub000/internal/adapters/wallet"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/services"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/runlog"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/log"
)

func TestRun_AgainstLedger(t *testing.T) {
	ledger := walletadapter.NewLedger(walletadapter.LedgerConfig{InitialBalance: 10_000_000})
	provider := walletadapter.NewProvider(ledger)
	dir := t.TempDir()
	exporter, err := services.NewFileBackupExporter(dir, nil)
	require.NoError(t, err)

	receiver, _, err := provider.CreateRandom(context.Background())
	require.NoError(t, err)

	e := NewFlowExecutor(ExecutorConfig{Provider: provider, Backup: exporter, Logger: log.Nop})
	g := &graph.Graph{
		ID:    "ledger",
		Chain: graph.ChainBitcoinCash,
		Nodes: []*graph.Node{
			{ID: "w", Kind: graph.KindWallet},
			{ID: "split", Kind: graph.KindSplitUTXO, Config: graph.Config{"count": 2, "amount": 10000, "unit": "sat"}},
			{ID: "pay", Kind: graph.KindPayment, Config: graph.Config{"receiver": receiver.Address(), "amount": 0.01}},
			{ID: "bc", Kind: graph.KindBroadcast},
		},
		Edges: []*graph.Edge{
			{ID: "1", Source: "w", Target: "split"},
			{ID: "2", Source: "split", Target: "pay"},
			{ID: "3", Source: "pay", Target: "bc"},
		},
	}

	resp, err := e.Run(context.Background(), &dto.RunRequest{Graph: g})
	require.NoError(t, err)
	require.Empty(t, linesWith(resp.Log, runlog.TagError), resp.Log)
	assert.Equal(t, dto.RunStatusCompleted, resp.Status)

	txs := ledger.Transactions()
	require.Len(t, txs, 2)
	assert.Len(t, txs[0].Outputs, 2)
	assert.Equal(t, int64(1_000_000), txs[1].Outputs[0].Sats)
	assert.Equal(t, 11_000_000, int(ledger.Balance(receiver.Address())))

	require.NotNil(t, resp.Backup)
	assert.NotEmpty(t, resp.Backup.Location)
	restored, err := services.ReadBackup(resp.Backup.Location, nil)
	require.NoError(t, err)
	require.Len(t, restored.Wallets, 1)

	// the backed-up WIF controls the funded wallet
	again, err := provider.FromWIF(context.Background(), restored.Wallets[0].WIF)
	require.NoError(t, err)
	assert.Equal(t, txs[0].From, again.Address())
}
