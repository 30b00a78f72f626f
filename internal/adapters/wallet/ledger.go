package wallet

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	corewallet "github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
)

// LedgerConfig configures a Ledger.
type LedgerConfig struct {
	// InitialBalance credits every address the first time it is seen.
	InitialBalance int64
	// FeePerByte used for the size-based fee estimate. Defaults to 1.
	FeePerByte int64
	// DustLimit is the smallest accepted output. Defaults to 546.
	DustLimit int64
}

// Transaction is a ledger entry.
type Transaction struct {
	TxID    string      `json:"txid"`
	From    string      `json:"from"`
	Outputs []SatOutput `json:"outputs"`
	Fee     int64       `json:"fee"`
	Time    time.Time   `json:"time"`
}

// SatOutput is an output denominated in satoshis.
type SatOutput struct {
	Address string `json:"address"`
	Sats    int64  `json:"sats"`
}

// Ledger is an in-memory stand-in for the network: balances per address
// and an append-only transaction list. Safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	cfg      LedgerConfig
	balances map[string]int64
	seen     map[string]bool
	txs      []Transaction
}

// NewLedger returns an empty ledger.
func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.FeePerByte <= 0 {
		cfg.FeePerByte = 1
	}
	if cfg.DustLimit <= 0 {
		cfg.DustLimit = 546
	}
	return &Ledger{
		cfg:      cfg,
		balances: make(map[string]int64),
		seen:     make(map[string]bool),
	}
}

// Fund credits sats to address.
func (l *Ledger) Fund(address string, sats int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.touchLocked(address)
	l.balances[address] += sats
}

// Balance returns the balance of address in satoshis.
func (l *Ledger) Balance(address string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.touchLocked(address)
	return l.balances[address]
}

// EstimateFee returns the fee of a one-input transaction with n outputs.
func (l *Ledger) EstimateFee(n int) int64 {
	size := int64(10 + 148 + 34*(n+1)) // +1 change
	return size * l.cfg.FeePerByte
}

// Transfer moves funds from one address to the outputs.
func (l *Ledger) Transfer(from string, outputs []SatOutput) (Transaction, error) {
	if len(outputs) == 0 {
		return Transaction{}, corewallet.ErrNoOutputs
	}
	var total int64
	for _, o := range outputs {
		if o.Sats < l.cfg.DustLimit {
			return Transaction{}, fmt.Errorf("%w: %d sat to %s", corewallet.ErrDustOutput, o.Sats, o.Address)
		}
		total += o.Sats
	}
	fee := l.EstimateFee(len(outputs))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.touchLocked(from)
	if have := l.balances[from]; have < total+fee {
		return Transaction{}, fmt.Errorf("%w: have %d sat, need %d sat", corewallet.ErrInsufficientFunds, have, total+fee)
	}

	tx := Transaction{From: from, Outputs: append([]SatOutput(nil), outputs...), Fee: fee, Time: time.Now().UTC()}
	raw, err := json.Marshal(struct {
		Seq int `json:"seq"`
		Transaction
	}{len(l.txs), tx})
	if err != nil {
		return Transaction{}, err
	}
	tx.TxID = chainhash.DoubleHashH(raw).String()

	l.balances[from] -= total + fee
	for _, o := range outputs {
		l.touchLocked(o.Address)
		l.balances[o.Address] += o.Sats
	}
	l.txs = append(l.txs, tx)
	return tx, nil
}

// Transactions returns all transactions in submission order.
func (l *Ledger) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transaction(nil), l.txs...)
}

func (l *Ledger) touchLocked(address string) {
	if l.seen[address] {
		return
	}
	l.seen[address] = true
	l.balances[address] += l.cfg.InitialBalance
}
