package wallet

import (
	"context"

	corewallet "github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
)

// Provider creates wallet handles backed by a Ledger.
type Provider struct {
	ledger  *Ledger
	mainnet bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithTestnet derives testnet addresses and WIFs.
func WithTestnet() Option {
	return func(p *Provider) { p.mainnet = false }
}

// NewProvider returns a mainnet provider over ledger.
func NewProvider(ledger *Ledger, opts ...Option) *Provider {
	p := &Provider{ledger: ledger, mainnet: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ledger returns the backing ledger.
func (p *Provider) Ledger() *Ledger { return p.ledger }

// CreateRandom implements wallet.Provider.
func (p *Provider) CreateRandom(ctx context.Context) (corewallet.Handle, corewallet.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, corewallet.Secret{}, err
	}
	kp, err := newKeyPair(p.mainnet)
	if err != nil {
		return nil, corewallet.Secret{}, err
	}
	secret := corewallet.Secret{Address: kp.address, WIF: kp.wif(p.mainnet), Mnemonic: kp.mnemonic}
	return p.handle(kp.address, false), secret, nil
}

// FromWIF implements wallet.Provider.
func (p *Provider) FromWIF(ctx context.Context, wif string) (corewallet.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kp, err := keyPairFromWIF(wif, p.mainnet)
	if err != nil {
		return nil, err
	}
	return p.handle(kp.address, false), nil
}

// FromMnemonic implements wallet.Provider.
func (p *Provider) FromMnemonic(ctx context.Context, mnemonic string) (corewallet.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kp, err := keyPairFromMnemonic(mnemonic, p.mainnet)
	if err != nil {
		return nil, err
	}
	return p.handle(kp.address, false), nil
}

// Watch implements wallet.Provider.
func (p *Provider) Watch(ctx context.Context, address string) (corewallet.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateAddress(address); err != nil {
		return nil, err
	}
	return p.handle(address, true), nil
}

func (p *Provider) handle(address string, watchOnly bool) *handle {
	return &handle{address: address, watchOnly: watchOnly, ledger: p.ledger}
}

type handle struct {
	address   string
	watchOnly bool
	ledger    *Ledger
}

func (h *handle) Address() string { return h.address }
func (h *handle) WatchOnly() bool { return h.watchOnly }

func (h *handle) Send(ctx context.Context, outputs []corewallet.Output) (corewallet.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return corewallet.SendResult{}, err
	}
	if h.watchOnly {
		return corewallet.SendResult{}, corewallet.ErrWatchOnly
	}
	sats := make([]SatOutput, 0, len(outputs))
	for _, o := range outputs {
		if err := validateAddress(o.Address); err != nil {
			return corewallet.SendResult{}, err
		}
		n, err := corewallet.ToSats(o.Value, o.Unit)
		if err != nil {
			return corewallet.SendResult{}, err
		}
		sats = append(sats, SatOutput{Address: o.Address, Sats: n})
	}
	tx, err := h.ledger.Transfer(h.address, sats)
	if err != nil {
		return corewallet.SendResult{}, err
	}
	return corewallet.SendResult{TxID: tx.TxID, Fee: tx.Fee}, nil
}

func (h *handle) Balance(ctx context.Context) (corewallet.Balance, error) {
	if err := ctx.Err(); err != nil {
		return corewallet.Balance{}, err
	}
	return corewallet.NewBalance(h.ledger.Balance(h.address)), nil
}
