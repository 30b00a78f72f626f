// Package wallet defines the wallet and network collaborator used by the
// flow executor. Implementations live under internal/adapters/wallet.
package wallet

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Unit is a denomination accepted by Send.
type Unit string

const (
	UnitSat Unit = "sat"
	UnitBCH Unit = "bch"
)

// SatsPerBCH is the number of satoshis in one coin.
const SatsPerBCH = 100_000_000

// ParseUnit normalizes a unit string. Empty means bch.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bch":
		return UnitBCH, nil
	case "sat", "sats", "satoshi", "satoshis":
		return UnitSat, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// ToSats converts value in unit to satoshis, rounding to the nearest sat.
func ToSats(value float64, unit Unit) (int64, error) {
	switch unit {
	case UnitSat:
		return int64(math.Round(value)), nil
	case UnitBCH, "":
		return int64(math.Round(value * SatsPerBCH)), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
}

// Output is one transaction output.
type Output struct {
	Address string  `json:"address"`
	Value   float64 `json:"value"`
	Unit    Unit    `json:"unit"`
}

// SendResult is returned by a successful Send.
type SendResult struct {
	TxID string `json:"txId"`
	Fee  int64  `json:"fee"`
}

// Balance of an address.
type Balance struct {
	Sat int64   `json:"sat"`
	BCH float64 `json:"bch"`
}

// NewBalance builds a Balance from satoshis.
func NewBalance(sat int64) Balance {
	return Balance{Sat: sat, BCH: float64(sat) / SatsPerBCH}
}

// Handle is a per-run wallet.
type Handle interface {
	Address() string
	WatchOnly() bool
	Send(ctx context.Context, outputs []Output) (SendResult, error)
	Balance(ctx context.Context) (Balance, error)
}

// Secret is the key material of a generated wallet.
type Secret struct {
	Address  string `json:"address"`
	WIF      string `json:"wif"`
	Mnemonic string `json:"mnemonic"`
}

// Provider creates handles.
type Provider interface {
	// CreateRandom mints a fresh wallet and returns its key material, which
	// the caller must back up.
	CreateRandom(ctx context.Context) (Handle, Secret, error)
	FromWIF(ctx context.Context, wif string) (Handle, error)
	FromMnemonic(ctx context.Context, mnemonic string) (Handle, error)
	Watch(ctx context.Context, address string) (Handle, error)
}

// Credential is the persisted default wallet.
type Credential struct {
	WIF      string `json:"wif,omitempty"`
	Mnemonic string `json:"mnemonic,omitempty"`
	Address  string `json:"address,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Empty reports whether c carries no key material.
func (c Credential) Empty() bool {
	return c.WIF == "" && c.Mnemonic == ""
}

// CredentialStore reads the persisted default credential.
type CredentialStore interface {
	// Default returns the stored credential. ok is false when none exists.
	Default(ctx context.Context) (cred Credential, ok bool, err error)
}
