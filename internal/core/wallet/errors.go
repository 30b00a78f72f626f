package wallet

import "errors"

var (
	ErrWatchOnly         = errors.New("wallet is watch-only")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidWIF        = errors.New("invalid WIF")
	ErrInvalidMnemonic   = errors.New("invalid mnemonic")
	ErrUnknownUnit       = errors.New("unknown unit")
	ErrNoOutputs         = errors.New("transaction has no outputs")
	ErrDustOutput        = errors.New("output below dust limit")
)
