// Package wallet implements the wallet provider on top of go-sdk key
// primitives and an in-memory ledger.
package wallet

import (
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"

	corewallet "github.com/nickthelegend/cashlabs-flow-sub000/internal/core/wallet"
)

const (
	entropyBits    = 128
	testnetWIFByte = 0xef
)

var cashAddrPrefixes = []string{"bitcoincash:", "bchtest:", "bchreg:"}

// keyPair is a private key and the address it controls.
type keyPair struct {
	priv     *ec.PrivateKey
	address  string
	mnemonic string
}

func (k keyPair) wif(mainnet bool) string {
	if mainnet {
		return k.priv.Wif()
	}
	return k.priv.WifPrefix(testnetWIFByte)
}

// newKeyPair draws fresh entropy and derives a key from its mnemonic.
func newKeyPair(mainnet bool) (keyPair, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return keyPair{}, fmt.Errorf("entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return keyPair{}, fmt.Errorf("mnemonic: %w", err)
	}
	return keyPairFromMnemonic(mnemonic, mainnet)
}

// keyPairFromMnemonic derives the key from the first 32 bytes of the
// BIP39 seed (empty passphrase).
func keyPairFromMnemonic(mnemonic string, mainnet bool) (keyPair, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return keyPair{}, fmt.Errorf("%w: %v", corewallet.ErrInvalidMnemonic, err)
	}
	priv, _ := ec.PrivateKeyFromBytes(seed[:32])
	kp, err := pairFor(priv, mainnet)
	if err != nil {
		return keyPair{}, err
	}
	kp.mnemonic = mnemonic
	return kp, nil
}

func keyPairFromWIF(wif string, mainnet bool) (keyPair, error) {
	priv, err := ec.PrivateKeyFromWif(strings.TrimSpace(wif))
	if err != nil {
		return keyPair{}, fmt.Errorf("%w: %v", corewallet.ErrInvalidWIF, err)
	}
	return pairFor(priv, mainnet)
}

func pairFor(priv *ec.PrivateKey, mainnet bool) (keyPair, error) {
	addr, err := script.NewAddressFromPublicKey(priv.PubKey(), mainnet)
	if err != nil {
		return keyPair{}, fmt.Errorf("address: %w", err)
	}
	return keyPair{priv: priv, address: addr.AddressString}, nil
}

// validateAddress accepts base58 P2PKH addresses and prefixed cash
// addresses.
func validateAddress(address string) error {
	address = strings.TrimSpace(address)
	for _, p := range cashAddrPrefixes {
		if strings.HasPrefix(strings.ToLower(address), p) {
			if len(address) < len(p)+34 {
				return fmt.Errorf("%w: %q", corewallet.ErrInvalidAddress, address)
			}
			return nil
		}
	}
	if _, err := script.NewAddressFromString(address); err != nil {
		return fmt.Errorf("%w: %q", corewallet.ErrInvalidAddress, address)
	}
	return nil
}
