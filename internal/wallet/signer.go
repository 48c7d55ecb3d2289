package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs EVM transactions with a key held in the Keystore. The key is
// read from the keychain on Unlock and kept in memory for the process.
type Signer struct {
	name string
	ks   *Keystore

	mu   sync.Mutex
	priv *ecdsa.PrivateKey
}

// NewSigner creates a signer for the named wallet.
func NewSigner(name string, ks *Keystore) *Signer {
	return &Signer{name: name, ks: ks}
}

// Unlock loads the key and returns its address.
func (s *Signer) Unlock() (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.priv != nil {
		return crypto.PubkeyToAddress(s.priv.PublicKey), nil
	}

	hexKey, err := s.ks.Retrieve(s.name)
	if err != nil {
		return common.Address{}, fmt.Errorf("retrieving key: %w", err)
	}
	priv, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	s.priv = priv
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}

// SignTx signs an EVM transaction and returns the raw signed bytes.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	s.mu.Lock()
	priv := s.priv
	s.mu.Unlock()
	if priv == nil {
		return nil, fmt.Errorf("wallet %q is locked", s.name)
	}

	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), priv)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, nil
}

// Name returns the wallet name.
func (s *Signer) Name() string { return s.name }
