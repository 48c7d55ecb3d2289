package provider

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"
)

// GasLimitTokenTransfer is used when the node cannot estimate a transfer.
const GasLimitTokenTransfer = uint64(60_000)

// Signer is a local signing wallet.
type Signer interface {
	// Unlock loads the key and returns its address.
	Unlock() (common.Address, error)
	// SignTx returns the raw signed transaction bytes.
	SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// Keyring is a provider whose single account is a key held in the OS
// keychain. Transactions are signed locally and broadcast raw.
type Keyring struct {
	node
	signer Signer

	mu       sync.Mutex
	account  common.Address
	unlocked bool
}

// NewKeyring wraps client and signer as a provider.
func NewKeyring(client *chain.EVMClient, signer Signer, pollInterval time.Duration) *Keyring {
	return &Keyring{node: newNode(client, pollInterval), signer: signer}
}

// RequestAccounts unlocks the key. A key that cannot be read counts as a
// refusal.
func (p *Keyring) RequestAccounts(_ context.Context) ([]common.Address, error) {
	addr, err := p.signer.Unlock()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.account, p.unlocked = addr, true
	p.mu.Unlock()
	return []common.Address{addr}, nil
}

// Accounts returns the unlocked account, or nothing before RequestAccounts.
func (p *Keyring) Accounts(_ context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.unlocked {
		return []common.Address{}, nil
	}
	return []common.Address{p.account}, nil
}

// SendTransaction fills nonce, gas and fees from the node, signs with the
// local key and broadcasts.
func (p *Keyring) SendTransaction(ctx context.Context, msg CallMsg) (common.Hash, error) {
	p.mu.Lock()
	account, unlocked := p.account, p.unlocked
	p.mu.Unlock()
	if !unlocked {
		return common.Hash{}, fmt.Errorf("wallet is locked")
	}
	if msg.From != account {
		return common.Hash{}, fmt.Errorf("cannot sign for %s: wallet holds %s", msg.From.Hex(), account.Hex())
	}

	chainID, err := p.client.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting chain id: %w", err)
	}
	nonce, err := p.client.GetPendingNonce(ctx, account.Hex())
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting nonce: %w", err)
	}
	gasPrice, err := p.client.GasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("getting gas price: %w", err)
	}
	gas, err := p.client.EstimateGas(ctx, msg.args())
	if err != nil {
		log.Debug().Err(err).Uint64("fallback", GasLimitTokenTransfer).Msg("gas estimate failed")
		gas = GasLimitTokenTransfer
	}

	value := msg.Value
	if value == nil {
		value = big.NewInt(0)
	}
	to := msg.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(chainID),
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      msg.Data,
	})

	raw, err := p.signer.SignTx(tx, big.NewInt(chainID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing transaction: %w", err)
	}
	hash, err := p.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("broadcasting transaction: %w", walletErr(err))
	}
	return parseHash(hash)
}

// Subscribe polls for chain changes; the account only changes on unlock.
func (p *Keyring) Subscribe(ctx context.Context) <-chan Event {
	return Poll(ctx, p, p.pollConfig())
}
