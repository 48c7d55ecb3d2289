package provider

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog/log"
)

// receiptPollInterval is how often WaitMined asks for a receipt.
const receiptPollInterval = 2 * time.Second

// node holds the read paths shared by every provider kind.
type node struct {
	client   *chain.EVMClient
	interval time.Duration
}

func newNode(client *chain.EVMClient, interval time.Duration) node {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return node{client: client, interval: interval}
}

// pollConfig skips a change poll when the endpoint's rate budget cannot
// cover both of its requests right now.
func (n node) pollConfig() PollConfig {
	return PollConfig{
		Interval: n.interval,
		Ready:    func() bool { return n.client.Ready(2) },
	}
}

func (n node) NetworkID(ctx context.Context) (int64, error) {
	return n.client.NetworkID(ctx)
}

func (n node) ChainID(ctx context.Context) (int64, error) {
	return n.client.ChainID(ctx)
}

func (n node) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := n.client.GetBalance(ctx, account.Hex())
	if err != nil {
		return nil, err
	}
	return bal.Wei, nil
}

func (n node) Code(ctx context.Context, account common.Address) ([]byte, error) {
	return n.client.GetCode(ctx, account.Hex())
}

func (n node) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	out, err := n.client.CallContract(ctx, msg.args())
	return out, walletErr(err)
}

func (n node) WaitMined(ctx context.Context, hash common.Hash) (*chain.TxReceipt, error) {
	return n.client.WaitForReceipt(ctx, hash.Hex(), receiptPollInterval)
}

// RPC is a provider whose accounts are managed by the endpoint itself: a dev
// node with unlocked accounts or a wallet that speaks JSON-RPC. The endpoint
// signs, so transfers go through eth_sendTransaction.
type RPC struct {
	node
}

// NewRPC wraps client as a provider.
func NewRPC(client *chain.EVMClient, pollInterval time.Duration) *RPC {
	return &RPC{node: newNode(client, pollInterval)}
}

// RequestAccounts calls eth_requestAccounts, falling back to eth_accounts on
// nodes that do not implement the EIP-1102 method.
func (p *RPC) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	raw, err := p.client.RequestAccounts(ctx)
	if chain.IsRPCCode(err, chain.CodeMethodNotFound) {
		log.Debug().Str("endpoint", p.client.URL()).Msg("eth_requestAccounts unsupported, using eth_accounts")
		raw, err = p.client.Accounts(ctx)
	}
	if err != nil {
		return nil, walletErr(err)
	}
	return toAddresses(raw)
}

// Accounts calls eth_accounts.
func (p *RPC) Accounts(ctx context.Context) ([]common.Address, error) {
	raw, err := p.client.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	return toAddresses(raw)
}

// SendTransaction hands the unsigned transaction to the endpoint.
func (p *RPC) SendTransaction(ctx context.Context, msg CallMsg) (common.Hash, error) {
	if msg.From == (common.Address{}) {
		return common.Hash{}, fmt.Errorf("transaction has no sender")
	}
	hash, err := p.client.SendTransaction(ctx, msg.args())
	if err != nil {
		return common.Hash{}, walletErr(err)
	}
	return parseHash(hash)
}

// Subscribe polls for account and chain changes.
func (p *RPC) Subscribe(ctx context.Context) <-chan Event {
	return Poll(ctx, p, p.pollConfig())
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("provider returned malformed tx hash %q", s)
	}
	return common.BytesToHash(b), nil
}
