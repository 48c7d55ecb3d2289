// Package provider is the wallet-provider boundary: account authorization,
// account and chain queries, contract calls, transaction submission and
// change notifications. Two implementations exist: RPC, where the node or an
// external wallet holds the keys, and Keyring, where a local key from the OS
// keychain signs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// Provider kinds accepted by Open.
const (
	KindRPC     = "rpc"
	KindKeyring = "keyring"
)

// DefaultPollInterval is how often account and chain changes are checked.
const DefaultPollInterval = 2 * time.Second

// Provider is the capability the session manager and token client consume.
type Provider interface {
	// RequestAccounts asks the wallet to authorize this client. It may block
	// until the user answers in the wallet.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns the currently exposed accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (int64, error)
	// NetworkID returns net_version. Truffle artifacts key deployments by it.
	NetworkID(ctx context.Context) (int64, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	Code(ctx context.Context, account common.Address) ([]byte, error)
	Call(ctx context.Context, msg CallMsg) ([]byte, error)
	// SendTransaction submits a state-changing transaction from msg.From.
	// Gas and nonce are left to the wallet.
	SendTransaction(ctx context.Context, msg CallMsg) (common.Hash, error)
	// WaitMined blocks until hash is mined or ctx is done.
	WaitMined(ctx context.Context, hash common.Hash) (*chain.TxReceipt, error)
	// Subscribe streams account and chain changes until ctx is done.
	Subscribe(ctx context.Context) <-chan Event
}

// CallMsg describes a contract call or transaction.
type CallMsg struct {
	From  common.Address // zero means unset
	To    common.Address
	Data  []byte
	Value *big.Int
}

func (m CallMsg) args() chain.TxArgs {
	a := chain.TxArgs{To: m.To.Hex(), Data: m.Data, Value: m.Value}
	if m.From != (common.Address{}) {
		a.From = m.From.Hex()
	}
	return a
}

// EventKind discriminates change notifications.
type EventKind int

const (
	AccountsChanged EventKind = iota + 1
	ChainChanged
)

func (k EventKind) String() string {
	switch k {
	case AccountsChanged:
		return "accountsChanged"
	case ChainChanged:
		return "chainChanged"
	default:
		return "unknown"
	}
}

// Event is a wallet state change.
type Event struct {
	Kind     EventKind
	Accounts []common.Address // set for AccountsChanged; empty means locked
	ChainID  int64            // set for ChainChanged
	At       time.Time
}

// Options configure providers created by Open.
type Options struct {
	PollInterval time.Duration
	Limiter      *chain.RateLimiter
	Signer       Signer // required for KindKeyring
}

// Open builds a provider of the given kind against rpcURL. An empty URL
// means no provider is present; the caller reports that as unavailable.
func Open(kind, rpcURL string, opts Options) (Provider, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, ErrNoEndpoint
	}
	var clientOpts []chain.Option
	if opts.Limiter != nil {
		clientOpts = append(clientOpts, chain.WithRateLimiter(opts.Limiter))
	}
	client := chain.NewEVMClient(rpcURL, clientOpts...)

	switch kind {
	case "", KindRPC:
		return NewRPC(client, opts.PollInterval), nil
	case KindKeyring:
		if opts.Signer == nil {
			return nil, fmt.Errorf("keyring provider needs a signing wallet")
		}
		return NewKeyring(client, opts.Signer, opts.PollInterval), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q (want %s or %s)", kind, KindRPC, KindKeyring)
	}
}

// Errors.
var (
	ErrNoEndpoint = errors.New("no provider endpoint configured")
	ErrRejected   = errors.New("request rejected in wallet")
	ErrReverted   = errors.New("execution reverted")
)

// walletErr tags wallet refusals and reverts so callers can tell them apart
// from transport failures. The RPC error stays in the chain.
func walletErr(err error) error {
	switch {
	case err == nil:
		return nil
	case chain.IsRPCCode(err, chain.CodeUserRejected), chain.IsRPCCode(err, chain.CodeUnauthorized):
		return fmt.Errorf("%w: %w", ErrRejected, err)
	case chain.IsRPCCode(err, chain.CodeExecutionFailure):
		return fmt.Errorf("%w: %w", ErrReverted, err)
	default:
		return err
	}
}

func toAddresses(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("provider returned malformed account %q", s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}
