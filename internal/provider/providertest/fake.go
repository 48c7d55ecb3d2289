// Package providertest provides an in-memory wallet provider for tests.
package providertest

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/Mohsinsiddi/w3token/internal/provider"
	"github.com/ethereum/go-ethereum/common"
)

// Fake is a scriptable provider.Provider. Exported fields may be set before
// use; use the setters once the fake is shared with a session.
type Fake struct {
	mu sync.Mutex

	accounts  []common.Address
	chainID   int64
	networkID int64
	balances  map[common.Address]*big.Int

	CodeBytes []byte
	CallFn    func(msg provider.CallMsg) ([]byte, error)
	Receipt   *chain.TxReceipt

	ChainErr    error
	NetworkErr  error
	RequestErr  error
	AccountsErr error
	BalanceErr  error
	CodeErr     error
	SendErr     error
	WaitErr     error

	calls  []string
	sent   []provider.CallMsg
	events chan provider.Event
	subs   int
}

var _ provider.Provider = (*Fake)(nil)

// New returns a fake on chainID exposing accounts, with contract code at
// every address and a successful receipt for every transaction.
func New(chainID int64, accounts ...common.Address) *Fake {
	return &Fake{
		accounts:  accounts,
		chainID:   chainID,
		balances:  make(map[common.Address]*big.Int),
		CodeBytes: []byte{0x60, 0x80},
		Receipt:   &chain.TxReceipt{Status: 1, BlockNumber: 1},
		events:    make(chan provider.Event, 64),
	}
}

func (f *Fake) record(method string) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()
}

// Calls returns the provider methods invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Sent returns the transactions submitted so far.
func (f *Fake) Sent() []provider.CallMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.CallMsg(nil), f.sent...)
}

// Subscriptions returns how many times Subscribe was called.
func (f *Fake) Subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs
}

// SetAccounts switches the exposed accounts and emits AccountsChanged.
func (f *Fake) SetAccounts(accounts ...common.Address) {
	f.mu.Lock()
	f.accounts = accounts
	f.mu.Unlock()
	f.Emit(provider.Event{Kind: provider.AccountsChanged, Accounts: accounts, At: time.Now()})
}

// SetChain switches the chain and emits ChainChanged.
func (f *Fake) SetChain(id int64) {
	f.mu.Lock()
	f.chainID = id
	f.mu.Unlock()
	f.Emit(provider.Event{Kind: provider.ChainChanged, ChainID: id, At: time.Now()})
}

// SetNetworkID makes NetworkID answer id instead of the chain id. It emits
// nothing; wallets do not announce network id changes.
func (f *Fake) SetNetworkID(id int64) {
	f.mu.Lock()
	f.networkID = id
	f.mu.Unlock()
}

// SetBalance sets the native balance of account.
func (f *Fake) SetBalance(account common.Address, wei *big.Int) {
	f.mu.Lock()
	f.balances[account] = wei
	f.mu.Unlock()
}

// Emit delivers ev to the active subscription.
func (f *Fake) Emit(ev provider.Event) {
	f.events <- ev
}

func (f *Fake) RequestAccounts(_ context.Context) ([]common.Address, error) {
	f.record("RequestAccounts")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RequestErr != nil {
		return nil, f.RequestErr
	}
	return append([]common.Address(nil), f.accounts...), nil
}

func (f *Fake) Accounts(_ context.Context) ([]common.Address, error) {
	f.record("Accounts")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AccountsErr != nil {
		return nil, f.AccountsErr
	}
	return append([]common.Address(nil), f.accounts...), nil
}

func (f *Fake) ChainID(_ context.Context) (int64, error) {
	f.record("ChainID")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID, f.ChainErr
}

func (f *Fake) NetworkID(_ context.Context) (int64, error) {
	f.record("NetworkID")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NetworkErr != nil {
		return 0, f.NetworkErr
	}
	if f.networkID != 0 {
		return f.networkID, nil
	}
	return f.chainID, nil
}

func (f *Fake) Balance(_ context.Context, account common.Address) (*big.Int, error) {
	f.record("Balance")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BalanceErr != nil {
		return nil, f.BalanceErr
	}
	if b, ok := f.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *Fake) Code(_ context.Context, _ common.Address) ([]byte, error) {
	f.record("Code")
	return f.CodeBytes, f.CodeErr
}

func (f *Fake) Call(_ context.Context, msg provider.CallMsg) ([]byte, error) {
	f.record("Call")
	if f.CallFn == nil {
		return nil, nil
	}
	return f.CallFn(msg)
}

func (f *Fake) SendTransaction(_ context.Context, msg provider.CallMsg) (common.Hash, error) {
	f.record("SendTransaction")
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	n := len(f.sent)
	f.mu.Unlock()
	if f.SendErr != nil {
		return common.Hash{}, f.SendErr
	}
	return common.BigToHash(big.NewInt(int64(n))), nil
}

func (f *Fake) WaitMined(ctx context.Context, hash common.Hash) (*chain.TxReceipt, error) {
	f.record("WaitMined")
	if f.WaitErr != nil {
		return nil, f.WaitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := *f.Receipt
	r.Hash = hash.Hex()
	return &r, nil
}

// Subscribe forwards emitted events until ctx is done.
func (f *Fake) Subscribe(ctx context.Context) <-chan provider.Event {
	f.record("Subscribe")
	f.mu.Lock()
	f.subs++
	f.mu.Unlock()

	out := make(chan provider.Event)
	go func() {
		defer close(out)
		for {
			select {
			case ev := <-f.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
