// Package token is the client facade over a deployed ERC-20 token. Every
// operation resolves the active account once, talks to the contract through
// a handle cached per chain and reports failures as typed errors.
package token

import (
	"context"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/Mohsinsiddi/w3token/internal/contract"
	"github.com/Mohsinsiddi/w3token/internal/provider"
	"github.com/Mohsinsiddi/w3token/internal/session"
	tkerr "github.com/Mohsinsiddi/w3token/pkg/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// AccountInfo is the primary account and its native balance.
type AccountInfo struct {
	Address common.Address
	Wei     *big.Int
	Balance string // ETH, 18 decimals
}

// Metadata describes the token. Name and Symbol are empty when the contract
// does not expose them.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Overview is the dashboard view: supply, the account's balance and its share.
type Overview struct {
	Account    common.Address
	Supply     *big.Int
	Balance    *big.Int
	Decimals   uint8
	Percentage float64
}

// binding is a contract handle plus the decimals resolved for it.
type binding struct {
	*contract.Handle
	decimals uint8
}

// Client is the token facade. Create it with New and release it with Close.
type Client struct {
	session  *session.Manager
	artifact *contract.Artifact
	override common.Address
	decimals uint8 // 0 means ask the contract

	mu    sync.Mutex
	bound *binding

	stopEvents func()
	done       chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithContractAddress attaches to addr on every chain instead of the
// artifact's deployments.
func WithContractAddress(addr common.Address) Option {
	return func(c *Client) { c.override = addr }
}

// WithDecimals pins the decimals used for amounts instead of reading them
// from the contract. Zero keeps the contract's value.
func WithDecimals(d uint8) Option {
	return func(c *Client) { c.decimals = d }
}

// New returns a facade over s for the token described by art. It subscribes
// once to the session stream to drop the cached contract handle whenever the
// chain changes.
func New(s *session.Manager, art *contract.Artifact, opts ...Option) *Client {
	c := &Client{
		session:  s,
		artifact: art,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	events, cancel := s.Subscribe()
	c.stopEvents = cancel
	go c.watch(events)
	return c
}

func (c *Client) watch(events <-chan provider.Event) {
	defer close(c.done)
	for ev := range events {
		if ev.Kind == provider.ChainChanged {
			c.invalidate()
			log.Debug().Int64("chain", ev.ChainID).Msg("chain changed, dropped contract handle")
		}
	}
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.bound = nil
	c.mu.Unlock()
}

// Close stops listening for session changes.
func (c *Client) Close() {
	c.stopEvents()
	<-c.done
}

// Decimals returns the decimals amounts are scaled by on the session's chain.
func (c *Client) Decimals(ctx context.Context) (uint8, error) {
	b, err := c.attach(ctx, "token.Decimals", tkerr.ErrContractRead)
	if err != nil {
		return 0, err
	}
	return b.decimals, nil
}

// FormatAmount renders raw token units in display units.
func FormatAmount(raw *big.Int, decimals uint8) string {
	return chain.FormatUnits(raw, int(decimals))
}

// ValidateAddress reports whether s is a well-formed address. It never
// touches the provider.
func (c *Client) ValidateAddress(s string) bool {
	return provider.IsAddress(s)
}

// AccountSnapshot resolves the primary account, then its native balance.
// Either failure discards the whole snapshot.
func (c *Client) AccountSnapshot(ctx context.Context) (*AccountInfo, error) {
	const op = "token.AccountSnapshot"
	acct, err := c.session.PrimaryAccount(ctx)
	if err != nil {
		return nil, tkerr.Wrap(tkerr.ErrAccountResolution, op, err)
	}
	wei, err := c.session.Provider().Balance(ctx, acct)
	if err != nil {
		return nil, tkerr.New(tkerr.ErrAccountResolution, op, err)
	}
	return &AccountInfo{Address: acct, Wei: wei, Balance: chain.WeiToETH(wei)}, nil
}

// TotalSupply returns the raw total supply.
func (c *Client) TotalSupply(ctx context.Context) (*big.Int, error) {
	const op = "token.TotalSupply"
	b, err := c.attach(ctx, op, tkerr.ErrContractRead)
	if err != nil {
		return nil, err
	}
	return supplyOf(ctx, op, b)
}

// AccountTokenBalance returns the raw token balance of the current account.
func (c *Client) AccountTokenBalance(ctx context.Context) (*big.Int, error) {
	const op = "token.AccountTokenBalance"
	acct, err := c.session.CurrentAccount(ctx)
	if err != nil {
		return nil, err
	}
	b, err := c.attach(ctx, op, tkerr.ErrContractRead)
	if err != nil {
		return nil, err
	}
	return balanceOf(ctx, op, b, acct)
}

// Overview reads supply and balance for one resolved account from one
// attached contract.
func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	const op = "token.Overview"
	acct, err := c.session.CurrentAccount(ctx)
	if err != nil {
		return nil, err
	}
	b, err := c.attach(ctx, op, tkerr.ErrContractRead)
	if err != nil {
		return nil, err
	}
	supply, err := supplyOf(ctx, op, b)
	if err != nil {
		return nil, err
	}
	bal, err := balanceOf(ctx, op, b, acct)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Account:    acct,
		Supply:     supply,
		Balance:    bal,
		Decimals:   b.decimals,
		Percentage: Percentage(bal, supply),
	}, nil
}

func supplyOf(ctx context.Context, op string, b *binding) (*big.Int, error) {
	supply, err := b.TotalSupply(ctx)
	if err != nil {
		return nil, tkerr.New(tkerr.ErrContractRead, op, err)
	}
	return supply, nil
}

func balanceOf(ctx context.Context, op string, b *binding, acct common.Address) (*big.Int, error) {
	bal, err := b.BalanceOf(ctx, acct)
	if err != nil {
		return nil, tkerr.New(tkerr.ErrContractRead, op, err)
	}
	return bal, nil
}

// Metadata reads name and symbol. Only a failure to attach is an error;
// missing or reverting accessors leave their field empty.
func (c *Client) Metadata(ctx context.Context) (*Metadata, error) {
	const op = "token.Metadata"
	b, err := c.attach(ctx, op, tkerr.ErrContractRead)
	if err != nil {
		return nil, err
	}
	md := &Metadata{Decimals: b.decimals}
	if name, err := b.Name(ctx); err == nil {
		md.Name = name
	} else {
		log.Debug().Err(err).Msg("token name unavailable")
	}
	if sym, err := b.Symbol(ctx); err == nil {
		md.Symbol = sym
	} else {
		log.Debug().Err(err).Msg("token symbol unavailable")
	}
	return md, nil
}

// attach returns the cached binding for the session's chain, attaching anew
// when there is none. Failures are reported as kind.
func (c *Client) attach(ctx context.Context, op string, kind *tkerr.Error) (*binding, error) {
	if !c.session.State().ProviderPresent {
		return nil, tkerr.New(tkerr.ErrProviderUnavailable, op, nil)
	}
	chainID, ok := c.session.ChainID()
	if !ok {
		return nil, tkerr.New(tkerr.ErrProviderUnavailable, op, nil)
	}

	c.mu.Lock()
	b := c.bound
	c.mu.Unlock()
	if b != nil && b.ChainID() == chainID {
		return b, nil
	}

	p := c.session.Provider()
	target := contract.Target{ChainID: chainID}
	if c.override == (common.Address{}) {
		// Truffle keys deployments by network id, which need not match the
		// chain id (Ganache UI: 5777 vs 1337).
		if id, err := p.NetworkID(ctx); err == nil {
			target.NetworkID = id
		} else {
			log.Debug().Err(err).Msg("network id unavailable, resolving deployment by chain id")
		}
	}
	h, err := contract.Attach(ctx, c.artifact, target, c.override, p)
	if err != nil {
		return nil, tkerr.New(kind, op, err)
	}

	b = &binding{Handle: h, decimals: c.decimals}
	if b.decimals == 0 {
		if dec, err := h.Decimals(ctx); err == nil {
			b.decimals = dec
		} else {
			b.decimals = chain.EtherDecimals
			log.Debug().Err(err).Msg("token decimals unavailable, assuming 18")
		}
	}

	c.mu.Lock()
	c.bound = b
	c.mu.Unlock()
	log.Debug().Str("address", h.Address().Hex()).Int64("chain", chainID).
		Uint8("decimals", b.decimals).Msg("attached to token contract")
	return b, nil
}

// Percentage returns balance as a percentage of supply. A zero or missing
// supply yields 0.
func Percentage(balance, supply *big.Int) float64 {
	if balance == nil || supply == nil || supply.Sign() == 0 {
		return 0
	}
	q := new(big.Float).Quo(new(big.Float).SetInt(balance), new(big.Float).SetInt(supply))
	pct, _ := q.Mul(q, big.NewFloat(100)).Float64()
	return pct
}
