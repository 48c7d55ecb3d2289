// Package session owns the single authorized connection to a wallet provider:
// the active account, the current chain and the change-notification stream.
package session

import (
	"context"
	"slices"
	"sync"

	"github.com/Mohsinsiddi/w3token/internal/provider"
	tkerr "github.com/Mohsinsiddi/w3token/pkg/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// State is a snapshot of the session.
type State struct {
	ProviderPresent bool
	Account         *common.Address // nil until resolved or after the wallet locks
	ChainID         *int64          // nil until the provider answered
}

// Manager tracks one wallet session. All methods are safe for concurrent use.
type Manager struct {
	provider provider.Provider // nil means no provider was found

	mu          sync.Mutex
	state       State
	initialized bool
	closed      bool
	stopPump    context.CancelFunc
	pumpDone    chan struct{}
	subs        map[int]*subscriber
	nextSub     int
}

// New returns a manager for p. A nil p models a host without a wallet.
func New(p provider.Provider) *Manager {
	return &Manager{provider: p, subs: make(map[int]*subscriber)}
}

// Provider returns the underlying provider, or nil.
func (m *Manager) Provider() provider.Provider {
	return m.provider
}

// Initialize probes the provider and requests account authorization. The
// authorization request may block until the user answers in the wallet; it
// is bounded only by ctx and never retried. The provider's change stream is
// subscribed once, on the first successful call.
func (m *Manager) Initialize(ctx context.Context) error {
	const op = "session.Initialize"
	if m.provider == nil {
		return tkerr.New(tkerr.ErrProviderUnavailable, op, provider.ErrNoEndpoint)
	}

	chainID, err := m.provider.ChainID(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("provider probe failed")
		return tkerr.New(tkerr.ErrProviderUnavailable, op, err)
	}
	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		return tkerr.New(tkerr.ErrAuthorizationDenied, op, err)
	}

	// Nothing is recorded until the wallet authorized us, so every call
	// after a denial still reports the provider as unavailable.
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ProviderPresent = true
	m.state.ChainID = &chainID
	m.setAccountLocked(accounts)
	if !m.initialized && !m.closed {
		m.initialized = true
		m.startPumpLocked()
	}
	log.Debug().Int64("chain", chainID).Int("accounts", len(accounts)).Msg("session initialized")
	return nil
}

// startPumpLocked subscribes to the provider and fans events out to
// downstream subscribers. The subscription outlives Initialize's ctx and is
// stopped by Close.
func (m *Manager) startPumpLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	m.stopPump = cancel
	m.pumpDone = make(chan struct{})
	events := m.provider.Subscribe(ctx)

	go func() {
		defer close(m.pumpDone)
		for ev := range events {
			m.apply(ev)
		}
	}()
}

func (m *Manager) apply(ev provider.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.Kind {
	case provider.AccountsChanged:
		m.setAccountLocked(ev.Accounts)
	case provider.ChainChanged:
		id := ev.ChainID
		m.state.ChainID = &id
	}
	log.Debug().Stringer("event", ev.Kind).Msg("wallet state changed")
	for _, s := range m.subs {
		s.push(ev)
	}
}

func (m *Manager) setAccountLocked(accounts []common.Address) {
	if len(accounts) == 0 {
		m.state.Account = nil
		return
	}
	acct := accounts[0]
	m.state.Account = &acct
}

// Subscribe returns a fresh stream of account and chain changes in provider
// order. Each call gets its own stream; cancel ends it and closes the
// channel. Streams opened before Initialize start delivering once the
// session is initialized.
func (m *Manager) Subscribe() (<-chan provider.Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := newSubscriber()
	if m.closed {
		s.stop()
		return s.out, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = s

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
		s.stop()
	}
	return s.out, cancel
}

// CurrentAccount returns the most recently resolved account, asking the
// provider on first use.
func (m *Manager) CurrentAccount(ctx context.Context) (common.Address, error) {
	const op = "session.CurrentAccount"
	if err := m.ready(op); err != nil {
		return common.Address{}, err
	}
	m.mu.Lock()
	cached := m.state.Account
	m.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}
	return m.resolve(ctx, op)
}

// PrimaryAccount always asks the provider for its current primary account
// and refreshes the cached one.
func (m *Manager) PrimaryAccount(ctx context.Context) (common.Address, error) {
	const op = "session.PrimaryAccount"
	if err := m.ready(op); err != nil {
		return common.Address{}, err
	}
	return m.resolve(ctx, op)
}

func (m *Manager) resolve(ctx context.Context, op string) (common.Address, error) {
	accounts, err := m.provider.Accounts(ctx)
	if err != nil {
		return common.Address{}, tkerr.New(tkerr.ErrAccountResolution, op, err)
	}
	m.mu.Lock()
	m.setAccountLocked(accounts)
	m.mu.Unlock()
	if len(accounts) == 0 {
		return common.Address{}, tkerr.New(tkerr.ErrNoAccountAvailable, op, nil)
	}
	return accounts[0], nil
}

// IsNetworkSupported reports whether the provider's current chain is in
// supported.
func (m *Manager) IsNetworkSupported(ctx context.Context, supported []int64) (bool, error) {
	const op = "session.IsNetworkSupported"
	if err := m.ready(op); err != nil {
		return false, err
	}
	id, err := m.provider.ChainID(ctx)
	if err != nil {
		return false, tkerr.New(tkerr.ErrNetworkQuery, op, err)
	}
	m.mu.Lock()
	m.state.ChainID = &id
	m.mu.Unlock()
	return slices.Contains(supported, id), nil
}

// ChainID returns the last known chain id.
func (m *Manager) ChainID() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.ChainID == nil {
		return 0, false
	}
	return *m.state.ChainID, true
}

// State returns a copy of the session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := State{ProviderPresent: m.state.ProviderPresent}
	if m.state.Account != nil {
		a := *m.state.Account
		s.Account = &a
	}
	if m.state.ChainID != nil {
		id := *m.state.ChainID
		s.ChainID = &id
	}
	return s
}

// ready fails with ProviderUnavailable unless the provider answered a probe,
// so nothing reaches a missing provider.
func (m *Manager) ready(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.ProviderPresent {
		return tkerr.New(tkerr.ErrProviderUnavailable, op, nil)
	}
	return nil
}

// Close stops the provider subscription and ends every downstream stream.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	stop, done := m.stopPump, m.pumpDone
	subs := m.subs
	m.subs = make(map[int]*subscriber)
	m.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	for _, s := range subs {
		s.stop()
	}
}
