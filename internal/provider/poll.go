package provider

import (
	"context"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// StateSource is what Poll needs from a provider.
type StateSource interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (int64, error)
}

// PollConfig tunes Poll.
type PollConfig struct {
	Interval time.Duration
	// Ready, when set, is asked before each observation after the baseline.
	// A false answer skips that tick.
	Ready func() bool
}

// Poll emits an Event every time the account list or chain id reported by
// src differs from the previous observation. The first observation is the
// baseline and emits nothing. Events are sent in observation order, account
// changes before chain changes within one tick. Failed polls are skipped.
// The channel closes when ctx is done.
func Poll(ctx context.Context, src StateSource, cfg PollConfig) <-chan Event {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	out := make(chan Event)

	go func() {
		defer close(out)

		var (
			accounts []common.Address
			chainID  int64
			baseline bool
		)

		send := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if baseline && cfg.Ready != nil && !cfg.Ready() {
				log.Debug().Msg("endpoint busy, skipping poll")
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
				continue
			}

			accts, aerr := src.Accounts(ctx)
			id, cerr := src.ChainID(ctx)
			if aerr != nil || cerr != nil {
				if ctx.Err() != nil {
					return
				}
				log.Debug().AnErr("accounts_err", aerr).AnErr("chain_err", cerr).Msg("provider poll failed")
			} else if !baseline {
				accounts, chainID, baseline = accts, id, true
			} else {
				now := time.Now()
				if !slices.Equal(accts, accounts) {
					accounts = accts
					if !send(Event{Kind: AccountsChanged, Accounts: slices.Clone(accts), At: now}) {
						return
					}
				}
				if id != chainID {
					chainID = id
					if !send(Event{Kind: ChainChanged, ChainID: id, At: now}) {
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}
