// token-holders: reads the configured token's balance for every account the
// provider exposes (plus any addresses given as arguments) in parallel and
// prints each holder's share of the supply.
//
// Run from the module root against a dev chain such as Ganache:
//
//	go run ./scripts/token-holders [0xAddress ...]
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/Mohsinsiddi/w3token/internal/config"
	"github.com/Mohsinsiddi/w3token/internal/contract"
	"github.com/Mohsinsiddi/w3token/internal/provider"
	"github.com/Mohsinsiddi/w3token/internal/token"
	"github.com/Mohsinsiddi/w3token/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

const rpcTimeout = 12 * time.Second

type result struct {
	holder  common.Address
	balance *big.Int
	err     string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func run(extra []string) error {
	cfg, err := config.Load(os.Getenv("W3TOKEN_CONFIG_DIR"))
	if err != nil {
		return err
	}
	if err := config.SetupLogging(os.Stderr, cfg.LogLevel, false); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	p, err := provider.Open(provider.KindRPC, cfg.RPCURL, provider.Options{
		Limiter: chain.NewRateLimiter(cfg.RateLimit, int(cfg.RateLimit)*2),
	})
	if err != nil {
		return err
	}
	chainID, err := p.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("provider unreachable: %w", err)
	}
	art, err := contract.Load(cfg.Artifact)
	if err != nil {
		return err
	}
	var override common.Address
	if cfg.ContractAddress != "" {
		override = common.HexToAddress(cfg.ContractAddress)
	}
	target := contract.Target{ChainID: chainID}
	if id, err := p.NetworkID(ctx); err == nil {
		target.NetworkID = id
	}
	h, err := contract.Attach(ctx, art, target, override, p)
	if err != nil {
		return err
	}
	decimals := cfg.TokenDecimals
	if decimals == 0 {
		if decimals, err = h.Decimals(ctx); err != nil {
			log.Warn().Err(err).Msg("decimals() unavailable, assuming 18")
			decimals = chain.EtherDecimals
		}
	}
	supply, err := h.TotalSupply(ctx)
	if err != nil {
		return err
	}

	holders, err := p.Accounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range extra {
		if !provider.IsAddress(a) {
			return fmt.Errorf("%q is not a valid address", a)
		}
		holders = append(holders, common.HexToAddress(a))
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []result
	)
	for _, holder := range holders {
		wg.Add(1)
		go func(holder common.Address) {
			defer wg.Done()
			r := result{holder: holder}
			bal, err := h.BalanceOf(ctx, holder)
			if err != nil {
				r.err = shortErr(err)
			} else {
				r.balance = bal
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(holder)
	}
	wg.Wait()

	fmt.Printf("%s on %s (%d), supply %s\n\n", ui.Addr(h.Address().Hex()),
		ui.ChainLabel(chainID), chainID, token.FormatAmount(supply, decimals))
	fmt.Print(holderTable(results, supply, decimals))
	return nil
}

func holderTable(results []result, supply *big.Int, decimals uint8) string {
	// Largest holder first.
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i].balance, results[j].balance
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Cmp(b) > 0
	})

	rows := make([]ui.AccountRow, 0, len(results))
	for _, r := range results {
		row := ui.AccountRow{Address: ui.ShortenAddress(r.holder.Hex()), Note: r.err}
		if r.balance != nil {
			row.Balance = token.FormatAmount(r.balance, decimals)
			row.Share = token.Percentage(r.balance, supply)
		}
		rows = append(rows, row)
	}
	return ui.AccountTable(rows)
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "..."
	}
	return s
}
