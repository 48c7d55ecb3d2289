package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	"github.com/Mohsinsiddi/w3token/internal/config"
	"github.com/Mohsinsiddi/w3token/internal/contract"
	"github.com/Mohsinsiddi/w3token/internal/provider"
	"github.com/Mohsinsiddi/w3token/internal/session"
	"github.com/Mohsinsiddi/w3token/internal/token"
	"github.com/Mohsinsiddi/w3token/internal/wallet"
	tkerr "github.com/Mohsinsiddi/w3token/pkg/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// openProvider builds the configured provider. Tests replace it.
var openProvider = func(c *config.Config) (provider.Provider, error) {
	opts := provider.Options{
		PollInterval: c.Poll(),
		Limiter:      chain.NewRateLimiter(c.RateLimit, int(c.RateLimit)*2),
	}
	if c.Provider == provider.KindKeyring {
		ks, err := wallet.DefaultKeystore(c.Dir())
		if err != nil {
			return nil, err
		}
		opts.Signer = wallet.NewSigner(c.WalletName, ks)
	}
	return provider.Open(c.Provider, c.RPCURL, opts)
}

// connectSession opens the provider, initializes a session and applies the
// supported-network gate.
func connectSession(ctx context.Context) (*session.Manager, error) {
	p, err := openProvider(cfg)
	if err != nil && !errors.Is(err, provider.ErrNoEndpoint) {
		return nil, tkerr.New(tkerr.ErrProviderUnavailable, "cmd.connect", err)
	}
	s := session.New(p)
	if err := s.Initialize(ctx); err != nil {
		s.Close()
		return nil, err
	}

	if len(cfg.SupportedChains) > 0 {
		ok, err := s.IsNetworkSupported(ctx, cfg.SupportedChains)
		if err != nil {
			s.Close()
			return nil, err
		}
		if !ok {
			id, _ := s.ChainID()
			s.Close()
			return nil, tkerr.Newf(tkerr.ErrUnsupportedNetwork, "cmd.connect",
				"chain %d is not in supported_chains %v", id, cfg.SupportedChains)
		}
	}
	id, _ := s.ChainID()
	log.Debug().Str("provider", cfg.Provider).Int64("chain", id).Msg("session ready")
	return s, nil
}

// openClient connects a session and builds the token client on top of it.
// The returned cleanup closes both.
func openClient(ctx context.Context) (*token.Client, *session.Manager, func(), error) {
	art, err := contract.Load(cfg.Artifact)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading token artifact: %w", err)
	}

	var opts []token.Option
	if cfg.ContractAddress != "" {
		if !provider.IsAddress(cfg.ContractAddress) {
			return nil, nil, nil, tkerr.Newf(tkerr.ErrInvalidAddress, "cmd.openClient",
				"contract_address %q is not a valid address", cfg.ContractAddress)
		}
		opts = append(opts, token.WithContractAddress(common.HexToAddress(cfg.ContractAddress)))
	}
	if cfg.TokenDecimals > 0 {
		opts = append(opts, token.WithDecimals(cfg.TokenDecimals))
	}

	s, err := connectSession(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	c := token.New(s, art, opts...)
	return c, s, func() {
		c.Close()
		s.Close()
	}, nil
}
