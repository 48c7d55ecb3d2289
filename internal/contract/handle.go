// Package contract loads token contract artifacts and talks to a deployed
// token through a provider.
package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/w3token/internal/provider"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Errors.
var (
	ErrNotDeployed   = errors.New("contract not deployed on this network")
	ErrNoCode        = errors.New("no contract code at address")
	ErrMissingMethod = errors.New("function not in contract ABI")
	ErrEmptyResult   = errors.New("call returned no data")
)

// Backend is the chain access a Handle needs. provider.Provider satisfies it.
type Backend interface {
	Code(ctx context.Context, account common.Address) ([]byte, error)
	Call(ctx context.Context, msg provider.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, msg provider.CallMsg) (common.Hash, error)
}

// Target identifies the network to attach on. NetworkID is the net_version
// answer and may be zero when unknown.
type Target struct {
	ChainID   int64
	NetworkID int64
}

func (t Target) String() string {
	if t.NetworkID == 0 || t.NetworkID == t.ChainID {
		return fmt.Sprintf("chain %d", t.ChainID)
	}
	return fmt.Sprintf("network %d, chain %d", t.NetworkID, t.ChainID)
}

// Handle is a token contract attached at an address on one chain.
type Handle struct {
	address common.Address
	chainID int64
	abi     abi.ABI
	backend Backend
}

// Attach resolves the deployment of art on target and checks that code
// exists there. A non-zero override address wins over the artifact's
// network map.
func Attach(ctx context.Context, art *Artifact, target Target, override common.Address, backend Backend) (*Handle, error) {
	addr := override
	if addr == (common.Address{}) {
		var ok bool
		if addr, ok = art.Deployment(target); !ok {
			return nil, fmt.Errorf("%w (%s)", ErrNotDeployed, target)
		}
	}
	chainID := target.ChainID

	code, err := backend.Code(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("checking code at %s: %w", addr.Hex(), err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w %s (%s)", ErrNoCode, addr.Hex(), target)
	}
	return &Handle{address: addr, chainID: chainID, abi: art.ABI, backend: backend}, nil
}

// Address returns the contract address.
func (h *Handle) Address() common.Address { return h.address }

// ChainID returns the chain the handle was attached on.
func (h *Handle) ChainID() int64 { return h.chainID }

// TotalSupply returns the raw total supply.
func (h *Handle) TotalSupply(ctx context.Context) (*big.Int, error) {
	return callOne[*big.Int](ctx, h, "totalSupply")
}

// BalanceOf returns the raw token balance of owner.
func (h *Handle) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return callOne[*big.Int](ctx, h, "balanceOf", owner)
}

// Name returns the token name.
func (h *Handle) Name(ctx context.Context) (string, error) {
	return callOne[string](ctx, h, "name")
}

// Symbol returns the token symbol.
func (h *Handle) Symbol(ctx context.Context) (string, error) {
	return callOne[string](ctx, h, "symbol")
}

// Decimals returns the token's display decimals.
func (h *Handle) Decimals(ctx context.Context) (uint8, error) {
	return callOne[uint8](ctx, h, "decimals")
}

// Transfer submits transfer(to, amount) from the given account and returns
// the transaction hash. It does not wait for mining.
func (h *Handle) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) (common.Hash, error) {
	data, err := h.pack("transfer", to, amount)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := h.backend.SendTransaction(ctx, provider.CallMsg{From: from, To: h.address, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("transfer: %w", err)
	}
	return hash, nil
}

func (h *Handle) pack(method string, args ...any) ([]byte, error) {
	if _, ok := h.abi.Methods[method]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingMethod, method)
	}
	data, err := h.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	return data, nil
}

// callOne runs a view function that returns a single value of type T.
func callOne[T any](ctx context.Context, h *Handle, method string, args ...any) (T, error) {
	var zero T
	data, err := h.pack(method, args...)
	if err != nil {
		return zero, err
	}
	out, err := h.backend.Call(ctx, provider.CallMsg{To: h.address, Data: data})
	if err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("%s: %w", method, ErrEmptyResult)
	}
	vals, err := h.abi.Unpack(method, out)
	if err != nil {
		return zero, fmt.Errorf("decoding %s: %w", method, err)
	}
	if len(vals) != 1 {
		return zero, fmt.Errorf("%s: expected 1 return value, got %d", method, len(vals))
	}
	v, ok := vals[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected return type %T", method, vals[0])
	}
	return v, nil
}
