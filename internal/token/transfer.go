package token

import (
	"context"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/w3token/internal/chain"
	tkerr "github.com/Mohsinsiddi/w3token/pkg/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// TransferState is a step of a transfer.
type TransferState int

const (
	StateIdle TransferState = iota
	StateAddressValidated
	StateSubmitted
	StateConfirmed
	StateRejected
)

func (s TransferState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAddressValidated:
		return "address validated"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// TransferResult describes a confirmed transfer.
type TransferResult struct {
	From        common.Address
	To          common.Address
	Amount      *big.Int // raw units
	Decimals    uint8
	Hash        common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// TransferOption configures one Transfer call.
type TransferOption func(*transferOptions)

type transferOptions struct {
	onState func(TransferState, common.Hash)
}

// OnState registers fn to be called on every state change. The hash is zero
// until the transaction is submitted.
func OnState(fn func(TransferState, common.Hash)) TransferOption {
	return func(o *transferOptions) { o.onState = fn }
}

// maxDecimals bounds the syntax check done before decimals are known.
const maxDecimals = 255

// ParseAmount converts a positive decimal in display units to raw units,
// scaled by the token's decimals on the session's chain.
func (c *Client) ParseAmount(ctx context.Context, amount string) (*big.Int, error) {
	const op = "token.ParseAmount"
	if err := checkAmount(op, amount); err != nil {
		return nil, err
	}
	b, err := c.attach(ctx, op, tkerr.ErrContractRead)
	if err != nil {
		return nil, err
	}
	return scaleAmount(op, amount, b.decimals)
}

// checkAmount rejects anything that is not a positive decimal, whatever the
// token's decimals turn out to be.
func checkAmount(op, amount string) error {
	_, err := scaleAmount(op, amount, maxDecimals)
	return err
}

func scaleAmount(op, amount string, decimals uint8) (*big.Int, error) {
	raw, err := chain.ParseUnits(strings.TrimSpace(amount), int(decimals))
	if err != nil {
		return nil, tkerr.New(tkerr.ErrInvalidAmount, op, err)
	}
	if raw.Sign() <= 0 {
		return nil, tkerr.Newf(tkerr.ErrInvalidAmount, op, "amount must be greater than zero")
	}
	return raw, nil
}

// Transfer sends amount (display units) of the token from the current
// account to recipient and waits for the receipt. Recipient and amount are
// validated before the provider is touched. It may block for as long as
// confirmation takes; ctx is the only bound. Nothing is retried.
func (c *Client) Transfer(ctx context.Context, recipient, amount string, opts ...TransferOption) (*TransferResult, error) {
	const op = "token.Transfer"
	var o transferOptions
	for _, opt := range opts {
		opt(&o)
	}
	notify := func(s TransferState, h common.Hash) {
		if o.onState != nil {
			o.onState(s, h)
		}
	}

	if !c.ValidateAddress(recipient) {
		return nil, tkerr.Newf(tkerr.ErrInvalidAddress, op, "%q is not a valid address", recipient)
	}
	if err := checkAmount(op, amount); err != nil {
		return nil, err
	}
	notify(StateAddressValidated, common.Hash{})

	reject := func(hash common.Hash, err error) (*TransferResult, error) {
		notify(StateRejected, hash)
		return nil, tkerr.Wrap(tkerr.ErrTransfer, op, err)
	}

	from, err := c.session.CurrentAccount(ctx)
	if err != nil {
		return reject(common.Hash{}, err)
	}
	b, err := c.attach(ctx, op, tkerr.ErrTransfer)
	if err != nil {
		return reject(common.Hash{}, err)
	}
	raw, err := scaleAmount(op, amount, b.decimals)
	if err != nil {
		return reject(common.Hash{}, err)
	}

	to := common.HexToAddress(recipient)
	hash, err := b.Transfer(ctx, from, to, raw)
	if err != nil {
		return reject(common.Hash{}, err)
	}
	notify(StateSubmitted, hash)
	log.Debug().Str("hash", hash.Hex()).Str("from", from.Hex()).Str("to", to.Hex()).Msg("transfer submitted")

	receipt, err := c.session.Provider().WaitMined(ctx, hash)
	if err != nil {
		return reject(hash, err)
	}
	notify(StateConfirmed, hash)

	return &TransferResult{
		From:        from,
		To:          to,
		Amount:      raw,
		Decimals:    b.decimals,
		Hash:        hash,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
	}, nil
}
