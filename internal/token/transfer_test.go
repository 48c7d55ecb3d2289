package token

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/w3token/internal/contract"
	tkerr "github.com/Mohsinsiddi/w3token/pkg/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateLog struct {
	states []TransferState
	hashes []common.Hash
}

func (l *stateLog) record(s TransferState, h common.Hash) {
	l.states = append(l.states, s)
	l.hashes = append(l.hashes, h)
}

func TestValidateAddress(t *testing.T) {
	fx := setup(t, alice)
	before := len(fx.fake.Calls())

	assert.True(t, fx.client.ValidateAddress("0xCfEB869F69431e42cdB54A4F4f105C19C080A601"))
	assert.True(t, fx.client.ValidateAddress("0xcfeb869f69431e42cdb54a4f4f105c19c080a601"))
	assert.False(t, fx.client.ValidateAddress("0xCfEB869F69431e42cdB54A4F4f105C19C080a601"), "bad checksum")
	assert.False(t, fx.client.ValidateAddress("not-an-address"))
	assert.False(t, fx.client.ValidateAddress("cfeb869f69431e42cdb54a4f4f105c19c080a601"))
	assert.False(t, fx.client.ValidateAddress("0xcfeb869f"))

	assert.Len(t, fx.fake.Calls(), before, "validation never reaches the provider")
}

func TestTransferInvalidAddressShortCircuits(t *testing.T) {
	fx := setup(t, alice)
	before := len(fx.fake.Calls())
	var log stateLog

	_, err := fx.client.Transfer(ctx, "not-an-address", "10", OnState(log.record))
	assert.ErrorIs(t, err, tkerr.ErrInvalidAddress)
	assert.Equal(t, tkerr.ExitInput, tkerr.ExitCode(err))
	assert.Len(t, fx.fake.Calls(), before)
	assert.Empty(t, log.states)
}

func TestTransferInvalidAmount(t *testing.T) {
	fx := setup(t, alice)
	before := len(fx.fake.Calls())

	for _, amt := range []string{"", "0", "0.00", "-1", "abc", "1e3"} {
		_, err := fx.client.Transfer(ctx, bob.Hex(), amt)
		assert.ErrorIs(t, err, tkerr.ErrInvalidAmount, "amount %q", amt)
	}
	assert.Len(t, fx.fake.Calls(), before)
}

func TestTransferTooPrecise(t *testing.T) {
	fx := setup(t, alice)
	var log stateLog

	_, err := fx.client.Transfer(ctx, bob.Hex(), "0.001", OnState(log.record))
	assert.ErrorIs(t, err, tkerr.ErrInvalidAmount, "token has 2 decimals")
	assert.Equal(t, tkerr.ExitInput, tkerr.ExitCode(err))
	assert.Equal(t, []TransferState{StateAddressValidated, StateRejected}, log.states)
	assert.Empty(t, fx.fake.Sent())
}

func TestTransferScaledByContractDecimals(t *testing.T) {
	fx := setup(t, alice)

	res, err := fx.client.Transfer(ctx, bob.Hex(), "1.5")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), res.Amount)
	assert.Equal(t, uint8(2), res.Decimals)
}

func TestTransferScaledByPinnedDecimals(t *testing.T) {
	fx := setupWith(t, []Option{WithDecimals(6)}, alice)

	res, err := fx.client.Transfer(ctx, bob.Hex(), "1.5")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), res.Amount)
	assert.Zero(t, fx.ledger.calls("decimals"))
}

func TestTransferDecimalsUnreadable(t *testing.T) {
	fx := setup(t, alice)
	fx.ledger.noDecimals = true

	res, err := fx.client.Transfer(ctx, bob.Hex(), "1.5")
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, want, res.Amount)
}

func TestTransferConfirmed(t *testing.T) {
	fx := setup(t, alice)
	var log stateLog

	res, err := fx.client.Transfer(ctx, bob.Hex(), "1.5", OnState(log.record))
	require.NoError(t, err)

	assert.Equal(t, alice, res.From)
	assert.Equal(t, bob, res.To)
	assert.Equal(t, big.NewInt(150), res.Amount, "2 decimals")
	assert.Equal(t, uint64(1), res.BlockNumber)

	assert.Equal(t, []TransferState{StateAddressValidated, StateSubmitted, StateConfirmed}, log.states)
	assert.Equal(t, common.Hash{}, log.hashes[0])
	assert.Equal(t, res.Hash, log.hashes[1])

	sent := fx.fake.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, alice, sent[0].From)
	assert.Equal(t, tokenAddr, sent[0].To)

	art, _ := contract.Builtin("erc20")
	m, err := art.ABI.MethodById(sent[0].Data[:4])
	require.NoError(t, err)
	assert.Equal(t, "transfer", m.Name)
}

func TestTransferRejectedByWallet(t *testing.T) {
	fx := setup(t, alice)
	fx.fake.SendErr = errors.New("User denied transaction signature.")
	var log stateLog

	_, err := fx.client.Transfer(ctx, bob.Hex(), "1", OnState(log.record))
	assert.ErrorIs(t, err, tkerr.ErrTransfer)
	assert.Contains(t, tkerr.Cause(err), "User denied transaction signature.")
	assert.Equal(t, []TransferState{StateAddressValidated, StateRejected}, log.states)
	assert.Len(t, fx.fake.Sent(), 1, "not retried")
}

func TestTransferReverted(t *testing.T) {
	fx := setup(t, alice)
	fx.fake.WaitErr = errors.New("transaction reverted (hash: 0x01)")
	var log stateLog

	_, err := fx.client.Transfer(ctx, bob.Hex(), "1", OnState(log.record))
	assert.ErrorIs(t, err, tkerr.ErrTransfer)
	assert.Equal(t, []TransferState{StateAddressValidated, StateSubmitted, StateRejected}, log.states)
	assert.NotEqual(t, common.Hash{}, log.hashes[2])
}

func TestTransferNoAccount(t *testing.T) {
	fx := setup(t)

	_, err := fx.client.Transfer(ctx, bob.Hex(), "1")
	assert.ErrorIs(t, err, tkerr.ErrNoAccountAvailable)
	assert.Empty(t, fx.fake.Sent())
}

func TestTransferAttachFails(t *testing.T) {
	fx := setup(t, alice)
	fx.fake.CodeBytes = nil

	_, err := fx.client.Transfer(ctx, bob.Hex(), "1")
	assert.ErrorIs(t, err, tkerr.ErrTransfer)
	assert.ErrorIs(t, err, contract.ErrNoCode)
	assert.Empty(t, fx.fake.Sent())
}

func TestTransferCanceled(t *testing.T) {
	fx := setup(t, alice)
	cctx, cancel := context.WithCancel(ctx)
	cancel()

	// The fake only honors ctx while waiting for the receipt.
	_, err := fx.client.Transfer(cctx, bob.Hex(), "1")
	assert.ErrorIs(t, err, tkerr.ErrTransfer)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseAmount(t *testing.T) {
	fx := setup(t, alice)
	raw, err := fx.client.ParseAmount(ctx, " 12.34 ")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1234), raw)
	assert.Equal(t, "12.34", FormatAmount(raw, 2))

	_, err = fx.client.ParseAmount(ctx, "0.001")
	assert.ErrorIs(t, err, tkerr.ErrInvalidAmount)
}

func TestParseAmountRejectsBeforeProvider(t *testing.T) {
	fx := setup(t, alice)
	before := len(fx.fake.Calls())

	_, err := fx.client.ParseAmount(ctx, "abc")
	assert.ErrorIs(t, err, tkerr.ErrInvalidAmount)
	assert.Len(t, fx.fake.Calls(), before)
}

func TestTransferStateString(t *testing.T) {
	assert.Equal(t, "submitted", StateSubmitted.String())
	assert.Equal(t, "rejected", StateRejected.String())
	assert.Equal(t, "unknown", TransferState(42).String())
}
