package contract

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/w3token/internal/provider"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctx   = context.Background()
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

// fakeToken answers eth_call and eth_sendTransaction for an ERC-20 by
// dispatching on the 4-byte selector.
type fakeToken struct {
	abi      abi.ABI
	code     []byte
	codeErr  error
	callErr  error
	sendErr  error
	empty    bool
	supply   *big.Int
	balances map[common.Address]*big.Int
	sent     []provider.CallMsg
	calls    int
}

func newFakeToken(t *testing.T) *fakeToken {
	t.Helper()
	art, err := Builtin("erc20")
	require.NoError(t, err)
	return &fakeToken{
		abi:      art.ABI,
		code:     []byte{0x60, 0x80},
		supply:   big.NewInt(1000),
		balances: map[common.Address]*big.Int{alice: big.NewInt(250)},
	}
}

func (f *fakeToken) Code(_ context.Context, _ common.Address) ([]byte, error) {
	return f.code, f.codeErr
}

func (f *fakeToken) Call(_ context.Context, msg provider.CallMsg) ([]byte, error) {
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.empty {
		return nil, nil
	}
	m, err := f.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "totalSupply":
		return m.Outputs.Pack(f.supply)
	case "balanceOf":
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		bal, ok := f.balances[args[0].(common.Address)]
		if !ok {
			bal = new(big.Int)
		}
		return m.Outputs.Pack(bal)
	case "name":
		return m.Outputs.Pack("Tutorial Token")
	case "symbol":
		return m.Outputs.Pack("TT")
	case "decimals":
		return m.Outputs.Pack(uint8(2))
	}
	return nil, errors.New("unexpected method " + m.Name)
}

func (f *fakeToken) SendTransaction(_ context.Context, msg provider.CallMsg) (common.Hash, error) {
	f.sent = append(f.sent, msg)
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	return common.HexToHash("0x01"), nil
}

func attachERC20(t *testing.T, f *fakeToken) *Handle {
	t.Helper()
	art, err := Builtin("erc20")
	require.NoError(t, err)
	h, err := Attach(ctx, art, Target{ChainID: 1}, common.HexToAddress(tokenAddr), f)
	require.NoError(t, err)
	return h
}

// ---------------------------------------------------------------------------
// Attach
// ---------------------------------------------------------------------------

func TestAttachUsesArtifactNetwork(t *testing.T) {
	art, err := ParseArtifact([]byte(truffleArtifact))
	require.NoError(t, err)

	// Ganache UI: network id 5777, chain id 1337.
	h, err := Attach(ctx, art, Target{ChainID: 1337, NetworkID: 5777}, common.Address{}, newFakeToken(t))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(tokenAddr), h.Address())
	assert.Equal(t, int64(1337), h.ChainID())
}

func TestAttachOverrideWins(t *testing.T) {
	art, err := ParseArtifact([]byte(truffleArtifact))
	require.NoError(t, err)

	h, err := Attach(ctx, art, Target{ChainID: 1337, NetworkID: 5777}, bob, newFakeToken(t))
	require.NoError(t, err)
	assert.Equal(t, bob, h.Address())
}

func TestAttachNotDeployed(t *testing.T) {
	art, err := ParseArtifact([]byte(truffleArtifact))
	require.NoError(t, err)

	_, err = Attach(ctx, art, Target{ChainID: 1, NetworkID: 1}, common.Address{}, newFakeToken(t))
	require.ErrorIs(t, err, ErrNotDeployed)
	assert.Contains(t, err.Error(), "(chain 1)")

	_, err = Attach(ctx, art, Target{ChainID: 1337, NetworkID: 1338}, common.Address{}, newFakeToken(t))
	require.ErrorIs(t, err, ErrNotDeployed)
	assert.Contains(t, err.Error(), "(network 1338, chain 1337)")
}

func TestAttachNoCode(t *testing.T) {
	f := newFakeToken(t)
	f.code = nil
	art, _ := Builtin("erc20")

	_, err := Attach(ctx, art, Target{ChainID: 1}, bob, f)
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestAttachCodeQueryFails(t *testing.T) {
	f := newFakeToken(t)
	f.codeErr = errors.New("connection refused")
	art, _ := Builtin("erc20")

	_, err := Attach(ctx, art, Target{ChainID: 1}, bob, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// ---------------------------------------------------------------------------
// Views
// ---------------------------------------------------------------------------

func TestHandleViews(t *testing.T) {
	h := attachERC20(t, newFakeToken(t))

	supply, err := h.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1000", supply.String())

	bal, err := h.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "250", bal.String())

	bal, err = h.BalanceOf(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "0", bal.String())

	name, err := h.Name(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Tutorial Token", name)

	sym, err := h.Symbol(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TT", sym)

	dec, err := h.Decimals(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), dec)
}

func TestHandleCallError(t *testing.T) {
	f := newFakeToken(t)
	f.callErr = errors.New("execution reverted")
	h := attachERC20(t, f)

	_, err := h.TotalSupply(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "totalSupply: execution reverted")
}

func TestHandleEmptyResult(t *testing.T) {
	f := newFakeToken(t)
	f.empty = true
	h := attachERC20(t, f)

	_, err := h.BalanceOf(ctx, alice)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestHandleMissingMethod(t *testing.T) {
	art, err := ParseArtifact([]byte(`[
	  {"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	  {"type":"function","name":"balanceOf","inputs":[{"name":"a","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"v","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"}
	]`))
	require.NoError(t, err)
	f := newFakeToken(t)
	h, err := Attach(ctx, art, Target{ChainID: 1}, bob, f)
	require.NoError(t, err)

	_, err = h.Symbol(ctx)
	assert.ErrorIs(t, err, ErrMissingMethod)
	assert.Zero(t, f.calls, "no call for a method the ABI lacks")
}

// ---------------------------------------------------------------------------
// Transfer
// ---------------------------------------------------------------------------

func TestHandleTransfer(t *testing.T) {
	f := newFakeToken(t)
	h := attachERC20(t, f)

	hash, err := h.Transfer(ctx, alice, bob, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x01"), hash)

	require.Len(t, f.sent, 1)
	msg := f.sent[0]
	assert.Equal(t, alice, msg.From)
	assert.Equal(t, common.HexToAddress(tokenAddr), msg.To)

	m, err := f.abi.MethodById(msg.Data[:4])
	require.NoError(t, err)
	assert.Equal(t, "transfer", m.Name)
	args, err := m.Inputs.Unpack(msg.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, bob, args[0])
	assert.Equal(t, "10", args[1].(*big.Int).String())
}

func TestHandleTransferRejected(t *testing.T) {
	f := newFakeToken(t)
	f.sendErr = errors.New("User denied transaction signature")
	h := attachERC20(t, f)

	_, err := h.Transfer(ctx, alice, bob, big.NewInt(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User denied")
}
