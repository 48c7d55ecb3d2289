package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type seenRequest struct {
	Method string
	Params []json.RawMessage
}

// rpcMock creates a test HTTP server that serves a fixed JSON-RPC response
// per method. Pass method→result pairs; any unknown method returns an RPC
// error. Every request is recorded in the returned slice pointer.
func rpcMock(t *testing.T, responses map[string]interface{}) (*httptest.Server, *[]seenRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []seenRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int64             `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		mu.Lock()
		seen = append(seen, seenRequest{Method: req.Method, Params: req.Params})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if result, ok := responses[req.Method]; ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": CodeMethodNotFound, "message": "method not found"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

// rpcErrorServer creates a test HTTP server that always returns a JSON-RPC error.
func rpcErrorServer(t *testing.T, code int, msg string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int64 `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": code, "message": msg},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// rpcBadJSON creates a server that returns malformed JSON.
func rpcBadJSON(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not valid json`)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

var ctx = context.Background()

const addr = "0x1234567890abcdef1234567890abcdef12345678"

// ---------------------------------------------------------------------------
// parseBigHex
// ---------------------------------------------------------------------------

func TestParseBigHex(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0x64", 100, true},
		{"64", 100, true},
		{"0x0", 0, true},
		{"0xFF", 255, true},
		{"xyz", 0, false},
		{"", 0, false},
		{"0x", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, ok := parseBigHex(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, n.Int64())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// accounts
// ---------------------------------------------------------------------------

func TestAccounts(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{
		"eth_accounts": []string{addr},
	})

	accts, err := NewEVMClient(srv.URL).Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{addr}, accts)
}

func TestAccountsEmpty(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{
		"eth_accounts": []string{},
	})

	accts, err := NewEVMClient(srv.URL).Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accts)
}

func TestRequestAccountsMethodNotFound(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{})

	_, err := NewEVMClient(srv.URL).RequestAccounts(ctx)
	require.Error(t, err)
	assert.True(t, IsRPCCode(err, CodeMethodNotFound))
}

func TestRequestAccountsUserRejected(t *testing.T) {
	srv := rpcErrorServer(t, CodeUserRejected, "User rejected the request.")

	_, err := NewEVMClient(srv.URL).RequestAccounts(ctx)
	require.Error(t, err)
	assert.True(t, IsRPCCode(err, CodeUserRejected))
	assert.Contains(t, err.Error(), "User rejected")
}

// ---------------------------------------------------------------------------
// GetBalance
// ---------------------------------------------------------------------------

func TestGetBalanceSuccess(t *testing.T) {
	srv, seen := rpcMock(t, map[string]interface{}{
		"eth_getBalance": "0x1BC16D674EC80000", // 2 ETH
	})

	bal, err := NewEVMClient(srv.URL).GetBalance(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "2", bal.ETH)
	assert.Equal(t, "2000000000000000000", bal.Wei.String())

	require.Len(t, *seen, 1)
	assert.JSONEq(t, `"`+addr+`"`, string((*seen)[0].Params[0]))
	assert.JSONEq(t, `"latest"`, string((*seen)[0].Params[1]))
}

func TestGetBalanceRPCError(t *testing.T) {
	srv := rpcErrorServer(t, -32602, "invalid params")

	_, err := NewEVMClient(srv.URL).GetBalance(ctx, "0x1234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPC error")
}

func TestGetBalanceConnectionRefused(t *testing.T) {
	_, err := NewEVMClient("http://127.0.0.1:19999").GetBalance(ctx, "0x1234")
	require.Error(t, err)
}

func TestGetBalanceInvalidJSON(t *testing.T) {
	srv := rpcBadJSON(t)

	_, err := NewEVMClient(srv.URL).GetBalance(ctx, "0x1234")
	require.Error(t, err)
}

func TestGetBalanceBadHex(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{"eth_getBalance": "0xzz"})

	_, err := NewEVMClient(srv.URL).GetBalance(ctx, addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not parse balance")
}

// ---------------------------------------------------------------------------
// ChainID / NetworkID
// ---------------------------------------------------------------------------

func TestChainID(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{
		"eth_chainId": "0x2105", // 8453 = Base mainnet
	})

	id, err := NewEVMClient(srv.URL).ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8453), id)
}

func TestNetworkID(t *testing.T) {
	tests := []struct {
		answer string
		want   int64
	}{
		{"5777", 5777},
		{" 1 ", 1},
		{"0x1691", 5777},
	}
	for _, tt := range tests {
		srv, seen := rpcMock(t, map[string]interface{}{"net_version": tt.answer})
		id, err := NewEVMClient(srv.URL).NetworkID(ctx)
		require.NoError(t, err, tt.answer)
		assert.Equal(t, tt.want, id, tt.answer)
		assert.Equal(t, "net_version", (*seen)[0].Method)
	}
}

func TestNetworkIDMalformed(t *testing.T) {
	for _, answer := range []string{"", "ganache", "0x"} {
		srv, _ := rpcMock(t, map[string]interface{}{"net_version": answer})
		_, err := NewEVMClient(srv.URL).NetworkID(ctx)
		require.Error(t, err, answer)
		assert.Contains(t, err.Error(), "could not parse network id")
	}
}

// ---------------------------------------------------------------------------
// code / call / send
// ---------------------------------------------------------------------------

func TestGetCodeEOA(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{"eth_getCode": "0x"})

	code, err := NewEVMClient(srv.URL).GetCode(ctx, addr)
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestGetCodeContract(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{"eth_getCode": "0x6080604052"})

	code, err := NewEVMClient(srv.URL).GetCode(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, code)
}

func TestCallContractSendsArgs(t *testing.T) {
	srv, seen := rpcMock(t, map[string]interface{}{
		"eth_call": "0x00000000000000000000000000000000000000000000000000000000000003e8",
	})

	out, err := NewEVMClient(srv.URL).CallContract(ctx, TxArgs{
		To:   addr,
		Data: []byte{0x18, 0x16, 0x0d, 0xdd},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), new(big.Int).SetBytes(out).Int64())

	require.Len(t, *seen, 1)
	var params map[string]string
	require.NoError(t, json.Unmarshal((*seen)[0].Params[0], &params))
	assert.Equal(t, addr, params["to"])
	assert.Equal(t, "0x18160ddd", params["data"])
	_, hasFrom := params["from"]
	assert.False(t, hasFrom)
}

func TestCallContractRevert(t *testing.T) {
	srv := rpcErrorServer(t, CodeExecutionFailure, "execution reverted")

	_, err := NewEVMClient(srv.URL).CallContract(ctx, TxArgs{To: addr})
	require.Error(t, err)
	assert.True(t, IsRPCCode(err, CodeExecutionFailure))
}

func TestSendTransaction(t *testing.T) {
	srv, seen := rpcMock(t, map[string]interface{}{"eth_sendTransaction": "0xabc"})

	hash, err := NewEVMClient(srv.URL).SendTransaction(ctx, TxArgs{
		From:  addr,
		To:    "0x00000000000000000000000000000000000000ff",
		Data:  []byte{0xa9, 0x05, 0x9c, 0xbb},
		Value: big.NewInt(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", hash)

	var params map[string]string
	require.NoError(t, json.Unmarshal((*seen)[0].Params[0], &params))
	assert.Equal(t, addr, params["from"])
	assert.Equal(t, "0xa9059cbb", params["data"])
	_, hasValue := params["value"]
	assert.False(t, hasValue, "zero value is omitted")
	_, hasGas := params["gas"]
	assert.False(t, hasGas, "gas left to the wallet")
}

func TestSendRawTransaction(t *testing.T) {
	srv, seen := rpcMock(t, map[string]interface{}{"eth_sendRawTransaction": "0xdef"})

	hash, err := NewEVMClient(srv.URL).SendRawTransaction(ctx, []byte{0x02, 0xf8})
	require.NoError(t, err)
	assert.Equal(t, "0xdef", hash)
	assert.JSONEq(t, `"0x02f8"`, string((*seen)[0].Params[0]))
}

func TestGasHelpers(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{
		"eth_gasPrice":            "0x3b9aca00",
		"eth_estimateGas":         "0xea60",
		"eth_getTransactionCount": "0x7",
	})
	c := NewEVMClient(srv.URL)

	gp, err := c.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), gp.Int64())

	gas, err := c.EstimateGas(ctx, TxArgs{From: addr, To: addr})
	require.NoError(t, err)
	assert.Equal(t, uint64(60_000), gas)

	nonce, err := c.GetPendingNonce(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)
}

// ---------------------------------------------------------------------------
// receipts
// ---------------------------------------------------------------------------

func TestGetTransactionReceiptSuccess(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":      "0x1",
			"blockNumber": "0x100",
			"gasUsed":     "0x5208",
		},
	})

	receipt, err := NewEVMClient(srv.URL).GetTransactionReceipt(ctx, "0xtxhash")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(1), receipt.Status)
	assert.Equal(t, uint64(256), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	assert.Equal(t, "0xtxhash", receipt.Hash)
}

func TestGetTransactionReceiptPending(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": nil,
	})

	receipt, err := NewEVMClient(srv.URL).GetTransactionReceipt(ctx, "0xpending")
	require.NoError(t, err)
	assert.Nil(t, receipt, "pending tx should return nil receipt")
}

func TestWaitForReceiptMinedAfterPolls(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		var result interface{}
		if n >= 3 {
			result = map[string]string{"status": "0x1", "blockNumber": "0x5", "gasUsed": "0x1"}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result}) //nolint:errcheck
	}))
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).WaitForReceipt(ctx, "0xh", 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), receipt.BlockNumber)
}

func TestWaitForReceiptReverted(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]string{"status": "0x0", "blockNumber": "0x9", "gasUsed": "0x1"},
	})

	receipt, err := NewEVMClient(srv.URL).WaitForReceipt(ctx, "0xbad", time.Millisecond)
	require.Error(t, err)
	require.NotNil(t, receipt)
	assert.Contains(t, err.Error(), "reverted")
}

func TestWaitForReceiptContextCancelled(t *testing.T) {
	srv, _ := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})

	cctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err := NewEVMClient(srv.URL).WaitForReceipt(cctx, "0xslow", 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestIDsIncrease(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []int64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int64 `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		mu.Lock()
		ids = append(ids, req.ID)
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0x1"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	_, _ = c.ChainID(ctx)
	_, _ = c.ChainID(ctx)
	require.Len(t, ids, 2)
	assert.Less(t, ids[0], ids[1])
}
