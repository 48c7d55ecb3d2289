package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// JSON-RPC error codes the providers care about.
const (
	CodeMethodNotFound   = -32601
	CodeUserRejected     = 4001 // EIP-1193
	CodeUnauthorized     = 4100 // EIP-1193
	CodeExecutionFailure = 3    // eth_call revert with data
)

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url     string
	client  *http.Client
	limiter *RateLimiter
	nextID  atomic.Int64
}

// Option configures an EVMClient.
type Option func(*EVMClient)

// WithRateLimiter throttles every request through rl.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *EVMClient) { c.limiter = rl }
}

// Balance holds a native balance result.
type Balance struct {
	Wei *big.Int
	ETH string
}

// TxArgs are the eth_sendTransaction / eth_call / eth_estimateGas arguments.
// Zero-valued fields are omitted so the wallet fills in its own defaults.
type TxArgs struct {
	From  string
	To    string
	Data  []byte
	Value *big.Int
	Gas   uint64
}

func (a TxArgs) params() map[string]string {
	p := map[string]string{}
	if a.From != "" {
		p["from"] = a.From
	}
	if a.To != "" {
		p["to"] = a.To
	}
	if len(a.Data) > 0 {
		p["data"] = hexutil.Encode(a.Data)
	}
	if a.Value != nil && a.Value.Sign() > 0 {
		p["value"] = "0x" + a.Value.Text(16)
	}
	if a.Gas > 0 {
		p["gas"] = fmt.Sprintf("0x%x", a.Gas)
	}
	return p
}

// TxReceipt holds the on-chain receipt of a mined transaction.
type TxReceipt struct {
	Hash        string
	Status      uint64 // 1 = success, 0 = reverted
	BlockNumber uint64
	GasUsed     uint64
}

// RPCError is a JSON-RPC error object returned by the node or wallet.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// IsRPCCode reports whether err is an RPCError with the given code.
func IsRPCCode(err error, code int) bool {
	var re *RPCError
	return errors.As(err, &re) && re.Code == code
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string, opts ...Option) *EVMClient {
	c := &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint this client talks to.
func (c *EVMClient) URL() string { return c.url }

// Ready reports whether n requests could go out now without waiting on the
// rate limiter.
func (c *EVMClient) Ready(n int) bool {
	return c.limiter == nil || c.limiter.Ready(c.url, n)
}

// RequestAccounts asks the wallet to authorize and expose its accounts.
func (c *EVMClient) RequestAccounts(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.call(ctx, &out, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return out, nil
}

// Accounts returns the accounts the node or wallet currently exposes.
func (c *EVMClient) Accounts(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.call(ctx, &out, "eth_accounts"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBalance returns the native balance for an address.
func (c *EVMClient) GetBalance(ctx context.Context, address string) (*Balance, error) {
	wei, err := c.callBig(ctx, "balance", "eth_getBalance", address, "latest")
	if err != nil {
		return nil, err
	}
	return &Balance{Wei: wei, ETH: WeiToETH(wei)}, nil
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (int64, error) {
	id, err := c.callBig(ctx, "chain id", "eth_chainId")
	if err != nil {
		return 0, err
	}
	return id.Int64(), nil
}

// NetworkID returns the net_version answer. It differs from the chain id on
// some dev nodes (Ganache UI reports network 5777 on chain 1337).
func (c *EVMClient) NetworkID(ctx context.Context) (int64, error) {
	var v string
	if err := c.call(ctx, &v, "net_version"); err != nil {
		return 0, err
	}
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "0x") {
		// A few endpoints answer in hex.
		if n, ok := parseBigHex(v); ok {
			return n.Int64(), nil
		}
	} else if id, err := strconv.ParseInt(v, 10, 64); err == nil {
		return id, nil
	}
	return 0, fmt.Errorf("could not parse network id: %q", v)
}

// GetCode returns the bytecode at an address. Empty means EOA (no code).
func (c *EVMClient) GetCode(ctx context.Context, address string) ([]byte, error) {
	return c.callBytes(ctx, "eth_getCode", address, "latest")
}

// CallContract executes a read-only call and returns the raw return data.
func (c *EVMClient) CallContract(ctx context.Context, args TxArgs) ([]byte, error) {
	return c.callBytes(ctx, "eth_call", args.params(), "latest")
}

// SendTransaction hands an unsigned transaction to the wallet, which signs
// and broadcasts it. Returns the transaction hash.
func (c *EVMClient) SendTransaction(ctx context.Context, args TxArgs) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "eth_sendTransaction", args.params()); err != nil {
		return "", err
	}
	return hash, nil
}

// SendRawTransaction broadcasts a signed raw transaction.
func (c *EVMClient) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	var hash string
	if err := c.call(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return "", err
	}
	return hash, nil
}

// EstimateGas estimates gas for a transaction.
func (c *EVMClient) EstimateGas(ctx context.Context, args TxArgs) (uint64, error) {
	n, err := c.callBig(ctx, "gas estimate", "eth_estimateGas", args.params())
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// GasPrice returns the current gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "gas price", "eth_gasPrice")
}

// GetPendingNonce returns the transaction count including queued
// transactions, using the "pending" block tag.
func (c *EVMClient) GetPendingNonce(ctx context.Context, address string) (uint64, error) {
	n, err := c.callBig(ctx, "pending nonce", "eth_getTransactionCount", address, "pending")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// GetTransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is still pending.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash string) (*TxReceipt, error) {
	var r *struct {
		Status      string `json:"status"`
		BlockNumber string `json:"blockNumber"`
		GasUsed     string `json:"gasUsed"`
	}
	if err := c.call(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil // still pending
	}

	receipt := &TxReceipt{Hash: hash}
	if s, ok := parseBigHex(r.Status); ok {
		receipt.Status = s.Uint64()
	}
	if bn, ok := parseBigHex(r.BlockNumber); ok {
		receipt.BlockNumber = bn.Uint64()
	}
	if gu, ok := parseBigHex(r.GasUsed); ok {
		receipt.GasUsed = gu.Uint64()
	}
	return receipt, nil
}

// WaitForReceipt polls every interval until the transaction is mined or ctx
// is done. There is no built-in deadline; callers bound it through ctx.
// A reverted transaction returns the receipt together with an error.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash string, interval time.Duration) (*TxReceipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		receipt, err := c.GetTransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("transaction reverted (hash: %s)", hash)
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func (c *EVMClient) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.url); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("parsing %s result: %w", method, err)
	}
	return nil
}

func (c *EVMClient) callBig(ctx context.Context, what, method string, params ...interface{}) (*big.Int, error) {
	var hexStr string
	if err := c.call(ctx, &hexStr, method, params...); err != nil {
		return nil, err
	}
	n, ok := parseBigHex(hexStr)
	if !ok {
		return nil, fmt.Errorf("could not parse %s: %q", what, hexStr)
	}
	return n, nil
}

func (c *EVMClient) callBytes(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
	var hexStr string
	if err := c.call(ctx, &hexStr, method, params...); err != nil {
		return nil, err
	}
	if hexStr == "" || hexStr == "0x" {
		return []byte{}, nil
	}
	b, err := hexutil.Decode(hexStr)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return b, nil
}

func parseBigHex(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 16)
}
