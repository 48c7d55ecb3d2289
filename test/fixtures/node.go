package fixtures

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/w3token/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

// TokenAddress is where TutorialToken.json is deployed on network 5777.
// Like Ganache, the node reports chain id 1337 and network id 5777.
const TokenAddress = "0xCfEB869F69431e42cdB54A4F4f105C19C080A601"

// Ganache's first two default accounts.
var (
	Alice = common.HexToAddress("0x627306090abaB3A6e1400e9345bC60c78a8BEf57")
	Bob   = common.HexToAddress("0xf17f52151EbEF6C7334FAD080c5704D77216b732")
)

// Node is an in-process JSON-RPC endpoint that behaves like a development
// chain with unlocked accounts and one ERC-20 token deployed.
type Node struct {
	mu        sync.Mutex
	chainID   int64
	networkID int64
	accounts  []common.Address
	supply    *big.Int
	balances  map[common.Address]*big.Int
	txs       int
	methods   []string
}

// NewNode returns a Ganache-like node (chain 1337, network 5777) where Alice holds 250 of 1000 raw
// token units and owns 3 ETH.
func NewNode() *Node {
	return &Node{
		chainID:   1337,
		networkID: 5777,
		accounts:  []common.Address{Alice, Bob},
		supply:    big.NewInt(1000),
		balances:  map[common.Address]*big.Int{Alice: big.NewInt(250), Bob: big.NewInt(40)},
	}
}

// SetChain changes the reported chain id.
func (n *Node) SetChain(id int64) {
	n.mu.Lock()
	n.chainID = id
	n.mu.Unlock()
}

// SetNetworkID changes the id reported by net_version.
func (n *Node) SetNetworkID(id int64) {
	n.mu.Lock()
	n.networkID = id
	n.mu.Unlock()
}

// SetAccounts changes the exposed accounts.
func (n *Node) SetAccounts(accounts ...common.Address) {
	n.mu.Lock()
	n.accounts = accounts
	n.mu.Unlock()
}

// TokenBalance returns the raw token balance of owner.
func (n *Node) TokenBalance(owner common.Address) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if b := n.balances[owner]; b != nil {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Methods returns the JSON-RPC methods served so far.
func (n *Node) Methods() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.methods...)
}

// Serve starts the node on a test server and returns its URL.
func (n *Node) Serve(t *testing.T) string {
	t.Helper()
	art, err := contract.Builtin("erc20")
	require.NoError(t, err)

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
		result, rpcErr := n.handle(art, req.Method, req.Params)

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = map[string]interface{}{"code": -32000, "message": rpcErr.Error()}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

type callArgs struct {
	From string `json:"from"`
	To   string `json:"to"`
	Data string `json:"data"`
}

func (n *Node) handle(art *contract.Artifact, method string, params []json.RawMessage) (interface{}, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.methods = append(n.methods, method)

	switch method {
	case "eth_chainId":
		return hexutil.EncodeBig(big.NewInt(n.chainID)), nil
	case "net_version":
		return strconv.FormatInt(n.networkID, 10), nil
	case "eth_requestAccounts", "eth_accounts":
		out := make([]string, len(n.accounts))
		for i, a := range n.accounts {
			out[i] = strings.ToLower(a.Hex())
		}
		return out, nil
	case "eth_getBalance":
		return hexutil.EncodeBig(new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))), nil
	case "eth_getCode":
		var addr string
		if err := json.Unmarshal(params[0], &addr); err != nil {
			return nil, err
		}
		if !strings.EqualFold(addr, TokenAddress) {
			return "0x", nil
		}
		return "0x6080604052", nil
	case "eth_call":
		var args callArgs
		if err := json.Unmarshal(params[0], &args); err != nil {
			return nil, err
		}
		out, err := n.call(art, args)
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(out), nil
	case "eth_sendTransaction":
		var args callArgs
		if err := json.Unmarshal(params[0], &args); err != nil {
			return nil, err
		}
		if err := n.transfer(art, args); err != nil {
			return nil, err
		}
		n.txs++
		return common.BigToHash(big.NewInt(int64(n.txs))).Hex(), nil
	case "eth_getTransactionReceipt":
		return map[string]string{"status": "0x1", "blockNumber": "0x2a", "gasUsed": "0xd1c8"}, nil
	}
	return nil, fmt.Errorf("method %s not supported", method)
}

func (n *Node) call(art *contract.Artifact, args callArgs) ([]byte, error) {
	data, err := hexutil.Decode(args.Data)
	if err != nil || len(data) < 4 {
		return nil, fmt.Errorf("bad call data")
	}
	m, err := art.ABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("execution reverted")
	}
	switch m.Name {
	case "totalSupply":
		return m.Outputs.Pack(n.supply)
	case "balanceOf":
		in, err := m.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		bal := n.balances[in[0].(common.Address)]
		if bal == nil {
			bal = new(big.Int)
		}
		return m.Outputs.Pack(bal)
	case "name":
		return m.Outputs.Pack("TutorialToken")
	case "symbol":
		return m.Outputs.Pack("TT")
	case "decimals":
		return m.Outputs.Pack(uint8(2))
	}
	return nil, fmt.Errorf("execution reverted")
}

func (n *Node) transfer(art *contract.Artifact, args callArgs) error {
	data, err := hexutil.Decode(args.Data)
	if err != nil || len(data) < 4 {
		return fmt.Errorf("bad transaction data")
	}
	m, err := art.ABI.MethodById(data[:4])
	if err != nil || m.Name != "transfer" {
		return fmt.Errorf("execution reverted")
	}
	in, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return err
	}
	from := common.HexToAddress(args.From)
	to := in[0].(common.Address)
	amount := in[1].(*big.Int)

	bal := n.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("execution reverted: ERC20: transfer amount exceeds balance")
	}
	n.balances[from] = new(big.Int).Sub(bal, amount)
	if n.balances[to] == nil {
		n.balances[to] = new(big.Int)
	}
	n.balances[to] = new(big.Int).Add(n.balances[to], amount)
	return nil
}
