package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// tokenMethods must be present in any ABI the token client attaches to.
var tokenMethods = []string{"totalSupply", "balanceOf", "transfer"}

// Artifact is a contract ABI plus the addresses it is deployed at.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Networks map[int64]common.Address // network id → deployment
}

// Deployment returns the address recorded for t. Truffle keys deployments by
// network id, so that is tried first; the chain id covers artifacts written
// by tools that key by chain.
func (a *Artifact) Deployment(t Target) (common.Address, bool) {
	if t.NetworkID != 0 {
		if addr, ok := a.Networks[t.NetworkID]; ok {
			return addr, true
		}
	}
	addr, ok := a.Networks[t.ChainID]
	return addr, ok
}

// NetworkIDs lists the networks the artifact has deployments on, ascending.
func (a *Artifact) NetworkIDs() []int64 {
	out := make([]int64, 0, len(a.Networks))
	for id := range a.Networks {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadArtifact loads a contract from a local file that is either:
//   - a Truffle build artifact: {"contractName":..,"abi":[..],"networks":{"5777":{"address":"0x.."}}}
//   - a Hardhat/Foundry artifact: {"abi":[..],"bytecode":..} (no deployments)
//   - a raw ABI JSON array
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read artifact file: %w", err)
	}
	art, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return art, nil
}

// ParseArtifact parses artifact bytes in any of the formats LoadArtifact
// accepts.
func ParseArtifact(data []byte) (*Artifact, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("artifact is empty")
	}

	var raw struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
		Networks     map[string]struct {
			Address string `json:"address"`
		} `json:"networks"`
	}
	abiJSON := data
	if data[0] == '{' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid artifact JSON: %w", err)
		}
		if len(raw.ABI) < 2 || raw.ABI[0] != '[' {
			return nil, fmt.Errorf("artifact has no \"abi\" array")
		}
		abiJSON = raw.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid ABI JSON: %w", err)
	}
	if err := validateABI(parsed); err != nil {
		return nil, err
	}

	art := &Artifact{
		Name:     raw.ContractName,
		ABI:      parsed,
		Networks: make(map[int64]common.Address, len(raw.Networks)),
	}
	for key, dep := range raw.Networks {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("artifact network key %q is not a chain id", key)
		}
		if dep.Address == "" {
			continue
		}
		if !common.IsHexAddress(dep.Address) {
			return nil, fmt.Errorf("artifact network %s has malformed address %q", key, dep.Address)
		}
		art.Networks[id] = common.HexToAddress(dep.Address)
	}
	return art, nil
}

// validateABI checks that the ABI exposes the token operations.
func validateABI(parsed abi.ABI) error {
	for _, name := range tokenMethods {
		if _, ok := parsed.Methods[name]; !ok {
			return fmt.Errorf("ABI has no %s function; not a token contract", name)
		}
	}
	return nil
}
