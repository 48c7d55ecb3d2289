package chain

import "sort"

// Network describes a well-known EVM network by chain id.
type Network struct {
	ChainID        int64
	Name           string
	NativeCurrency string
	Explorer       string // empty for local dev chains
	Dev            bool   // local development chain with unlocked accounts
}

var networks = map[int64]Network{
	1:        {ChainID: 1, Name: "Ethereum Mainnet", NativeCurrency: "ETH", Explorer: "https://etherscan.io"},
	11155111: {ChainID: 11155111, Name: "Sepolia", NativeCurrency: "ETH", Explorer: "https://sepolia.etherscan.io"},
	17000:    {ChainID: 17000, Name: "Holesky", NativeCurrency: "ETH", Explorer: "https://holesky.etherscan.io"},
	8453:     {ChainID: 8453, Name: "Base", NativeCurrency: "ETH", Explorer: "https://basescan.org"},
	84532:    {ChainID: 84532, Name: "Base Sepolia", NativeCurrency: "ETH", Explorer: "https://sepolia.basescan.org"},
	10:       {ChainID: 10, Name: "Optimism", NativeCurrency: "ETH", Explorer: "https://optimistic.etherscan.io"},
	42161:    {ChainID: 42161, Name: "Arbitrum One", NativeCurrency: "ETH", Explorer: "https://arbiscan.io"},
	137:      {ChainID: 137, Name: "Polygon", NativeCurrency: "POL", Explorer: "https://polygonscan.com"},
	56:       {ChainID: 56, Name: "BNB Smart Chain", NativeCurrency: "BNB", Explorer: "https://bscscan.com"},
	43114:    {ChainID: 43114, Name: "Avalanche C-Chain", NativeCurrency: "AVAX", Explorer: "https://snowtrace.io"},
	1337:     {ChainID: 1337, Name: "Ganache", NativeCurrency: "ETH", Dev: true},
	31337:    {ChainID: 31337, Name: "Hardhat/Anvil", NativeCurrency: "ETH", Dev: true},
}

// LookupNetwork returns the known network for id.
func LookupNetwork(id int64) (Network, bool) {
	n, ok := networks[id]
	return n, ok
}

// Networks returns every known network ordered by chain id.
func Networks() []Network {
	out := make([]Network, 0, len(networks))
	for _, n := range networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// TxURL returns the explorer page for a transaction, or "" when the network
// has no explorer.
func (n Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}
