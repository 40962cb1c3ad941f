package chain

import (
	"strings"
)

// Network describes one Rootstock deployment the server can talk to.
type Network struct {
	Name           string `json:"name"`
	ChainID        int64  `json:"chain_id"`
	RPCURL         string `json:"rpc_url"`
	ExplorerURL    string `json:"explorer_url"`
	NativeSymbol   string `json:"native_symbol"`
	NativeDecimals uint8  `json:"native_decimals"`
}

const (
	MainnetChainID int64 = 30
	TestnetChainID int64 = 31
)

// Mainnet and Testnet are the preconfigured Rootstock networks. RPC URLs may be
// overridden from config; chain ids and explorers may not.
var (
	Mainnet = Network{
		Name:           "rootstock",
		ChainID:        MainnetChainID,
		RPCURL:         "https://public-node.rsk.co",
		ExplorerURL:    "https://explorer.rootstock.io",
		NativeSymbol:   "RBTC",
		NativeDecimals: 18,
	}
	Testnet = Network{
		Name:           "rootstock-testnet",
		ChainID:        TestnetChainID,
		RPCURL:         "https://public-node.testnet.rsk.co",
		ExplorerURL:    "https://explorer.testnet.rootstock.io",
		NativeSymbol:   "tRBTC",
		NativeDecimals: 18,
	}
)

// NetworkByName resolves "mainnet"/"testnet" and the canonical network names.
func NetworkByName(name string) (Network, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mainnet", Mainnet.Name:
		return Mainnet, true
	case "testnet", Testnet.Name:
		return Testnet, true
	default:
		return Network{}, false
	}
}

// NetworkByChainID returns the known network for a chain id.
func NetworkByChainID(chainID int64) (Network, bool) {
	switch chainID {
	case MainnetChainID:
		return Mainnet, true
	case TestnetChainID:
		return Testnet, true
	default:
		return Network{}, false
	}
}

// WithRPCURL returns a copy of n bound to a different endpoint.
func (n Network) WithRPCURL(url string) Network {
	if trimmed := strings.TrimSpace(url); trimmed != "" {
		n.RPCURL = trimmed
	}
	return n
}

// TxURL links a transaction hash on this network's explorer.
func (n Network) TxURL(hash string) string {
	return strings.TrimRight(n.ExplorerURL, "/") + "/tx/" + hash
}

// ExplorerTxURL derives the explorer link for a transaction from the chain id.
// Unknown chains fall back to the mainnet explorer.
func ExplorerTxURL(chainID int64, hash string) string {
	network, ok := NetworkByChainID(chainID)
	if !ok {
		network = Mainnet
	}
	return network.TxURL(hash)
}
