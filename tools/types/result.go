package types

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/slighter12/rootstock-mcp-go/chain"
)

// TxEnvelope identifies a submitted transaction.
type TxEnvelope struct {
	Hash string `json:"hash"`
	URL  string `json:"url"`
}

// Result is either plain text (reads) or a transaction envelope (writes).
type Result struct {
	Text string
	Tx   *TxEnvelope
}

func TextResult(text string) Result {
	return Result{Text: text}
}

// TxResult builds the envelope for a transaction submitted on network. The
// explorer link is derived from the chain id.
func TxResult(network chain.Network, hash common.Hash) Result {
	hex := hash.Hex()
	return Result{Tx: &TxEnvelope{Hash: hex, URL: chain.ExplorerTxURL(network.ChainID, hex)}}
}

// Encode renders the result as the string returned to clients.
func (r Result) Encode() (string, error) {
	if r.Tx == nil {
		return r.Text, nil
	}
	data, err := json.Marshal(r.Tx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
