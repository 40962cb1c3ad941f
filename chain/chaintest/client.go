// Package chaintest provides in-memory chain.Client and chain.Dialer fakes.
package chaintest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/slighter12/rootstock-mcp-go/chain"
)

// Client records every call and answers from configurable hooks.
type Client struct {
	Net     chain.Network
	Address common.Address
	Signer  bool
	GasWei  *big.Int

	OnRead     func(req chain.CallRequest) ([]any, error)
	OnSimulate func(req chain.CallRequest) (*chain.PreparedTx, error)
	OnWrite    func(tx *chain.PreparedTx) (common.Hash, error)
	OnDeploy   func(req chain.DeployRequest) (common.Hash, error)

	mu          sync.Mutex
	Reads       []chain.CallRequest
	Simulations []chain.CallRequest
	Writes      []*chain.PreparedTx
	Deploys     []chain.DeployRequest
}

// NewClient returns a mainnet client with a signing account.
func NewClient(account string) *Client {
	return &Client{
		Net:     chain.Mainnet,
		Address: common.HexToAddress(account),
		Signer:  true,
		GasWei:  big.NewInt(0),
	}
}

// WriteHash is the hash returned by default for writes and deployments.
var WriteHash = common.HexToHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060")

func (c *Client) Network() chain.Network {
	return c.Net
}

func (c *Client) Account() (common.Address, bool) {
	return c.Address, c.Signer
}

func (c *Client) ReadContract(_ context.Context, req chain.CallRequest) ([]any, error) {
	c.mu.Lock()
	c.Reads = append(c.Reads, req)
	c.mu.Unlock()
	if c.OnRead == nil {
		return []any{}, nil
	}
	return c.OnRead(req)
}

func (c *Client) SimulateContract(_ context.Context, req chain.CallRequest) (*chain.PreparedTx, error) {
	c.mu.Lock()
	c.Simulations = append(c.Simulations, req)
	c.mu.Unlock()
	if c.OnSimulate != nil {
		return c.OnSimulate(req)
	}
	to := req.Address
	return &chain.PreparedTx{From: c.Address, To: &to, Value: req.Value, Gas: 21000}, nil
}

func (c *Client) WriteContract(_ context.Context, tx *chain.PreparedTx) (common.Hash, error) {
	c.mu.Lock()
	c.Writes = append(c.Writes, tx)
	c.mu.Unlock()
	if c.OnWrite != nil {
		return c.OnWrite(tx)
	}
	return WriteHash, nil
}

func (c *Client) DeployContract(_ context.Context, req chain.DeployRequest) (common.Hash, error) {
	c.mu.Lock()
	c.Deploys = append(c.Deploys, req)
	c.mu.Unlock()
	if c.OnDeploy != nil {
		return c.OnDeploy(req)
	}
	return WriteHash, nil
}

func (c *Client) GasPrice(context.Context) (*big.Int, error) {
	return c.GasWei, nil
}

// CallCount reports how many chain operations were attempted.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Reads) + len(c.Simulations) + len(c.Writes) + len(c.Deploys)
}

// Dialer hands out balance readers keyed by chain id.
type Dialer struct {
	Balances map[int64]*big.Int
	DialErr  error
	QueryErr error

	mu     sync.Mutex
	Dialed []chain.Network
	Closed int
}

func (d *Dialer) Dial(_ context.Context, network chain.Network) (chain.BalanceReader, error) {
	d.mu.Lock()
	d.Dialed = append(d.Dialed, network)
	d.mu.Unlock()
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	return &reader{dialer: d, chainID: network.ChainID}, nil
}

type reader struct {
	dialer  *Dialer
	chainID int64
}

func (r *reader) Balance(context.Context, common.Address) (*big.Int, error) {
	if r.dialer.QueryErr != nil {
		return nil, r.dialer.QueryErr
	}
	if balance, ok := r.dialer.Balances[r.chainID]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}

func (r *reader) Close() {
	r.dialer.mu.Lock()
	r.dialer.Closed++
	r.dialer.mu.Unlock()
}
