package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/metrics"
)

// Options configures an RPCClient.
type Options struct {
	// PrivateKey is a hex encoded secp256k1 key. Empty means read-only.
	PrivateKey        string
	RequestsPerSecond float64
	Burst             int
}

// RPCClient implements Client over JSON-RPC using go-ethereum.
type RPCClient struct {
	eth     *ethclient.Client
	network Network
	chainID *big.Int
	key     *ecdsa.PrivateKey
	account common.Address
	limiter *rate.Limiter

	// sendMu sequences nonce assignment for concurrent writes from the account.
	sendMu sync.Mutex
}

// Dial connects to network.RPCURL.
func Dial(ctx context.Context, network Network, opts Options) (*RPCClient, error) {
	if strings.TrimSpace(network.RPCURL) == "" {
		return nil, errors.New("rpc url cannot be empty")
	}

	eth, err := ethclient.DialContext(ctx, network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", network.Name, err)
	}

	client := &RPCClient{
		eth:     eth,
		network: network,
		chainID: big.NewInt(network.ChainID),
		limiter: newLimiter(opts.RequestsPerSecond, opts.Burst),
	}

	if key := strings.TrimPrefix(strings.TrimSpace(opts.PrivateKey), "0x"); key != "" {
		privateKey, err := crypto.HexToECDSA(key)
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		client.key = privateKey
		client.account = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	logger.Debug("Chain client dialed", "network", network.Name, "chain_id", network.ChainID, "signer", client.key != nil)
	return client, nil
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (c *RPCClient) Network() Network {
	return c.network
}

func (c *RPCClient) Account() (common.Address, bool) {
	return c.account, c.key != nil
}

func (c *RPCClient) Close() {
	c.eth.Close()
}

func (c *RPCClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *RPCClient) ReadContract(ctx context.Context, req CallRequest) ([]any, error) {
	data, err := req.ABI.Pack(req.Method, req.Args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s call: %w", req.Method, err)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	to := req.Address
	msg := ethereum.CallMsg{To: &to, Data: data}
	if account, ok := c.Account(); ok {
		msg.From = account
	}
	out, err := c.eth.CallContract(ctx, msg, nil)
	metrics.RecordRPC("eth_call", err)
	if err != nil {
		return nil, err
	}

	values, err := req.ABI.Unpack(req.Method, out)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", req.Method, err)
	}
	return values, nil
}

// SimulateContract dry-runs the call from the configured account and estimates
// gas. A revert surfaces as an error and nothing is submitted.
func (c *RPCClient) SimulateContract(ctx context.Context, req CallRequest) (*PreparedTx, error) {
	account, ok := c.Account()
	if !ok {
		return nil, ErrNoAccount
	}

	data, err := req.ABI.Pack(req.Method, req.Args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s call: %w", req.Method, err)
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	to := req.Address
	msg := ethereum.CallMsg{From: account, To: &to, Value: value, Data: data}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	_, err = c.eth.CallContract(ctx, msg, nil)
	metrics.RecordRPC("eth_call", err)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", req.Method, err)
	}

	gas, err := c.estimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("estimate gas for %s: %w", req.Method, err)
	}

	return &PreparedTx{From: account, To: &to, Data: data, Value: value, Gas: gas}, nil
}

func (c *RPCClient) WriteContract(ctx context.Context, tx *PreparedTx) (common.Hash, error) {
	if tx == nil {
		return common.Hash{}, errors.New("prepared transaction cannot be nil")
	}
	return c.send(ctx, tx.To, tx.Value, tx.Gas, tx.Data)
}

func (c *RPCClient) DeployContract(ctx context.Context, req DeployRequest) (common.Hash, error) {
	account, ok := c.Account()
	if !ok {
		return common.Hash{}, ErrNoAccount
	}
	if len(req.Bytecode) == 0 {
		return common.Hash{}, errors.New("contract bytecode is empty")
	}

	ctorArgs, err := req.ABI.Pack("", req.Args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode constructor arguments: %w", err)
	}
	input := append(append([]byte{}, req.Bytecode...), ctorArgs...)

	gas, err := c.estimateGas(ctx, ethereum.CallMsg{From: account, Data: input})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate deployment gas: %w", err)
	}
	return c.send(ctx, nil, new(big.Int), gas, input)
}

func (c *RPCClient) GasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	price, err := c.eth.SuggestGasPrice(ctx)
	metrics.RecordRPC("eth_gasPrice", err)
	return price, err
}

// Balance returns the native balance of address; it serves RPCDialer readers.
func (c *RPCClient) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	balance, err := c.eth.BalanceAt(ctx, address, nil)
	metrics.RecordRPC("eth_getBalance", err)
	return balance, err
}

func (c *RPCClient) estimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	gas, err := c.eth.EstimateGas(ctx, msg)
	metrics.RecordRPC("eth_estimateGas", err)
	return gas, err
}

// send signs a legacy transaction (Rootstock has no EIP-1559 fee market) and
// broadcasts it.
func (c *RPCClient) send(ctx context.Context, to *common.Address, value *big.Int, gas uint64, data []byte) (common.Hash, error) {
	if c.key == nil {
		return common.Hash{}, ErrNoAccount
	}
	if value == nil {
		value = new(big.Int)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.wait(ctx); err != nil {
		return common.Hash{}, err
	}
	nonce, err := c.eth.PendingNonceAt(ctx, c.account)
	metrics.RecordRPC("eth_getTransactionCount", err)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}

	gasPrice, err := c.GasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return common.Hash{}, err
	}
	err = c.eth.SendTransaction(ctx, signed)
	metrics.RecordRPC("eth_sendRawTransaction", err)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit transaction: %w", err)
	}

	logger.Info("Transaction submitted", "network", c.network.Name, "hash", signed.Hash().Hex(), "nonce", nonce)
	return signed.Hash(), nil
}

// RPCDialer opens short-lived read-only clients.
type RPCDialer struct {
	Options Options
}

func (d RPCDialer) Dial(ctx context.Context, network Network) (BalanceReader, error) {
	opts := d.Options
	opts.PrivateKey = ""
	return Dial(ctx, network, opts)
}
