package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slighter12/rootstock-mcp-go/chain"
	"github.com/slighter12/rootstock-mcp-go/chain/chaintest"
	"github.com/slighter12/rootstock-mcp-go/contracts"
	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

const (
	account = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	token   = "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"
	nft     = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

const counterABI = `[
  {"type":"function","name":"count","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"increment","stateMutability":"nonpayable","inputs":[{"name":"by","type":"uint256"}],"outputs":[]}
]`

func newTestDispatcher(t *testing.T) (*Dispatcher, *chaintest.Client, *chaintest.Dialer) {
	t.Helper()

	client := chaintest.NewClient(account)
	dialer := &chaintest.Dialer{Balances: map[int64]*big.Int{}}

	store := contracts.NewStore(t.TempDir())
	tokenABI, err := abi.JSON(strings.NewReader(`[{"type":"constructor","inputs":[
		{"name":"nft","type":"address"},{"name":"propertyId","type":"uint256"},
		{"name":"name","type":"string"},{"name":"symbol","type":"string"}]}]`))
	require.NoError(t, err)
	store.Put(&contracts.Artifact{Name: contracts.PropertyToken, ABI: tokenABI, Bytecode: []byte{0x60, 0x80}})

	d, err := NewDefaultDispatcher(&types.Backend{
		Chain:     client,
		Dialer:    dialer,
		Mainnet:   chain.Mainnet,
		Testnet:   chain.Testnet,
		Artifacts: store,
	})
	require.NoError(t, err)
	return d, client, dialer
}

func requireKind(t *testing.T, err error, kind types.ErrorKind) *types.ToolError {
	t.Helper()
	toolErr, ok := types.AsToolError(err)
	require.True(t, ok, "expected ToolError, got %v", err)
	require.Equal(t, kind, toolErr.Kind, toolErr.Error())
	return toolErr
}

func TestCatalog(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	var names []string
	for _, tool := range d.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"call_contract",
		"deploy_property_nft",
		"deploy_property_token",
		"deploy_property_yield_vault",
		"erc20_balance",
		"erc20_transfer",
		"get_address",
		"get_gas_price",
		"get_native_balance",
	}, names)

	tool, ok := d.Tool("erc20_transfer")
	require.True(t, ok)
	assert.Equal(t, []string{"contractAddress", "toAddress", "amount"}, tool.Schema().InputSchema().Required)
}

func TestNewDispatcherRejectsDuplicates(t *testing.T) {
	_, err := NewDispatcher(&types.Backend{}, GetAllTools()[0], GetAllTools()[0])
	assert.ErrorContains(t, err, "duplicate tool")
}

func TestDispatchUnknownToolDoesNoIO(t *testing.T) {
	d, client, dialer := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "mint_everything", map[string]any{})
	requireKind(t, err, types.KindUnknownTool)
	assert.Zero(t, client.CallCount())
	assert.Empty(t, dialer.Dialed)
}

func TestDispatchMissingField(t *testing.T) {
	d, client, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "erc20_transfer", map[string]any{
		"contractAddress": token,
		"toAddress":       account,
	})
	toolErr := requireKind(t, err, types.KindMissingField)
	assert.Equal(t, "amount", toolErr.Field)
	assert.Zero(t, client.CallCount())
}

func TestDispatchTypeMismatch(t *testing.T) {
	d, _, dialer := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "get_native_balance", map[string]any{"useTestnet": "yes"})
	toolErr := requireKind(t, err, types.KindTypeMismatch)
	assert.Equal(t, "useTestnet", toolErr.Field)
	assert.Empty(t, dialer.Dialed)
}

func TestDispatchInvalidAddressNeverWrites(t *testing.T) {
	d, client, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "erc20_transfer", map[string]any{
		"contractAddress": token,
		"toAddress":       "0x1234",
		"amount":          "1",
	})
	toolErr := requireKind(t, err, types.KindInvalidAddress)
	assert.Equal(t, "toAddress", toolErr.Field)
	assert.Empty(t, client.Simulations)
	assert.Empty(t, client.Writes)
}

func TestDispatchViewCallProducesNoTransaction(t *testing.T) {
	d, client, _ := newTestDispatcher(t)
	client.OnRead = func(req chain.CallRequest) ([]any, error) {
		return []any{big.NewInt(7)}, nil
	}

	out, err := d.Dispatch(context.Background(), "call_contract", map[string]any{
		"contractAddress": token,
		"functionName":    "count",
		"abi":             counterABI,
	})
	require.NoError(t, err)
	assert.Equal(t, "7", out)
	assert.Len(t, client.Reads, 1)
	assert.Empty(t, client.Simulations)
	assert.Empty(t, client.Writes)
}

func TestDispatchWriteCallReturnsEnvelope(t *testing.T) {
	d, client, _ := newTestDispatcher(t)

	out, err := d.Dispatch(context.Background(), "call_contract", map[string]any{
		"contractAddress": token,
		"functionName":    "increment",
		"abi":             counterABI,
		"functionArgs":    []any{"5"},
	})
	require.NoError(t, err)

	var envelope types.TxEnvelope
	require.NoError(t, json.Unmarshal([]byte(out), &envelope))
	assert.Equal(t, chaintest.WriteHash.Hex(), envelope.Hash)
	assert.Equal(t, "https://explorer.rootstock.io/tx/"+chaintest.WriteHash.Hex(), envelope.URL)

	require.Len(t, client.Simulations, 1)
	require.Len(t, client.Simulations[0].Args, 1)
	assert.Equal(t, "5", client.Simulations[0].Args[0].(*big.Int).String())
	assert.Len(t, client.Writes, 1)
}

func TestDispatchMalformedABI(t *testing.T) {
	d, client, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "call_contract", map[string]any{
		"contractAddress": token,
		"functionName":    "count",
		"abi":             "[{not json",
	})
	requireKind(t, err, types.KindInvalidABI)
	assert.Zero(t, client.CallCount())
}

func TestDispatchERC20Balance(t *testing.T) {
	d, client, _ := newTestDispatcher(t)
	client.OnRead = func(req chain.CallRequest) ([]any, error) {
		switch req.Method {
		case "balanceOf":
			return []any{big.NewInt(1_500_000_000_000_000_000)}, nil
		case "decimals":
			return []any{uint8(18)}, nil
		}
		return nil, errors.New("unexpected method " + req.Method)
	}

	out, err := d.Dispatch(context.Background(), "erc20_balance", map[string]any{"contractAddress": token})
	require.NoError(t, err)
	assert.Equal(t, "1.5", out)
}

func TestDispatchERC20TransferScalesAmount(t *testing.T) {
	d, client, _ := newTestDispatcher(t)
	client.OnRead = func(req chain.CallRequest) ([]any, error) {
		return []any{uint8(18)}, nil
	}

	_, err := d.Dispatch(context.Background(), "erc20_transfer", map[string]any{
		"contractAddress": token,
		"toAddress":       nft,
		"amount":          "2.5",
	})
	require.NoError(t, err)

	require.Len(t, client.Simulations, 1)
	sim := client.Simulations[0]
	assert.Equal(t, "transfer", sim.Method)
	require.Len(t, sim.Args, 2)
	assert.Equal(t, "2500000000000000000", sim.Args[1].(*big.Int).String())
	assert.Len(t, client.Writes, 1)
}

func TestDispatchNativeBalanceUsesTestnet(t *testing.T) {
	d, _, dialer := newTestDispatcher(t)
	dialer.Balances[chain.TestnetChainID] = big.NewInt(250_000_000_000_000_000)

	out, err := d.Dispatch(context.Background(), "get_native_balance", map[string]any{"useTestnet": true})
	require.NoError(t, err)
	assert.Equal(t, "0.25", out)

	require.Len(t, dialer.Dialed, 1)
	assert.Equal(t, chain.TestnetChainID, dialer.Dialed[0].ChainID)
	assert.Equal(t, chain.Testnet.RPCURL, dialer.Dialed[0].RPCURL)
	assert.Equal(t, 1, dialer.Closed)
}

func TestDispatchIgnoresCaseVariantKeys(t *testing.T) {
	d, _, dialer := newTestDispatcher(t)
	dialer.Balances[chain.MainnetChainID] = big.NewInt(1_000_000_000_000_000_000)

	out, err := d.Dispatch(context.Background(), "get_native_balance", map[string]any{
		"useTestnet": false,
		"usetestnet": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "1", out)
	require.Len(t, dialer.Dialed, 1)
	assert.Equal(t, chain.MainnetChainID, dialer.Dialed[0].ChainID)

	// An undeclared variant cannot stand in for a missing required field.
	_, err = d.Dispatch(context.Background(), "erc20_balance", map[string]any{"ContractAddress": token})
	toolErr := requireKind(t, err, types.KindMissingField)
	assert.Equal(t, "contractAddress", toolErr.Field)
}

func TestDispatchLogsCarryRequestID(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, logger.Init(slog.LevelDebug, logger.FormatJSON, &console))
	t.Cleanup(func() {
		_ = logger.Init(slog.LevelInfo, logger.FormatText, os.Stderr)
	})
	d, _, _ := newTestDispatcher(t)

	ctx := logger.WithRequestID(context.Background(), "req-42")
	_, err := d.Dispatch(ctx, "get_gas_price", nil)
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, "erc20_balance", map[string]any{"contractAddress": "0x123"})
	require.Error(t, err)

	var tagged int
	for _, line := range strings.Split(strings.TrimSpace(console.String()), "\n") {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		if record["msg"] == "Tool call succeeded" || record["msg"] == "Tool call failed" {
			assert.Equal(t, "req-42", record["request_id"])
			tagged++
		}
	}
	assert.Equal(t, 2, tagged)
}

func TestDispatchDeployTokenInvalidAddress(t *testing.T) {
	d, client, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "deploy_property_token", map[string]any{
		"propertyNFTAddress": "not-an-address",
		"propertyId":         "1",
		"name":               "Villa",
		"symbol":             "VIL",
	})
	toolErr := requireKind(t, err, types.KindInvalidAddress)
	assert.Equal(t, "propertyNFTAddress", toolErr.Field)
	assert.Empty(t, client.Deploys)
}

func TestDispatchDeployToken(t *testing.T) {
	d, client, _ := newTestDispatcher(t)

	out, err := d.Dispatch(context.Background(), "deploy_property_token", map[string]any{
		"propertyNFTAddress": nft,
		"propertyId":         "42",
		"name":               "Villa",
		"symbol":             "VIL",
	})
	require.NoError(t, err)
	assert.Contains(t, out, chaintest.WriteHash.Hex())

	require.Len(t, client.Deploys, 1)
	args := client.Deploys[0].Args
	require.Len(t, args, 4)
	assert.Equal(t, "42", args[1].(*big.Int).String())
	assert.Equal(t, "Villa", args[2])
	assert.Equal(t, "VIL", args[3])
}

func TestDispatchDeployMissingArtifact(t *testing.T) {
	d, client, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), "deploy_property_nft", map[string]any{})
	requireKind(t, err, types.KindArtifactUnavailable)
	assert.Empty(t, client.Deploys)
}

func TestDispatchNoAccount(t *testing.T) {
	d, client, _ := newTestDispatcher(t)
	client.Signer = false

	_, err := d.Dispatch(context.Background(), "get_address", nil)
	requireKind(t, err, types.KindNoAccount)
}

func TestDispatchChainRejection(t *testing.T) {
	d, client, _ := newTestDispatcher(t)
	client.OnRead = func(req chain.CallRequest) ([]any, error) {
		return []any{uint8(18)}, nil
	}
	client.OnSimulate = func(req chain.CallRequest) (*chain.PreparedTx, error) {
		return nil, errors.New("execution reverted: ERC20: transfer amount exceeds balance")
	}

	_, err := d.Dispatch(context.Background(), "erc20_transfer", map[string]any{
		"contractAddress": token,
		"toAddress":       nft,
		"amount":          "1000",
	})
	toolErr := requireKind(t, err, types.KindChainRejected)
	assert.Contains(t, toolErr.Error(), "exceeds balance")
	assert.Empty(t, client.Writes)
}

type panicArgs struct{}

func TestDispatchRecoversFromPanic(t *testing.T) {
	boom := types.NewTool(types.Definition{Name: "boom"}, func(context.Context, *types.Backend, panicArgs) (types.Result, error) {
		panic("nil map")
	})
	d, err := NewDispatcher(&types.Backend{}, boom)
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), "boom", nil)
	requireKind(t, err, types.KindInternal)
}

func TestDispatchWrapsUntaggedErrors(t *testing.T) {
	plain := types.NewTool(types.Definition{Name: "plain"}, func(context.Context, *types.Backend, panicArgs) (types.Result, error) {
		return types.Result{}, errors.New("disk full")
	})
	d, err := NewDispatcher(&types.Backend{}, plain)
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), "plain", nil)
	toolErr := requireKind(t, err, types.KindInternal)
	assert.Equal(t, "disk full", toolErr.Error())
}

func TestConcurrentDispatch(t *testing.T) {
	d, client, _ := newTestDispatcher(t)
	client.GasWei = big.NewInt(60_000_000)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := d.Dispatch(context.Background(), "get_gas_price", nil)
			assert.NoError(t, err)
			assert.Equal(t, "0.06 Gwei", out)
		}()
	}
	wg.Wait()
}
