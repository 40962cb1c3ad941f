package network

import (
	"context"
	"errors"

	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

type NoArgs struct{}

type NativeBalanceArgs struct {
	UseTestnet bool `json:"useTestnet"`
}

func NewGasPriceTool() types.Tool {
	return types.NewTool(types.Definition{
		Name:        "get_gas_price",
		Description: "Get the current gas price on Rootstock Network",
		Schema:      types.Schema{Title: "Get Gas Price"},
	}, GasPrice)
}

func NewAddressTool() types.Tool {
	return types.NewTool(types.Definition{
		Name:        "get_address",
		Description: "Get the address of the current account",
		Schema:      types.Schema{Title: "Get Address"},
	}, Address)
}

func NewNativeBalanceTool() types.Tool {
	return types.NewTool(types.Definition{
		Name:        "get_native_balance",
		Description: "Get the RBTC balance of the current account",
		Schema: types.Schema{
			Title: "Get Native Balance",
			Fields: []types.Field{
				{Name: "useTestnet", Type: types.FieldBoolean, Required: true, Description: "Whether to use testnet or mainnet for balance check"},
			},
		},
	}, NativeBalance)
}

func GetAllTools() []types.Tool {
	return []types.Tool{
		NewGasPriceTool(),
		NewAddressTool(),
		NewNativeBalanceTool(),
	}
}

// GasPrice reports the node's gas price in gwei.
func GasPrice(ctx context.Context, backend *types.Backend, _ NoArgs) (types.Result, error) {
	price, err := backend.Chain.GasPrice(ctx)
	if err != nil {
		return types.Result{}, types.ChainRejected(err)
	}
	return types.TextResult(types.FromAtomicUnits(price, 9) + " Gwei"), nil
}

func Address(_ context.Context, backend *types.Backend, _ NoArgs) (types.Result, error) {
	account, ok := backend.Chain.Account()
	if !ok {
		return types.Result{}, types.NoAccount()
	}
	return types.TextResult(account.Hex()), nil
}

// NativeBalance queries the account balance on mainnet or testnet through a
// short-lived client, independent of the network the server is bound to.
func NativeBalance(ctx context.Context, backend *types.Backend, args NativeBalanceArgs) (types.Result, error) {
	account, ok := backend.Chain.Account()
	if !ok {
		return types.Result{}, types.NoAccount()
	}

	target := backend.Mainnet
	if args.UseTestnet {
		target = backend.Testnet
	}
	if backend.Dialer == nil {
		return types.Result{}, types.BalanceQueryFailed(errors.New("no network dialer configured"))
	}

	reader, err := backend.Dialer.Dial(ctx, target)
	if err != nil {
		logger.WarnContext(ctx, "Balance client dial failed", "network", target.Name, "error", err)
		return types.Result{}, types.BalanceQueryFailed(err)
	}
	defer reader.Close()

	balance, err := reader.Balance(ctx, account)
	if err != nil {
		logger.WarnContext(ctx, "Balance query failed", "network", target.Name, "error", err)
		return types.Result{}, types.BalanceQueryFailed(err)
	}
	return types.TextResult(types.FromAtomicUnits(balance, target.NativeDecimals)), nil
}
