package erc20

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/slighter12/rootstock-mcp-go/chain"
	"github.com/slighter12/rootstock-mcp-go/contracts"
	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

var errNegativeAmount = errors.New("amount cannot be negative")

type BalanceArgs struct {
	ContractAddress string `json:"contractAddress"`
}

type TransferArgs struct {
	ContractAddress string `json:"contractAddress"`
	ToAddress       string `json:"toAddress"`
	Amount          string `json:"amount"`
}

func NewBalanceTool() types.Tool {
	return types.NewTool(types.Definition{
		Name:        "erc20_balance",
		Description: "Get the balance of an ERC20 token on Rootstock",
		Schema: types.Schema{
			Title: "ERC20 Balance",
			Fields: []types.Field{
				{Name: "contractAddress", Type: types.FieldString, Required: true, Description: "The address of the contract to get the balance of"},
			},
		},
	}, Balance)
}

func NewTransferTool() types.Tool {
	return types.NewTool(types.Definition{
		Name:        "erc20_transfer",
		Description: "Transfer an ERC20 token on Rootstock",
		Schema: types.Schema{
			Title: "ERC20 Transfer",
			Fields: []types.Field{
				{Name: "contractAddress", Type: types.FieldString, Required: true, Description: "The address of the contract to transfer the token from"},
				{Name: "toAddress", Type: types.FieldString, Required: true, Description: "The address of the recipient"},
				{Name: "amount", Type: types.FieldString, Required: true, Description: "The amount of tokens to transfer"},
			},
		},
	}, Transfer)
}

func GetAllTools() []types.Tool {
	return []types.Tool{
		NewBalanceTool(),
		NewTransferTool(),
	}
}

// Balance returns the account's token balance as a decimal string.
func Balance(ctx context.Context, backend *types.Backend, args BalanceArgs) (types.Result, error) {
	token, err := types.ParseAddress("contractAddress", args.ContractAddress)
	if err != nil {
		return types.Result{}, err
	}
	account, ok := backend.Chain.Account()
	if !ok {
		return types.Result{}, types.NoAccount()
	}

	values, err := backend.Chain.ReadContract(ctx, chain.CallRequest{
		Address: token,
		ABI:     contracts.ERC20ABI,
		Method:  "balanceOf",
		Args:    []any{account},
	})
	if err != nil {
		return types.Result{}, types.ChainRejected(err)
	}
	balance, err := single[*big.Int](values, "balanceOf")
	if err != nil {
		return types.Result{}, types.ChainRejected(err)
	}

	decimals, err := readDecimals(ctx, backend.Chain, token)
	if err != nil {
		return types.Result{}, err
	}
	return types.TextResult(types.FromAtomicUnits(balance, decimals)), nil
}

// Transfer sends amount (in whole tokens) to toAddress from the account.
func Transfer(ctx context.Context, backend *types.Backend, args TransferArgs) (types.Result, error) {
	token, err := types.ParseAddress("contractAddress", args.ContractAddress)
	if err != nil {
		return types.Result{}, err
	}
	to, err := types.ParseAddress("toAddress", args.ToAddress)
	if err != nil {
		return types.Result{}, err
	}
	amount, err := types.ParseAmount(args.Amount)
	if err != nil {
		return types.Result{}, types.InvalidAmount("amount", err)
	}
	if amount.IsNegative() {
		return types.Result{}, types.InvalidAmount("amount", errNegativeAmount)
	}
	if _, ok := backend.Chain.Account(); !ok {
		return types.Result{}, types.NoAccount()
	}

	decimals, err := readDecimals(ctx, backend.Chain, token)
	if err != nil {
		return types.Result{}, err
	}
	atomic, err := types.ScaleAmount(amount, decimals)
	if err != nil {
		return types.Result{}, types.InvalidAmount("amount", err)
	}

	prepared, err := backend.Chain.SimulateContract(ctx, chain.CallRequest{
		Address: token,
		ABI:     contracts.ERC20ABI,
		Method:  "transfer",
		Args:    []any{to, atomic},
	})
	if err != nil {
		return types.Result{}, types.ChainRejected(err)
	}
	hash, err := backend.Chain.WriteContract(ctx, prepared)
	if err != nil {
		return types.Result{}, types.ChainRejected(err)
	}

	logger.InfoContext(ctx, "ERC20 transfer submitted", "token", token.Hex(), "to", to.Hex(), "amount", atomic.String(), "hash", hash.Hex())
	return types.TxResult(backend.Chain.Network(), hash), nil
}

func readDecimals(ctx context.Context, client chain.Client, token common.Address) (uint8, error) {
	values, err := client.ReadContract(ctx, chain.CallRequest{
		Address: token,
		ABI:     contracts.ERC20ABI,
		Method:  "decimals",
	})
	if err != nil {
		return 0, types.ChainRejected(err)
	}
	decimals, err := single[uint8](values, "decimals")
	if err != nil {
		return 0, types.ChainRejected(err)
	}
	return decimals, nil
}

func single[T any](values []any, method string) (T, error) {
	var zero T
	if len(values) != 1 {
		return zero, fmt.Errorf("%s returned %d values", method, len(values))
	}
	value, ok := values[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s returned unexpected type %T", method, values[0])
	}
	return value, nil
}
