package contract

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/slighter12/rootstock-mcp-go/chain"
	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

var errNotPayable = errors.New("function is not payable")

type CallArgs struct {
	ContractAddress string   `json:"contractAddress"`
	FunctionName    string   `json:"functionName"`
	ABI             string   `json:"abi"`
	FunctionArgs    []string `json:"functionArgs"`
	Value           string   `json:"value"`
}

var callDefinition = types.Definition{
	Name:        "call_contract",
	Description: "Call a contract function on Rootstock Network",
	Schema: types.Schema{
		Title: "Call Contract",
		Fields: []types.Field{
			{Name: "contractAddress", Type: types.FieldString, Required: true, Description: "The address of the contract to call"},
			{Name: "functionName", Type: types.FieldString, Required: true, Description: "The name of the function to call"},
			{Name: "functionArgs", Type: types.FieldStringArray, Description: "The arguments to pass to the function"},
			{Name: "abi", Type: types.FieldString, Required: true, Description: "The ABI of the contract"},
			{Name: "value", Type: types.FieldString, Description: "Amount of wei to send with a payable call (default 0)"},
		},
	},
}

// NewCallContractTool returns call_contract. view and pure functions are read
// without a transaction; anything else is simulated and then submitted.
func NewCallContractTool() types.Tool {
	return types.NewTool(callDefinition, CallContract)
}

func CallContract(ctx context.Context, backend *types.Backend, args CallArgs) (types.Result, error) {
	parsed, err := abi.JSON(strings.NewReader(args.ABI))
	if err != nil {
		return types.Result{}, types.InvalidABI(err)
	}
	address, err := types.ParseAddress("contractAddress", args.ContractAddress)
	if err != nil {
		return types.Result{}, err
	}
	method, ok := findMethod(parsed, args.FunctionName, len(args.FunctionArgs))
	if !ok {
		return types.Result{}, types.FunctionNotFound(args.FunctionName)
	}
	callArgs, err := convertArgs(method, args.FunctionArgs)
	if err != nil {
		return types.Result{}, types.InvalidArgument("functionArgs", err)
	}

	req := chain.CallRequest{Address: address, ABI: parsed, Method: method.Name, Args: callArgs}

	if method.IsConstant() {
		values, err := backend.Chain.ReadContract(ctx, req)
		if err != nil {
			return types.Result{}, types.ChainRejected(err)
		}
		return types.TextResult(formatOutputs(values)), nil
	}

	if _, ok := backend.Chain.Account(); !ok {
		return types.Result{}, types.NoAccount()
	}
	if strings.TrimSpace(args.Value) != "" {
		value, err := types.ParseUint256(args.Value)
		if err != nil {
			return types.Result{}, types.InvalidAmount("value", err)
		}
		if value.Sign() > 0 && !method.IsPayable() {
			return types.Result{}, types.InvalidArgument("value", errNotPayable)
		}
		req.Value = value
	}

	prepared, err := backend.Chain.SimulateContract(ctx, req)
	if err != nil {
		return types.Result{}, types.ChainRejected(err)
	}
	hash, err := backend.Chain.WriteContract(ctx, prepared)
	if err != nil {
		return types.Result{}, types.ChainRejected(err)
	}

	logger.InfoContext(ctx, "Contract call submitted", "contract", address.Hex(), "function", method.Sig, "hash", hash.Hex())
	return types.TxResult(backend.Chain.Network(), hash), nil
}
