package contract

import (
	"context"
	"errors"

	"github.com/slighter12/rootstock-mcp-go/chain"
	"github.com/slighter12/rootstock-mcp-go/contracts"
	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

type DeployNFTArgs struct{}

type DeployTokenArgs struct {
	PropertyNFTAddress string `json:"propertyNFTAddress"`
	PropertyID         string `json:"propertyId"`
	Name               string `json:"name"`
	Symbol             string `json:"symbol"`
}

type DeployVaultArgs struct {
	AssetAddress       string `json:"assetAddress"`
	Name               string `json:"name"`
	Symbol             string `json:"symbol"`
	PropertyNFTAddress string `json:"propertyNFTAddress"`
	PropertyID         string `json:"propertyId"`
}

func NewDeployPropertyNFTTool() types.Tool {
	return types.NewTool(types.Definition{
		Name:        "deploy_property_nft",
		Description: "Deploy a PropertyNFT contract on Rootstock",
		Schema:      types.Schema{Title: "Deploy Property NFT"},
	}, DeployPropertyNFT)
}

func NewDeployPropertyTokenTool() types.Tool {
	return types.NewTool(types.Definition{
		Name:        "deploy_property_token",
		Description: "Deploy a PropertyToken contract on Rootstock",
		Schema: types.Schema{
			Title: "Deploy Property Token",
			Fields: []types.Field{
				{Name: "propertyNFTAddress", Type: types.FieldString, Required: true, Description: "The address of the PropertyNFT"},
				{Name: "propertyId", Type: types.FieldString, Required: true, Description: "The ID of the property"},
				{Name: "name", Type: types.FieldString, Required: true, Description: "The name of the property"},
				{Name: "symbol", Type: types.FieldString, Required: true, Description: "The symbol of the property"},
			},
		},
	}, DeployPropertyToken)
}

func NewDeployPropertyYieldVaultTool() types.Tool {
	return types.NewTool(types.Definition{
		Name:        "deploy_property_yield_vault",
		Description: "Deploy a PropertyYieldVault contract on Rootstock",
		Schema: types.Schema{
			Title: "Deploy Property Yield Vault",
			Fields: []types.Field{
				{Name: "assetAddress", Type: types.FieldString, Required: true, Description: "The address of the underlying ERC20 PropertyToken"},
				{Name: "name", Type: types.FieldString, Required: true, Description: "The name of the vault token"},
				{Name: "symbol", Type: types.FieldString, Required: true, Description: "The symbol of the vault token"},
				{Name: "propertyNFTAddress", Type: types.FieldString, Required: true, Description: "The address of the PropertyNFT"},
				{Name: "propertyId", Type: types.FieldString, Required: true, Description: "The ID of the property"},
			},
		},
	}, DeployPropertyYieldVault)
}

func DeployPropertyNFT(ctx context.Context, backend *types.Backend, _ DeployNFTArgs) (types.Result, error) {
	if _, ok := backend.Chain.Account(); !ok {
		return types.Result{}, types.NoAccount()
	}
	return deploy(ctx, backend, contracts.PropertyNFT)
}

// DeployPropertyToken deploys PropertyToken(propertyNFT, propertyId, name, symbol).
func DeployPropertyToken(ctx context.Context, backend *types.Backend, args DeployTokenArgs) (types.Result, error) {
	if _, ok := backend.Chain.Account(); !ok {
		return types.Result{}, types.NoAccount()
	}
	nft, err := types.ParseAddress("propertyNFTAddress", args.PropertyNFTAddress)
	if err != nil {
		return types.Result{}, err
	}
	propertyID, err := types.ParseUint256(args.PropertyID)
	if err != nil {
		return types.Result{}, types.InvalidArgument("propertyId", err)
	}
	return deploy(ctx, backend, contracts.PropertyToken, nft, propertyID, args.Name, args.Symbol)
}

// DeployPropertyYieldVault deploys
// PropertyYieldVault(asset, name, symbol, propertyNFT, propertyId).
func DeployPropertyYieldVault(ctx context.Context, backend *types.Backend, args DeployVaultArgs) (types.Result, error) {
	if _, ok := backend.Chain.Account(); !ok {
		return types.Result{}, types.NoAccount()
	}
	asset, err := types.ParseAddress("assetAddress", args.AssetAddress)
	if err != nil {
		return types.Result{}, err
	}
	nft, err := types.ParseAddress("propertyNFTAddress", args.PropertyNFTAddress)
	if err != nil {
		return types.Result{}, err
	}
	propertyID, err := types.ParseUint256(args.PropertyID)
	if err != nil {
		return types.Result{}, types.InvalidArgument("propertyId", err)
	}
	return deploy(ctx, backend, contracts.PropertyYieldVault, asset, args.Name, args.Symbol, nft, propertyID)
}

func deploy(ctx context.Context, backend *types.Backend, name string, ctorArgs ...any) (types.Result, error) {
	if backend.Artifacts == nil {
		return types.Result{}, types.ArtifactUnavailable(name, errors.New("no artifact source configured"))
	}
	artifact, err := backend.Artifacts.Artifact(name)
	if err != nil {
		return types.Result{}, types.ArtifactUnavailable(name, err)
	}

	hash, err := backend.Chain.DeployContract(ctx, chain.DeployRequest{
		ABI:      artifact.ABI,
		Bytecode: artifact.Bytecode,
		Args:     ctorArgs,
	})
	if err != nil {
		return types.Result{}, types.ChainRejected(err)
	}

	logger.InfoContext(ctx, "Contract deployment submitted", "contract", name, "hash", hash.Hex())
	return types.TxResult(backend.Chain.Network(), hash), nil
}
