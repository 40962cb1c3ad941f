package contract

import "github.com/slighter12/rootstock-mcp-go/tools/types"

func GetAllTools() []types.Tool {
	return []types.Tool{
		NewCallContractTool(),
		NewDeployPropertyNFTTool(),
		NewDeployPropertyTokenTool(),
		NewDeployPropertyYieldVaultTool(),
	}
}
