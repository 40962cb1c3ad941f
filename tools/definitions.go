package tools

import (
	"github.com/slighter12/rootstock-mcp-go/tools/contract"
	"github.com/slighter12/rootstock-mcp-go/tools/erc20"
	"github.com/slighter12/rootstock-mcp-go/tools/network"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

// GetAllTools returns all available tools from all categories
func GetAllTools() []types.Tool {
	var all []types.Tool
	all = append(all, contract.GetAllTools()...)
	all = append(all, erc20.GetAllTools()...)
	all = append(all, network.GetAllTools()...)
	return all
}
