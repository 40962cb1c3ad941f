package types

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slighter12/rootstock-mcp-go/chain"
	"github.com/slighter12/rootstock-mcp-go/contracts"
	"github.com/slighter12/rootstock-mcp-go/mcp"
)

// Backend bundles the collaborators shared by every tool handler.
type Backend struct {
	Chain     chain.Client
	Dialer    chain.Dialer
	Mainnet   chain.Network
	Testnet   chain.Network
	Artifacts contracts.Source
}

// Definition describes a tool as advertised to clients.
type Definition struct {
	Name        string
	Description string
	Schema      Schema
}

// Tool interface defines the contract for all tools
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Execute(ctx context.Context, backend *Backend, args map[string]any) (Result, error)
}

// Handler runs a tool against arguments already decoded into A.
type Handler[A any] func(ctx context.Context, backend *Backend, args A) (Result, error)

// NewTool pairs a definition with its handler. Only the arguments declared
// by the schema are decoded into A through their JSON field tags.
func NewTool[A any](def Definition, handler Handler[A]) Tool {
	return &typedTool[A]{def: def, handler: handler}
}

type typedTool[A any] struct {
	def     Definition
	handler Handler[A]
}

func (t *typedTool[A]) Name() string        { return t.def.Name }
func (t *typedTool[A]) Description() string { return t.def.Description }
func (t *typedTool[A]) Schema() Schema      { return t.def.Schema }

func (t *typedTool[A]) Execute(ctx context.Context, backend *Backend, args map[string]any) (Result, error) {
	var typed A
	if declared := t.def.Schema.Declared(args); len(declared) > 0 {
		raw, err := json.Marshal(declared)
		if err != nil {
			return Result{}, Internal(fmt.Errorf("encode arguments: %w", err))
		}
		if err := json.Unmarshal(raw, &typed); err != nil {
			return Result{}, NewToolError(KindTypeMismatch, "", fmt.Sprintf("Invalid arguments for %s: %v", t.def.Name, err))
		}
	}
	if t.handler == nil {
		return Result{}, Internal(fmt.Errorf("tool %s has no handler", t.def.Name))
	}
	return t.handler(ctx, backend, typed)
}

// MCPTool renders a tool for tools/list.
func MCPTool(tool Tool) mcp.Tool {
	return mcp.Tool{
		Name:        tool.Name(),
		Description: tool.Description(),
		InputSchema: tool.Schema().InputSchema(),
	}
}
