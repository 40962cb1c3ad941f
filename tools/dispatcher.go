package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/mcp"
	"github.com/slighter12/rootstock-mcp-go/metrics"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

// Dispatcher routes tool calls by name. The tool set is fixed at construction
// and read concurrently without locks.
type Dispatcher struct {
	backend *types.Backend
	tools   map[string]types.Tool
	names   []string
}

// NewDispatcher validates every tool schema and rejects duplicate names.
func NewDispatcher(backend *types.Backend, tools ...types.Tool) (*Dispatcher, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}

	d := &Dispatcher{
		backend: backend,
		tools:   make(map[string]types.Tool, len(tools)),
		names:   make([]string, 0, len(tools)),
	}
	for _, tool := range tools {
		if tool == nil {
			return nil, errors.New("tool cannot be nil")
		}
		name := strings.TrimSpace(tool.Name())
		if name == "" {
			return nil, errors.New("tool name cannot be empty")
		}
		if _, exists := d.tools[name]; exists {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		if err := tool.Schema().Validate(); err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		d.tools[name] = tool
		d.names = append(d.names, name)
		logger.Debug("Tool registered", "name", name)
	}
	sort.Strings(d.names)

	logger.Info("Tools registered", "count", len(d.names))
	return d, nil
}

// NewDefaultDispatcher registers the full Rootstock tool catalog.
func NewDefaultDispatcher(backend *types.Backend) (*Dispatcher, error) {
	return NewDispatcher(backend, GetAllTools()...)
}

// Tool looks up a registered tool.
func (d *Dispatcher) Tool(name string) (types.Tool, bool) {
	tool, ok := d.tools[name]
	return tool, ok
}

// Tools lists tool definitions sorted by name.
func (d *Dispatcher) Tools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(d.names))
	for _, name := range d.names {
		out = append(out, types.MCPTool(d.tools[name]))
	}
	return out
}

// Dispatch validates args against the tool's schema, runs its handler and
// returns the encoded result. Every failure is a *types.ToolError.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	started := time.Now()
	if _, ok := logger.RequestID(ctx); !ok {
		ctx = logger.WithRequestID(ctx, uuid.NewString())
	}

	tool, ok := d.tools[name]
	if !ok {
		logger.WarnContext(ctx, "Unknown tool requested", "tool", name)
		metrics.RecordToolCall("unknown", string(types.KindUnknownTool), started)
		return "", types.UnknownTool(name)
	}
	if args == nil {
		args = map[string]any{}
	}

	logger.DebugContext(ctx, "Dispatching tool", "tool", name)
	text, err := d.run(ctx, tool, args)
	if err != nil {
		toolErr, ok := types.AsToolError(err)
		if !ok {
			toolErr = types.Internal(err)
		}
		logger.WarnContext(ctx, "Tool call failed",
			"tool", name,
			"kind", toolErr.Kind,
			"field", toolErr.Field,
			"error", toolErr.Error(),
			"duration", time.Since(started),
		)
		metrics.RecordToolCall(name, string(toolErr.Kind), started)
		return "", toolErr
	}

	logger.InfoContext(ctx, "Tool call succeeded", "tool", name, "duration", time.Since(started))
	metrics.RecordToolCall(name, metrics.StatusSuccess, started)
	return text, nil
}

func (d *Dispatcher) run(ctx context.Context, tool types.Tool, args map[string]any) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Tool handler panicked", "tool", tool.Name(), "panic", r, "stack", string(debug.Stack()))
			err = types.Internal(fmt.Errorf("tool %s panicked: %v", tool.Name(), r))
		}
	}()

	if err := tool.Schema().Check(args); err != nil {
		return "", err
	}
	result, err := tool.Execute(ctx, d.backend, args)
	if err != nil {
		return "", err
	}
	encoded, err := result.Encode()
	if err != nil {
		return "", types.Internal(fmt.Errorf("encode result: %w", err))
	}
	return encoded, nil
}
