package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/mcp"
	"github.com/slighter12/rootstock-mcp-go/mcp/jsonrpc"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

const pageSize = 50

// ServerName is reported in the initialize handshake.
const ServerName = "rootstock-mcp-go"

// ToolDispatcher is the tool surface both transports serve.
type ToolDispatcher interface {
	Tools() []mcp.Tool
	Dispatch(ctx context.Context, name string, args map[string]any) (string, error)
}

func BuildToolsListResponse(msg jsonrpc.Request, tools []mcp.Tool) *jsonrpc.Response {
	sortedTools := append([]mcp.Tool(nil), tools...)
	sort.Slice(sortedTools, func(i, j int) bool {
		return sortedTools[i].Name < sortedTools[j].Name
	})

	start, err := ParseCursor(msg.Params, len(sortedTools))
	if err != nil {
		return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), err.Error(), nil)
	}
	end := min(start+pageSize, len(sortedTools))

	result := mcp.ListToolsResult{Tools: sortedTools[start:end]}
	if end < len(sortedTools) {
		result.NextCursor = strconv.Itoa(end)
	}
	return jsonrpc.NewResponse(msg.ID, result)
}

func BuildPingResponse(msg jsonrpc.Request) *jsonrpc.Response {
	return jsonrpc.NewResponse(msg.ID, map[string]any{})
}

// BuildInitializeResponse negotiates the protocol version and advertises the
// tools capability.
func BuildInitializeResponse(msg jsonrpc.Request, version string) (*jsonrpc.Response, string) {
	var params mcp.InitializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return semanticError(msg.ID, jsonrpc.ErrInvalidParams, "Invalid initialize payload", "invalid_params", map[string]any{
				"field": "params",
			}), ""
		}
	}
	negotiated := mcp.NegotiateProtocolVersion(strings.TrimSpace(params.ProtocolVersion))
	logger.Debug("Client initialized", "client", params.ClientInfo.Name, "protocol_version", negotiated)

	return jsonrpc.NewResponse(msg.ID, mcp.InitializeResult{
		ProtocolVersion: negotiated,
		Capabilities:    ServerCapabilities(),
		ServerInfo: mcp.Implementation{
			Name:    ServerName,
			Version: version,
		},
	}), negotiated
}

// DispatchStandardMethod handles shared non-initialize JSON-RPC methods for all transports.
func DispatchStandardMethod(ctx context.Context, msg jsonrpc.Request, dispatcher ToolDispatcher) any {
	switch msg.Method {
	case "tools/list":
		return BuildToolsListResponse(msg, dispatcher.Tools())
	case "tools/call":
		return BuildToolCallResponse(ctx, msg, dispatcher)
	case "ping":
		return BuildPingResponse(msg)
	case "initialized", "notifications/initialized", "notifications/cancelled":
		if msg.ID != nil {
			return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil)
		}
		return nil
	default:
		if msg.ID != nil {
			return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrMethodNotFound), "Method not found", map[string]any{
				"method": msg.Method,
			})
		}
		return nil
	}
}

func semanticError(id any, code jsonrpc.ErrorCode, message, kind string, extra map[string]any) *jsonrpc.Response {
	data := map[string]any{
		"kind": kind,
	}
	for key, value := range extra {
		data[key] = value
	}
	return jsonrpc.NewErrorResponse(id, int(code), message, data)
}

// BuildToolCallResponse runs one tools/call. Unknown tools are protocol
// errors; every other tool failure is an isError result.
func BuildToolCallResponse(ctx context.Context, msg jsonrpc.Request, dispatcher ToolDispatcher) *jsonrpc.Response {
	var toolCall struct {
		Name      string         `json:"name"`
		Tool      string         `json:"tool"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &toolCall); err != nil {
		return semanticError(msg.ID, jsonrpc.ErrInvalidParams, "Invalid tool call payload", "invalid_params", map[string]any{
			"field": "params",
		})
	}

	toolName := strings.TrimSpace(toolCall.Name)
	if toolName == "" {
		toolName = strings.TrimSpace(toolCall.Tool)
	}
	if toolName == "" {
		return semanticError(msg.ID, jsonrpc.ErrInvalidParams, "Tool name is required", "invalid_params", map[string]any{
			"field": "name",
		})
	}

	arguments := toolCall.Arguments
	if arguments == nil {
		arguments = map[string]any{}
	}

	text, err := dispatcher.Dispatch(ctx, toolName, arguments)
	if err != nil {
		toolErr, ok := types.AsToolError(err)
		if !ok {
			toolErr = types.Internal(err)
		}
		if toolErr.Kind == types.KindUnknownTool {
			return semanticError(msg.ID, jsonrpc.ErrInvalidParams, toolErr.Error(), string(types.KindUnknownTool), map[string]any{
				"tool": toolName,
			})
		}
		return jsonrpc.NewResponse(msg.ID, BuildToolErrorResult(toolErr))
	}

	return jsonrpc.NewResponse(msg.ID, BuildToolSuccessResult(text))
}

func BuildToolSuccessResult(text string) mcp.CallToolResult {
	return mcp.CallToolResult{
		Content: mcp.TextContent(text),
		IsError: false,
	}
}

func BuildToolErrorResult(toolErr *types.ToolError) mcp.CallToolResult {
	return mcp.CallToolResult{
		Content:           mcp.TextContent(toolErr.Error()),
		StructuredContent: map[string]any{"error": toolErr.Data()},
		IsError:           true,
	}
}

func ServerCapabilities() map[string]any {
	return map[string]any{
		"tools": map[string]any{
			"listChanged": false,
		},
	}
}

func ParseCursor(paramsRaw json.RawMessage, total int) (int, error) {
	if len(paramsRaw) == 0 {
		return 0, nil
	}

	var params struct {
		Cursor string `json:"cursor"`
	}
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return 0, fmt.Errorf("invalid params payload")
	}
	if strings.TrimSpace(params.Cursor) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(params.Cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor value")
	}
	if offset < 0 || offset > total {
		return 0, fmt.Errorf("invalid cursor value")
	}
	return offset, nil
}

// ParseJSONRPCFrame validates and parses one JSON-RPC message frame.
// Both stdio and streamable HTTP currently require a single message per frame.
func ParseJSONRPCFrame(frame []byte) ([]jsonrpc.Request, []any, bool, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 {
		return nil, nil, false, fmt.Errorf("empty message")
	}

	if trimmed[0] == '[' {
		return nil, []any{jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil)}, false, nil
	}

	rawMessages := []json.RawMessage{json.RawMessage(trimmed)}
	requests := make([]jsonrpc.Request, 0, len(rawMessages))
	prebuiltResponses := make([]any, 0)
	acceptedOneWay := false

	for _, rawMsg := range rawMessages {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(rawMsg, &envelope); err != nil {
			prebuiltResponses = append(prebuiltResponses, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrParseError), "Parse error", nil))
			continue
		}

		requestID, hasID, validID := parseIDFromEnvelope(envelope)
		if !validID {
			prebuiltResponses = append(prebuiltResponses, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil))
			continue
		}

		var msg jsonrpc.Request
		if err := json.Unmarshal(rawMsg, &msg); err != nil {
			prebuiltResponses = append(prebuiltResponses, jsonrpc.NewErrorResponse(requestID, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil))
			continue
		}

		if msg.Method == "" {
			_, hasResult := envelope["result"]
			_, hasErr := envelope["error"]
			if hasResult || hasErr {
				if msg.JSONRPC != jsonrpc.Version || !hasID || (hasResult && hasErr) {
					prebuiltResponses = append(prebuiltResponses, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil))
				} else {
					acceptedOneWay = true
				}
				continue
			}
			prebuiltResponses = append(prebuiltResponses, jsonrpc.NewErrorResponse(requestID, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil))
			continue
		}

		if msg.JSONRPC != jsonrpc.Version {
			prebuiltResponses = append(prebuiltResponses, jsonrpc.NewErrorResponse(requestID, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil))
			continue
		}

		if rawParams, ok := envelope["params"]; ok && !isValidParamsValue(rawParams) {
			prebuiltResponses = append(prebuiltResponses, jsonrpc.NewErrorResponse(requestID, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil))
			continue
		}

		if msg.Method == "initialize" && msg.ID == nil {
			prebuiltResponses = append(prebuiltResponses, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil))
			continue
		}

		requests = append(requests, msg)
	}

	return requests, prebuiltResponses, acceptedOneWay, nil
}

func parseIDFromEnvelope(envelope map[string]json.RawMessage) (any, bool, bool) {
	rawID, exists := envelope["id"]
	if !exists {
		return nil, false, true
	}
	trimmed := bytes.TrimSpace(rawID)
	if len(trimmed) == 0 {
		return nil, true, false
	}

	var id any
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&id); err != nil {
		return nil, true, false
	}
	if !isValidJSONRPCID(id) {
		return nil, true, false
	}
	return id, true, true
}

func isValidJSONRPCID(id any) bool {
	switch v := id.(type) {
	case string:
		return true
	case json.Number:
		return isJSONInteger(v.String())
	default:
		return false
	}
}

func isValidParamsValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	return trimmed[0] == '{'
}

func isJSONInteger(value string) bool {
	if value == "" || strings.ContainsAny(value, ".eE") {
		return false
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return true
	}
	if strings.HasPrefix(value, "-") {
		return false
	}
	_, err := strconv.ParseUint(value, 10, 64)
	return err == nil
}
