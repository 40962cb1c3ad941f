package types

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindUnknownTool         ErrorKind = "unknown_tool"
	KindMissingField        ErrorKind = "missing_field"
	KindTypeMismatch        ErrorKind = "type_mismatch"
	KindInvalidAddress      ErrorKind = "invalid_address"
	KindInvalidAmount       ErrorKind = "invalid_amount"
	KindInvalidABI          ErrorKind = "invalid_abi"
	KindFunctionNotFound    ErrorKind = "function_not_found"
	KindInvalidArgument     ErrorKind = "invalid_argument"
	KindNoAccount           ErrorKind = "no_account"
	KindChainRejected       ErrorKind = "chain_rejected"
	KindBalanceQueryFailed  ErrorKind = "balance_query_failed"
	KindArtifactUnavailable ErrorKind = "artifact_unavailable"
	KindInternal            ErrorKind = "internal"
)

// ToolError marks tool failures that should be surfaced as structured isError payloads.
type ToolError struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	if e == nil {
		return "tool error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("tool error: %s", e.Kind)
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Data is the machine-readable part of the error returned to clients.
func (e *ToolError) Data() map[string]any {
	data := map[string]any{"kind": string(e.Kind)}
	if e.Field != "" {
		data["field"] = e.Field
	}
	return data
}

func NewToolError(kind ErrorKind, field, message string) *ToolError {
	return &ToolError{Kind: kind, Field: field, Message: message}
}

func AsToolError(err error) (*ToolError, bool) {
	if err == nil {
		return nil, false
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// IsKind reports whether err is a ToolError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	toolErr, ok := AsToolError(err)
	return ok && toolErr.Kind == kind
}

func UnknownTool(name string) *ToolError {
	return NewToolError(KindUnknownTool, "", fmt.Sprintf("Unknown tool: %s", name))
}

func MissingField(field string) *ToolError {
	return NewToolError(KindMissingField, field, fmt.Sprintf("Missing required field: %s", field))
}

func TypeMismatch(field string, want FieldType) *ToolError {
	return NewToolError(KindTypeMismatch, field, fmt.Sprintf("Field %s must be of type %s", field, want))
}

func InvalidAddress(field, value string) *ToolError {
	return NewToolError(KindInvalidAddress, field, fmt.Sprintf("Invalid %s: %s", field, value))
}

func InvalidAmount(field string, err error) *ToolError {
	return &ToolError{Kind: KindInvalidAmount, Field: field, Message: fmt.Sprintf("Invalid %s: %v", field, err), Err: err}
}

func InvalidABI(err error) *ToolError {
	return &ToolError{Kind: KindInvalidABI, Field: "abi", Message: fmt.Sprintf("Invalid ABI: %v", err), Err: err}
}

func FunctionNotFound(name string) *ToolError {
	return NewToolError(KindFunctionNotFound, "functionName", fmt.Sprintf("Function %s not found in ABI", name))
}

func InvalidArgument(field string, err error) *ToolError {
	return &ToolError{Kind: KindInvalidArgument, Field: field, Message: fmt.Sprintf("Invalid %s: %v", field, err), Err: err}
}

func NoAccount() *ToolError {
	return NewToolError(KindNoAccount, "", "No account address available")
}

// ChainRejected keeps the node's message so reverts reach the caller intact.
func ChainRejected(err error) *ToolError {
	return &ToolError{Kind: KindChainRejected, Message: err.Error(), Err: err}
}

func BalanceQueryFailed(err error) *ToolError {
	return &ToolError{Kind: KindBalanceQueryFailed, Message: fmt.Sprintf("Failed to get balance: %v", err), Err: err}
}

func ArtifactUnavailable(name string, err error) *ToolError {
	return &ToolError{Kind: KindArtifactUnavailable, Message: fmt.Sprintf("Contract artifact %s is unavailable: %v", name, err), Err: err}
}

func Internal(err error) *ToolError {
	return &ToolError{Kind: KindInternal, Message: err.Error(), Err: err}
}
