package contract

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/slighter12/rootstock-mcp-go/tools/types"
)

// findMethod resolves a function by its source name. Overloads are renamed by
// go-ethereum (transfer, transfer0, ...), so the overload whose arity matches
// argc wins.
func findMethod(parsed abi.ABI, name string, argc int) (abi.Method, bool) {
	keys := make([]string, 0, len(parsed.Methods))
	for key := range parsed.Methods {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var (
		fallback abi.Method
		found    bool
	)
	for _, key := range keys {
		method := parsed.Methods[key]
		if method.RawName != name {
			continue
		}
		if len(method.Inputs) == argc {
			return method, true
		}
		if !found {
			fallback, found = method, true
		}
	}
	return fallback, found
}

// convertArgs turns string arguments into the Go values abi.Pack expects for
// the method's inputs.
func convertArgs(method abi.Method, args []string) ([]any, error) {
	if len(args) != len(method.Inputs) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", method.Sig, len(method.Inputs), len(args))
	}
	out := make([]any, len(args))
	for i, input := range method.Inputs {
		value, err := convertArg(input.Type, args[i])
		if err != nil {
			label := input.Name
			if label == "" {
				label = strconv.Itoa(i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", label, input.Type.String(), err)
		}
		out[i] = value
	}
	return out, nil
}

func convertArg(t abi.Type, raw string) (any, error) {
	value := strings.TrimSpace(raw)
	switch t.T {
	case abi.UintTy, abi.IntTy:
		return convertInteger(t, value)
	case abi.BoolTy:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q", raw)
		}
		return parsed, nil
	case abi.StringTy:
		return raw, nil
	case abi.AddressTy:
		if !types.IsValidAddress(value) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		return common.HexToAddress(value), nil
	case abi.BytesTy:
		decoded, err := hexutil.Decode(value)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes %q: %w", raw, err)
		}
		return decoded, nil
	case abi.FixedBytesTy:
		decoded, err := hexutil.Decode(value)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes%d %q: %w", t.Size, raw, err)
		}
		if len(decoded) > t.Size {
			return nil, fmt.Errorf("bytes%d value is %d bytes long", t.Size, len(decoded))
		}
		array := reflect.New(t.GetType()).Elem()
		reflect.Copy(array, reflect.ValueOf(decoded))
		return array.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		return convertList(t, value)
	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

func convertInteger(t abi.Type, value string) (any, error) {
	n, ok := new(big.Int).SetString(value, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}

	if t.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s out of range for uint%d", value, t.Size)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		minValue := new(big.Int).Neg(limit)
		if n.Cmp(minValue) < 0 || n.Cmp(limit) >= 0 {
			return nil, fmt.Errorf("%s out of range for int%d", value, t.Size)
		}
	}

	goType := t.GetType()
	if goType == reflect.TypeOf(&big.Int{}) {
		return n, nil
	}
	if t.T == abi.UintTy {
		return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
	}
	return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
}

// convertList accepts a JSON array whose items are strings or bare JSON
// scalars (["1","2"], [1,2], [true]).
func convertList(t abi.Type, value string) (any, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil, fmt.Errorf("expected a JSON array for %s: %w", t.String(), err)
	}
	if t.T == abi.ArrayTy && len(items) != t.Size {
		return nil, fmt.Errorf("%s expects %d items, got %d", t.String(), t.Size, len(items))
	}

	goType := t.GetType()
	var list reflect.Value
	if t.T == abi.SliceTy {
		list = reflect.MakeSlice(goType, len(items), len(items))
	} else {
		list = reflect.New(goType).Elem()
	}

	for i, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err != nil {
			text = string(item)
		}
		converted, err := convertArg(*t.Elem, text)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		list.Index(i).Set(reflect.ValueOf(converted))
	}
	return list.Interface(), nil
}

// formatOutputs renders decoded return values as one string. Multiple values
// are comma separated.
func formatOutputs(values []any) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = formatValue(reflect.ValueOf(value))
	}
	return strings.Join(parts, ",")
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	switch value := v.Interface().(type) {
	case *big.Int:
		if value == nil {
			return "0"
		}
		return value.String()
	case common.Address:
		return value.Hex()
	case []byte:
		return hexutil.Encode(value)
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	}

	switch v.Kind() {
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			raw := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(raw), v)
			return hexutil.Encode(raw)
		}
		return formatList(v)
	case reflect.Slice:
		return formatList(v)
	case reflect.Struct:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprint(v.Interface())
		}
		return string(data)
	}
	return fmt.Sprint(v.Interface())
}

func formatList(v reflect.Value) string {
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = formatValue(v.Index(i))
	}
	return strings.Join(parts, ",")
}
