package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Contract names deployed by the server.
const (
	PropertyNFT        = "PropertyNFT"
	PropertyToken      = "PropertyToken"
	PropertyYieldVault = "PropertyYieldVault"
)

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	Name       string
	ABI        abi.ABI
	Bytecode   []byte
	SourcePath string
}

type artifactFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// ParseArtifact decodes a Hardhat artifact ({"abi": [...], "bytecode": "0x..."})
// or a Foundry artifact ({"abi": [...], "bytecode": {"object": "0x..."}}).
func ParseArtifact(data []byte, fallbackName string) (*Artifact, error) {
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if len(bytes.TrimSpace(file.ABI)) == 0 {
		return nil, errors.New("artifact has no abi")
	}

	parsedABI, err := abi.JSON(bytes.NewReader(file.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse artifact abi: %w", err)
	}

	code, err := decodeBytecode(file.Bytecode)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(file.ContractName)
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		return nil, errors.New("artifact has no contract name")
	}

	return &Artifact{Name: name, ABI: parsedABI, Bytecode: code}, nil
}

func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("artifact has no bytecode")
	}

	var hexCode string
	if trimmed[0] == '{' {
		var linked struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(trimmed, &linked); err != nil {
			return nil, fmt.Errorf("decode bytecode object: %w", err)
		}
		hexCode = linked.Object
	} else if err := json.Unmarshal(trimmed, &hexCode); err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}

	hexCode = strings.TrimSpace(hexCode)
	if !strings.HasPrefix(hexCode, "0x") {
		hexCode = "0x" + hexCode
	}
	if hexCode == "0x" {
		return nil, errors.New("artifact bytecode is empty (abstract contract or interface?)")
	}
	code, err := hexutil.Decode(hexCode)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode hex: %w", err)
	}
	return code, nil
}
