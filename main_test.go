package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slighter12/rootstock-mcp-go/logger"
)

// Well-known development key (Hardhat/Anvil account #0).
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{"RSK_NETWORK", "RSK_PRIVATE_KEY", "RSK_ARTIFACTS_WATCH", "MCP_CONFIG_PATH", "MCP_USE_STDIO", "MCP_DEBUG", "MCP_LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("MCP_LOG_PATH", filepath.Join(dir, "logs", "mcp.log"))
	t.Setenv("RSK_RPC_URL", "http://127.0.0.1:1")
	t.Setenv("RSK_RPC_URL_TESTNET", "http://127.0.0.1:1")
	t.Setenv("RSK_ARTIFACTS_DIR", filepath.Join(dir, "artifacts"))
	return filepath.Join(dir, "config", "mcp_config.json")
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestToolsCommandListsCatalog(t *testing.T) {
	configPath := setupEnv(t)

	out, _, err := execute(t, "tools", "--config", configPath)
	require.NoError(t, err)
	for _, name := range []string{
		"call_contract", "deploy_property_nft", "deploy_property_token", "deploy_property_yield_vault",
		"erc20_balance", "erc20_transfer", "get_address", "get_gas_price", "get_native_balance",
	} {
		assert.Contains(t, out, name)
	}

	// First run writes a default config file.
	_, err = os.Stat(configPath)
	assert.NoError(t, err)
}

func TestCallGetAddress(t *testing.T) {
	configPath := setupEnv(t)
	t.Setenv("RSK_PRIVATE_KEY", devKey)

	out, _, err := execute(t, "call", "get_address", "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", strings.TrimSpace(out))
}

func TestCallReportsToolErrors(t *testing.T) {
	configPath := setupEnv(t)

	_, _, err := execute(t, "call", "get_address", "--config", configPath)
	assert.ErrorContains(t, err, "no_account")

	_, _, err = execute(t, "call", "erc20_balance", `{"contractAddress":"0x123"}`, "--config", configPath)
	assert.ErrorContains(t, err, "invalid_address: Invalid contractAddress: 0x123")

	_, _, err = execute(t, "call", "mint_everything", "--config", configPath)
	assert.ErrorContains(t, err, "unknown_tool")

	_, _, err = execute(t, "call", "get_address", "[1]", "--config", configPath)
	assert.ErrorContains(t, err, "JSON object")
}

func TestCallRequiresToolName(t *testing.T) {
	setupEnv(t)
	_, _, err := execute(t, "call")
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := loadConfig(path)
	assert.ErrorContains(t, err, "load configuration")
}

func TestDebugFlagForcesDebugLogging(t *testing.T) {
	configPath := setupEnv(t)
	t.Setenv("MCP_DEBUG", "true")

	cfg, err := loadConfig(configPath)
	require.NoError(t, err)
	require.True(t, cfg.Server.Debug)

	var console bytes.Buffer
	a, err := newApp(context.Background(), cfg, &console)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, slog.LevelDebug, logger.Default().Level())
	assert.Contains(t, console.String(), "Tool registered")
}

func TestInfoLevelWithoutDebugFlag(t *testing.T) {
	configPath := setupEnv(t)

	cfg, err := loadConfig(configPath)
	require.NoError(t, err)

	var console bytes.Buffer
	a, err := newApp(context.Background(), cfg, &console)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, slog.LevelInfo, logger.Default().Level())
	assert.NotContains(t, console.String(), "Tool registered")
}

func TestArtifactsCommandListsLoadedAndSkipped(t *testing.T) {
	configPath := setupEnv(t)
	artifactsDir := filepath.Join(filepath.Dir(filepath.Dir(configPath)), "artifacts")
	require.NoError(t, os.MkdirAll(artifactsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(artifactsDir, "PropertyNFT.json"), []byte(`{
  "contractName": "PropertyNFT",
  "abi": [{"type":"constructor","inputs":[]}],
  "bytecode": "0x6080604052"
}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(artifactsDir, "Broken.json"), []byte(`{`), 0644))

	out, _, err := execute(t, "artifacts", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "PropertyNFT")
	assert.Contains(t, out, "5 bytes")
	assert.Contains(t, out, "skipped: "+filepath.Join(artifactsDir, "Broken.json"))
}
