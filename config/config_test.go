package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slighter12/rootstock-mcp-go/chain"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// clearChainEnv isolates tests from RSK_* variables set in the shell.
func clearChainEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RSK_NETWORK", "RSK_RPC_URL", "RSK_RPC_URL_TESTNET", "RSK_REQUESTS_PER_SECOND",
		"RSK_BURST", "RSK_PRIVATE_KEY", "RSK_ARTIFACTS_DIR", "RSK_ARTIFACTS_WATCH",
		"MCP_PORT", "MCP_HOST", "MCP_DEBUG", "MCP_LOG_LEVEL", "MCP_LOG_PATH", "MCP_METRICS_ENABLED",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "rootstock-mcp-go", cfg.Name)
	assert.Equal(t, "0.1.0", cfg.Version)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9080, cfg.Server.Port)

	require.Len(t, cfg.Transports, 2)
	assert.Equal(t, "stdio", cfg.Transports[0].Type)
	assert.True(t, cfg.Transports[0].Enabled)
	assert.Equal(t, "streamable_http", cfg.Transports[1].Type)
	assert.Equal(t, "http://localhost:9080/mcp", cfg.Transports[1].URL)

	assert.Equal(t, "mainnet", cfg.Chain.Network)
	assert.Equal(t, chain.Mainnet.RPCURL, cfg.Chain.RPCURL)
	assert.Equal(t, chain.Testnet.RPCURL, cfg.Chain.TestnetRPCURL)
	assert.Equal(t, "./artifacts", cfg.Contracts.ArtifactsDir)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	clearChainEnv(t)
	path := writeConfig(t, "test_config.json", `{
		"name": "test-server",
		"version": "1.0.0",
		"server": {"host": "127.0.0.1", "port": 8080, "debug": true},
		"transports": [
			{"type": "stdio", "enabled": true},
			{"type": "streamable_http", "enabled": true, "url": "http://localhost:8080/mcp"}
		],
		"logging": {"level": "DEBUG", "format": "text", "path": "/tmp/test.log"},
		"chain": {"network": "Testnet", "requests_per_second": 5, "burst": 2},
		"contracts": {"artifacts_dir": "/opt/artifacts", "watch": true}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-server", cfg.Name)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "testnet", cfg.Chain.Network)
	assert.Equal(t, 5.0, cfg.Chain.RequestsPerSecond)
	assert.Equal(t, 2, cfg.Chain.Burst)
	assert.Equal(t, "/opt/artifacts", cfg.Contracts.ArtifactsDir)
	assert.True(t, cfg.Contracts.Watch)

	// Fields missing from the file keep their defaults.
	assert.Equal(t, chain.Mainnet.RPCURL, cfg.Chain.RPCURL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfigYAML(t *testing.T) {
	clearChainEnv(t)
	path := writeConfig(t, "mcp_config.yaml", `
name: yaml-server
version: 2.0.0
server:
  host: 0.0.0.0
  port: 9191
transports:
  - type: streamable_http
    enabled: true
logging:
  level: warn
  format: json
  path: /tmp/yaml.log
chain:
  network: rootstock-testnet
  testnet_rpc_url: http://localhost:4444
metrics:
  enabled: false
  path: /prom
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-server", cfg.Name)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.False(t, cfg.TransportEnabled("stdio"))
	assert.True(t, cfg.TransportEnabled("streamable_http"))
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/prom", cfg.Metrics.Path)

	active, mainnet, testnet, err := cfg.Networks()
	require.NoError(t, err)
	assert.Equal(t, chain.TestnetChainID, active.ChainID)
	assert.Equal(t, "http://localhost:4444", active.RPCURL)
	assert.Equal(t, testnet, active)
	assert.Equal(t, chain.Mainnet, mainnet)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearChainEnv(t)
	t.Setenv("MCP_PORT", "7000")
	t.Setenv("MCP_LOG_LEVEL", "error")
	t.Setenv("MCP_METRICS_ENABLED", "false")
	t.Setenv("RSK_NETWORK", "testnet")
	t.Setenv("RSK_RPC_URL", "http://mainnet.local")
	t.Setenv("RSK_RPC_URL_TESTNET", "http://testnet.local")
	t.Setenv("RSK_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("RSK_BURST", "4")
	t.Setenv("RSK_PRIVATE_KEY", " 0xabc ")
	t.Setenv("RSK_ARTIFACTS_DIR", "/env/artifacts")
	t.Setenv("RSK_ARTIFACTS_WATCH", "true")

	path := writeConfig(t, "env.json", `{"chain": {"network": "mainnet"}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "testnet", cfg.Chain.Network)
	assert.Equal(t, "http://mainnet.local", cfg.Chain.RPCURL)
	assert.Equal(t, "http://testnet.local", cfg.Chain.TestnetRPCURL)
	assert.Equal(t, 2.5, cfg.Chain.RequestsPerSecond)
	assert.Equal(t, 4, cfg.Chain.Burst)
	assert.Equal(t, "0xabc", cfg.Chain.PrivateKey)
	assert.Equal(t, "/env/artifacts", cfg.Contracts.ArtifactsDir)
	assert.True(t, cfg.Contracts.Watch)

	active, mainnet, _, err := cfg.Networks()
	require.NoError(t, err)
	assert.Equal(t, "http://testnet.local", active.RPCURL)
	assert.Equal(t, "http://mainnet.local", mainnet.RPCURL)
}

func TestLoadConfigRejectsBadChainEnv(t *testing.T) {
	clearChainEnv(t)
	t.Setenv("RSK_BURST", "lots")

	path := writeConfig(t, "env.json", `{}`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "chain environment")
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := writeConfig(t, "invalid_config.json", `{"name": "test-server",`)
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "parse json config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid port"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "invalid log level"},
		{"unknown transport", func(c *Config) { c.Transports[0].Type = "ws" }, "invalid transport type"},
		{"no transports enabled", func(c *Config) {
			for i := range c.Transports {
				c.Transports[i].Enabled = false
			}
		}, "at least one transport"},
		{"unknown network", func(c *Config) { c.Chain.Network = "ethereum" }, "invalid chain network"},
		{"negative rate", func(c *Config) { c.Chain.RequestsPerSecond = -1 }, "requests_per_second"},
		{"negative burst", func(c *Config) { c.Chain.Burst = -1 }, "burst"},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestNormalizeFillsChainDefaults(t *testing.T) {
	cfg := NewConfig()
	cfg.Chain = Chain{Network: "  TESTNET "}
	cfg.Contracts.ArtifactsDir = " "
	cfg.Metrics.Path = ""
	cfg.Normalize()

	assert.Equal(t, "testnet", cfg.Chain.Network)
	assert.Equal(t, chain.Mainnet.RPCURL, cfg.Chain.RPCURL)
	assert.Equal(t, chain.Testnet.RPCURL, cfg.Chain.TestnetRPCURL)
	assert.Equal(t, "./artifacts", cfg.Contracts.ArtifactsDir)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("MCP_CONFIG_PATH", "/custom/mcp.yaml")
	path, err := ResolveConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/custom/mcp.yaml", path)

	t.Setenv("MCP_CONFIG_PATH", "")
	path, err = ResolveConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "mcp_config.json", filepath.Base(path))
}

func TestEnsureDefaultConfig(t *testing.T) {
	clearChainEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "mcp_config.json")
	require.NoError(t, EnsureDefaultConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "rootstock-mcp-go", cfg.Name)

	assert.Error(t, EnsureDefaultConfig(" "))
}

func TestSaveConfigNeverWritesPrivateKey(t *testing.T) {
	clearChainEnv(t)
	cfg := NewConfig()
	cfg.Name = "test-save"
	cfg.Server.Port = 9090
	cfg.Chain.PrivateKey = "0xdeadbeef"

	for _, name := range []string{"save.json", "save.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveConfig(cfg, path))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.False(t, strings.Contains(string(data), "deadbeef"))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, "test-save", loaded.Name)
			assert.Equal(t, 9090, loaded.Server.Port)
			assert.Empty(t, loaded.Chain.PrivateKey)
		})
	}
}

func TestSaveConfigRejectsNil(t *testing.T) {
	assert.Error(t, SaveConfig(nil, filepath.Join(t.TempDir(), "x.json")))
}
