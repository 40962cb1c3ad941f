package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/slighter12/rootstock-mcp-go/chain"
	"github.com/slighter12/rootstock-mcp-go/mcp"
)

// Config represents the MCP server configuration
type Config struct {
	Name        string      `json:"name" yaml:"name"`
	Version     string      `json:"version" yaml:"version"`
	Description string      `json:"description" yaml:"description"`
	Server      Server      `json:"server" yaml:"server"`
	Transports  []Transport `json:"transports" yaml:"transports"`
	Logging     Logging     `json:"logging" yaml:"logging"`
	Chain       Chain       `json:"chain" yaml:"chain"`
	Contracts   Contracts   `json:"contracts" yaml:"contracts"`
	Metrics     Metrics     `json:"metrics" yaml:"metrics"`
}

// Server represents server configuration
type Server struct {
	Host  string `json:"host" yaml:"host"`
	Port  int    `json:"port" yaml:"port"`
	Debug bool   `json:"debug" yaml:"debug"`
}

// Transport represents a transport configuration
type Transport struct {
	Type    string            `json:"type" yaml:"type"`
	Enabled bool              `json:"enabled" yaml:"enabled"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Logging represents logging configuration
type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	Path   string `json:"path" yaml:"path"`
}

// Chain selects the Rootstock network and signing account. PrivateKey is only
// ever read from the environment and is never serialized.
type Chain struct {
	Network           string  `json:"network" yaml:"network" envconfig:"RSK_NETWORK"`
	RPCURL            string  `json:"rpc_url" yaml:"rpc_url" envconfig:"RSK_RPC_URL"`
	TestnetRPCURL     string  `json:"testnet_rpc_url" yaml:"testnet_rpc_url" envconfig:"RSK_RPC_URL_TESTNET"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" envconfig:"RSK_REQUESTS_PER_SECOND"`
	Burst             int     `json:"burst" yaml:"burst" envconfig:"RSK_BURST"`
	PrivateKey        string  `json:"-" yaml:"-" envconfig:"RSK_PRIVATE_KEY"`
}

// Contracts locates the compiled artifacts used for deployments.
type Contracts struct {
	ArtifactsDir string `json:"artifacts_dir" yaml:"artifacts_dir" envconfig:"RSK_ARTIFACTS_DIR"`
	Watch        bool   `json:"watch" yaml:"watch" envconfig:"RSK_ARTIFACTS_WATCH"`
}

// Metrics controls the Prometheus endpoint on the HTTP transport.
type Metrics struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return &Config{
		Name:        "rootstock-mcp-go",
		Version:     "0.1.0",
		Description: "Go-based Model Context Protocol server for the Rootstock blockchain",
		Server: Server{
			Host:  "localhost",
			Port:  9080,
			Debug: false,
		},
		Transports: []Transport{
			{
				Type:    "stdio",
				Enabled: true,
			},
			{
				Type:    "streamable_http",
				Enabled: true,
				URL:     "http://localhost:9080/mcp",
				Headers: map[string]string{
					"Accept":               "application/json, text/event-stream",
					"Content-Type":         "application/json",
					"MCP-Protocol-Version": mcp.ProtocolVersion,
				},
			},
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
			Path:   filepath.Join(home, ".rootstock-mcp", "logs", "mcp.log"),
		},
		Chain: Chain{
			Network:       "mainnet",
			RPCURL:        chain.Mainnet.RPCURL,
			TestnetRPCURL: chain.Testnet.RPCURL,
		},
		Contracts: Contracts{
			ArtifactsDir: "./artifacts",
			Watch:        false,
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadConfig loads the configuration from a JSON or YAML file, then applies
// .env files and environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	// Read config file if it exists
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, err
	}

	// Override with environment variables (highest priority).
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse json config: %w", err)
	}
	return nil
}

func encode(path string, cfg *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// SaveConfig saves the configuration to a file
func SaveConfig(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	data, err := encode(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	return nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if err := LoadDotEnv(); err != nil {
		return err
	}

	if portStr := os.Getenv("MCP_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("warning: ignoring invalid MCP_PORT value %q: %v", portStr, err)
		}
	}

	if host := os.Getenv("MCP_HOST"); host != "" {
		cfg.Server.Host = host
	}

	if debug := os.Getenv("MCP_DEBUG"); debug != "" {
		if parsed, err := strconv.ParseBool(debug); err == nil {
			cfg.Server.Debug = parsed
		} else {
			log.Printf("warning: ignoring invalid MCP_DEBUG value %q: %v", debug, err)
		}
	}

	if logLevel := os.Getenv("MCP_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if logPath := os.Getenv("MCP_LOG_PATH"); logPath != "" {
		cfg.Logging.Path = logPath
	}

	if metricsEnabled := os.Getenv("MCP_METRICS_ENABLED"); metricsEnabled != "" {
		if parsed, err := strconv.ParseBool(metricsEnabled); err == nil {
			cfg.Metrics.Enabled = parsed
		} else {
			log.Printf("warning: ignoring invalid MCP_METRICS_ENABLED value %q: %v", metricsEnabled, err)
		}
	}

	if err := envconfig.Process("", &cfg.Chain); err != nil {
		return fmt.Errorf("read chain environment: %w", err)
	}
	if err := envconfig.Process("", &cfg.Contracts); err != nil {
		return fmt.Errorf("read contracts environment: %w", err)
	}
	return nil
}

// Normalize canonicalizes config values so downstream validation and runtime
// logic operate on stable representations.
func (c *Config) Normalize() {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Path = strings.TrimSpace(c.Logging.Path)
	for i := range c.Transports {
		c.Transports[i].Type = strings.ToLower(strings.TrimSpace(c.Transports[i].Type))
		c.Transports[i].URL = strings.TrimSpace(c.Transports[i].URL)
	}

	c.Chain.Network = strings.ToLower(strings.TrimSpace(c.Chain.Network))
	if c.Chain.Network == "" {
		c.Chain.Network = "mainnet"
	}
	c.Chain.RPCURL = strings.TrimSpace(c.Chain.RPCURL)
	if c.Chain.RPCURL == "" {
		c.Chain.RPCURL = chain.Mainnet.RPCURL
	}
	c.Chain.TestnetRPCURL = strings.TrimSpace(c.Chain.TestnetRPCURL)
	if c.Chain.TestnetRPCURL == "" {
		c.Chain.TestnetRPCURL = chain.Testnet.RPCURL
	}
	c.Chain.PrivateKey = strings.TrimSpace(c.Chain.PrivateKey)

	c.Contracts.ArtifactsDir = strings.TrimSpace(c.Contracts.ArtifactsDir)
	if c.Contracts.ArtifactsDir == "" {
		c.Contracts.ArtifactsDir = "./artifacts"
	}

	c.Metrics.Path = strings.TrimSpace(c.Metrics.Path)
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid port number")
	}

	if c.Server.Host == "" {
		return errors.New("host cannot be empty")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.New("invalid log level")
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return errors.New("invalid log format")
	}

	if c.Logging.Path == "" {
		return errors.New("log path cannot be empty")
	}

	// Validate transports
	if len(c.Transports) == 0 {
		return errors.New("at least one transport must be enabled")
	}

	validTransportTypes := map[string]bool{
		"stdio":           true,
		"streamable_http": true,
	}

	enabledTransports := 0
	for _, t := range c.Transports {
		if !validTransportTypes[t.Type] {
			return fmt.Errorf("invalid transport type: %s", t.Type)
		}
		if t.Enabled {
			enabledTransports++
		}
	}

	if enabledTransports == 0 {
		return errors.New("at least one transport must be enabled")
	}

	// Validate chain configuration
	if _, ok := chain.NetworkByName(c.Chain.Network); !ok {
		return fmt.Errorf("invalid chain network %q: expected one of [mainnet testnet]", c.Chain.Network)
	}
	if c.Chain.RequestsPerSecond < 0 {
		return errors.New("chain requests_per_second cannot be negative")
	}
	if c.Chain.Burst < 0 {
		return errors.New("chain burst cannot be negative")
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics path %q: must start with /", c.Metrics.Path)
	}

	return nil
}

// Networks returns the active network plus mainnet and testnet, each bound to
// its configured RPC endpoint.
func (c *Config) Networks() (active, mainnet, testnet chain.Network, err error) {
	mainnet = chain.Mainnet.WithRPCURL(c.Chain.RPCURL)
	testnet = chain.Testnet.WithRPCURL(c.Chain.TestnetRPCURL)

	selected, ok := chain.NetworkByName(c.Chain.Network)
	if !ok {
		return chain.Network{}, chain.Network{}, chain.Network{}, fmt.Errorf("unknown chain network %q", c.Chain.Network)
	}
	if selected.ChainID == chain.TestnetChainID {
		return testnet, mainnet, testnet, nil
	}
	return mainnet, mainnet, testnet, nil
}

// TransportEnabled reports whether a transport type is enabled.
func (c *Config) TransportEnabled(transportType string) bool {
	for _, t := range c.Transports {
		if t.Type == transportType && t.Enabled {
			return true
		}
	}
	return false
}

// ResolveConfigPath returns the path that should be used for configuration.
func ResolveConfigPath() (string, error) {
	// First check environment variable
	if path := strings.TrimSpace(os.Getenv("MCP_CONFIG_PATH")); path != "" {
		return path, nil
	}

	// Then check the config directory in the current directory
	for _, candidate := range []string{"config/mcp_config.json", "config/mcp_config.yaml", "config/mcp_config.yml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	// Finally check home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".rootstock-mcp", "config", "mcp_config.json"), nil
}

// EnsureDefaultConfig creates a default config file if one does not exist.
func EnsureDefaultConfig(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path cannot be empty")
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := NewConfig()
	defaultConfig.Normalize()
	data, err := encode(path, defaultConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}
