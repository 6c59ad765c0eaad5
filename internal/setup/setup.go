// Package setup registers the stdio MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key of the server entry in the client configuration.
const ServerName = "avis-diabeto"

// BinaryName is the stdio MCP server executable.
const BinaryName = "avis-mcp"

// DataDirEnv is the environment variable carrying the data directory.
const DataDirEnv = "AVIS_DATA_DIR"

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
// Unknown top-level keys are preserved across a load/save cycle.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// UnmarshalJSON keeps keys other than mcpServers.
func (c *ClaudeDesktopConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if servers, ok := raw["mcpServers"]; ok {
		if err := json.Unmarshal(servers, &c.MCPServers); err != nil {
			return err
		}
		delete(raw, "mcpServers")
	}
	c.extra = raw
	return nil
}

// MarshalJSON writes mcpServers alongside the preserved keys.
func (c ClaudeDesktopConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.extra)+1)
	for k, v := range c.extra {
		out[k] = v
	}
	out["mcpServers"] = c.MCPServers
	return json.Marshal(out)
}

// Options contains options for the setup process.
type Options struct {
	ConfigPath string            // Client config file; empty means the platform default
	BinaryPath string            // Path to the server binary; empty means auto-detect
	DataDir    string            // Data directory passed to the server
	Env        map[string]string // Extra AVIS_* variables, e.g. AVIS_LOCALE
}

// GetClaudeDesktopConfigPath returns the path to Claude Desktop's config file.
func GetClaudeDesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return GetClaudeDesktopConfigPath()
}

// LoadClaudeDesktopConfig loads the existing Claude Desktop configuration.
// A missing file yields an empty configuration.
func LoadClaudeDesktopConfig(configPath string) (*ClaudeDesktopConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClaudeDesktopConfig{MCPServers: make(map[string]MCPServerConfig)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ClaudeDesktopConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}

	return &config, nil
}

// SaveClaudeDesktopConfig saves the configuration to the Claude Desktop config file.
func SaveClaudeDesktopConfig(configPath string, config *ClaudeDesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigureClaudeDesktop adds or updates the server entry and returns the config path.
func ConfigureClaudeDesktop(opts Options) (string, error) {
	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return "", err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary()
		if err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	serverConfig := MCPServerConfig{
		Command: binaryPath,
		Env:     make(map[string]string),
	}
	for k, v := range opts.Env {
		serverConfig.Env[k] = v
	}
	if opts.DataDir != "" {
		serverConfig.Env[DataDirEnv] = opts.DataDir
	}

	config.MCPServers[ServerName] = serverConfig

	if err := SaveClaudeDesktopConfig(configPath, config); err != nil {
		return "", err
	}
	return configPath, nil
}

// RemoveFromClaudeDesktop deletes the server entry. It reports whether an entry existed.
func RemoveFromClaudeDesktop(configPath string) (bool, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return false, err
	}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return false, err
	}
	if _, ok := config.MCPServers[ServerName]; !ok {
		return false, nil
	}

	delete(config.MCPServers, ServerName)
	return true, SaveClaudeDesktopConfig(configPath, config)
}

// findBinary attempts to find the server binary in common locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + BinaryName,
		"./build/" + BinaryName,
		"/usr/local/bin/" + BinaryName,
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".local", "bin", BinaryName))
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", BinaryName)
}

// Status represents the current setup status.
type Status struct {
	ConfigPath string   `json:"config_path"`
	Configured bool     `json:"configured"`
	ServerPath string   `json:"server_path,omitempty"`
	DataDir    string   `json:"data_dir"`
	Issues     []string `json:"issues"`
}

// GetStatus inspects the client configuration. Problems are reported as issues
// rather than errors.
func GetStatus(configPath string) *Status {
	status := &Status{Issues: []string{}}

	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not determine Claude Desktop config path: %v", err))
		return status
	}
	status.ConfigPath = configPath

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not load Claude Desktop config: %v", err))
		return status
	}

	serverConfig, ok := config.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "avis-diabeto is not configured in Claude Desktop")
		return status
	}

	status.Configured = true
	status.ServerPath = serverConfig.Command
	if _, err := os.Stat(serverConfig.Command); os.IsNotExist(err) {
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", serverConfig.Command))
	}

	status.DataDir = serverConfig.Env[DataDirEnv]
	if status.DataDir == "" {
		status.DataDir = DefaultDataDir()
	}

	return status
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".avis-diabeto")
}
