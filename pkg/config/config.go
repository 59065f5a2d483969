// pkg/config/config.go - configuration settings for vpndeploy.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"
	"gopkg.in/yaml.v3"
)

const ConfigPath = `C:\ProgramData\VPNDeploy\Config.yaml`

// CSP OMA-URI registry path for enterprise policy configuration
const CSPRegistryPath = `SOFTWARE\VPNDeploy\Config`

// Configuration holds the configurable options for vpndeploy in YAML format.
type Configuration struct {
	PackagesPath string `yaml:"PackagesPath"` // directory holding the per-module MSI packages
	DefaultMSI   string `yaml:"DefaultMSI"`   // optional Zero-Config MSI processed instead of module branching
	Transform    string `yaml:"Transform"`    // optional .mst applied to every install action

	// Per-module MSI file names, resolved relative to PackagesPath.
	Packages map[string]string `yaml:"Packages"`

	ClientProcess string `yaml:"ClientProcess"` // UI process closed before install/uninstall
	AgentProcess  string `yaml:"AgentProcess"`  // agent process closed before repair
	ServiceName   string `yaml:"ServiceName"`   // VPN agent service restarted post-install
	ClientUIPath  string `yaml:"ClientUIPath"`  // client UI launched in the user session post-install

	// Data directories removed during uninstall.
	NAMDataPath     string   `yaml:"NAMDataPath"`
	ClientDataPaths []string `yaml:"ClientDataPaths"`

	MaxDeferrals         int `yaml:"MaxDeferrals"`
	CloseCountdownSecs   int `yaml:"CloseCountdownSecs"`
	RepairCountdownSecs  int `yaml:"RepairCountdownSecs"`
	NAMSettleSecs        int `yaml:"NAMSettleSecs"`
	InstallerTimeoutMins int `yaml:"InstallerTimeoutMins"`

	LogPath  string `yaml:"LogPath"`
	LogLevel string `yaml:"LogLevel"`
	Debug    bool   `yaml:"Debug"`
	Verbose  bool   `yaml:"Verbose"`
}

// PackagePath resolves the absolute MSI path for a module tag, or "" when
// the module has no configured package.
func (c *Configuration) PackagePath(module string) string {
	name, ok := c.Packages[module]
	if !ok || name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.PackagesPath, name)
}

// LoadConfig loads the configuration from the YAML file. If the file doesn't
// exist it falls back to CSP OMA-URI registry settings, then to defaults.
func LoadConfig() (*Configuration, error) {
	if _, err := os.Stat(ConfigPath); os.IsNotExist(err) {
		if cfg, cspErr := LoadConfigFromCSP(); cspErr == nil {
			return cfg, nil
		}
		return GetDefaultConfig(), nil
	}
	return LoadFrom(ConfigPath)
}

// LoadFrom reads and parses a configuration file, layering it over defaults.
func LoadFrom(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}
	cfg.applyFallbacks()
	return cfg, nil
}

// GetDefaultConfig provides default configuration values.
func GetDefaultConfig() *Configuration {
	programData := os.Getenv("ProgramData")
	if programData == "" {
		programData = `C:\ProgramData`
	}
	localAppData := os.Getenv("LOCALAPPDATA")
	programFiles := os.Getenv("ProgramFiles(x86)")
	if programFiles == "" {
		programFiles = `C:\Program Files (x86)`
	}
	clientRoot := filepath.Join(programFiles, "Cisco", "Cisco AnyConnect Secure Mobility Client")

	return &Configuration{
		PackagesPath: filepath.Join(programData, "VPNDeploy", "Packages"),
		Packages: map[string]string{
			"Base":    "anyconnect-win-core-vpn-predeploy-k9.msi",
			"GINA":    "anyconnect-win-gina-predeploy-k9.msi",
			"NAM":     "anyconnect-win-nam-predeploy-k9.msi",
			"Posture": "anyconnect-win-posture-predeploy-k9.msi",
			"ISE":     "anyconnect-win-iseposture-predeploy-k9.msi",
			"DART":    "anyconnect-win-dart-predeploy-k9.msi",
		},
		ClientProcess: "vpnui",
		AgentProcess:  "vpnagent",
		ServiceName:   "vpnagent",
		ClientUIPath:  filepath.Join(clientRoot, "vpnui.exe"),
		NAMDataPath:   filepath.Join(programData, "Cisco", "Cisco AnyConnect Secure Mobility Client", "Network Access Manager"),
		ClientDataPaths: []string{
			filepath.Join(programData, "Cisco", "Cisco AnyConnect Secure Mobility Client"),
			filepath.Join(localAppData, "Cisco"),
		},
		MaxDeferrals:         3,
		CloseCountdownSecs:   300,
		RepairCountdownSecs:  60,
		NAMSettleSecs:        10,
		InstallerTimeoutMins: 15,
		LogPath:              filepath.Join(programData, "VPNDeploy", "logs"),
		LogLevel:             "INFO",
	}
}

// applyFallbacks fills required fields a partial YAML file may have
// emptied. The integer fields are left alone: both load paths layer the
// file over GetDefaultConfig, so an omitted field already holds its
// default, and an explicit zero (no deferrals, no countdown, no installer
// timeout) must survive.
func (c *Configuration) applyFallbacks() {
	def := GetDefaultConfig()
	if c.PackagesPath == "" {
		c.PackagesPath = def.PackagesPath
	}
	if len(c.Packages) == 0 {
		c.Packages = def.Packages
	}
	if c.ClientProcess == "" {
		c.ClientProcess = def.ClientProcess
	}
	if c.AgentProcess == "" {
		c.AgentProcess = def.AgentProcess
	}
	if c.ServiceName == "" {
		c.ServiceName = def.ServiceName
	}
	if c.LogPath == "" {
		c.LogPath = def.LogPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// LoadConfigFromCSP loads configuration from Windows CSP OMA-URI registry
// settings. This serves as a fallback when the Config.yaml file doesn't exist.
func LoadConfigFromCSP() (*Configuration, error) {
	cfg := GetDefaultConfig()
	if err := loadCSPFromRegistryPath(CSPRegistryPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load from CSP registry path: %w", err)
	}
	cfg.applyFallbacks()
	return cfg, nil
}

// loadCSPFromRegistryPath loads configuration values from a registry path.
func loadCSPFromRegistryPath(registryPath string, cfg *Configuration) error {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, registryPath, registry.READ)
	if err != nil {
		return fmt.Errorf("failed to open CSP registry key %s: %w", registryPath, err)
	}
	defer key.Close()

	loadStringFromRegistry(key, "PackagesPath", &cfg.PackagesPath)
	loadStringFromRegistry(key, "DefaultMSI", &cfg.DefaultMSI)
	loadStringFromRegistry(key, "Transform", &cfg.Transform)
	loadStringFromRegistry(key, "ClientProcess", &cfg.ClientProcess)
	loadStringFromRegistry(key, "AgentProcess", &cfg.AgentProcess)
	loadStringFromRegistry(key, "ServiceName", &cfg.ServiceName)
	loadStringFromRegistry(key, "ClientUIPath", &cfg.ClientUIPath)
	loadStringFromRegistry(key, "NAMDataPath", &cfg.NAMDataPath)
	loadStringFromRegistry(key, "LogPath", &cfg.LogPath)
	loadStringFromRegistry(key, "LogLevel", &cfg.LogLevel)

	loadIntFromRegistry(key, "MaxDeferrals", &cfg.MaxDeferrals)
	loadIntFromRegistry(key, "CloseCountdownSecs", &cfg.CloseCountdownSecs)
	loadIntFromRegistry(key, "RepairCountdownSecs", &cfg.RepairCountdownSecs)
	loadIntFromRegistry(key, "NAMSettleSecs", &cfg.NAMSettleSecs)
	loadIntFromRegistry(key, "InstallerTimeoutMins", &cfg.InstallerTimeoutMins)

	loadBoolFromRegistry(key, "Debug", &cfg.Debug)
	loadBoolFromRegistry(key, "Verbose", &cfg.Verbose)

	loadStringArrayFromRegistry(key, "ClientDataPaths", &cfg.ClientDataPaths)

	return nil
}

// loadStringFromRegistry loads a string value from registry if it exists.
func loadStringFromRegistry(key registry.Key, valueName string, target *string) {
	if val, _, err := key.GetStringValue(valueName); err == nil && val != "" {
		*target = val
	}
}

// loadBoolFromRegistry loads a boolean value from registry if it exists.
// Accepts various formats: "true"/"false", "1"/"0", DWORD 1/0.
func loadBoolFromRegistry(key registry.Key, valueName string, target *bool) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.ParseBool(val); parseErr == nil {
			*target = parsed
			return
		}
	}
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = val != 0
	}
}

// loadIntFromRegistry loads an integer value from registry if it exists.
func loadIntFromRegistry(key registry.Key, valueName string, target *int) {
	if val, _, err := key.GetStringValue(valueName); err == nil {
		if parsed, parseErr := strconv.Atoi(val); parseErr == nil {
			*target = parsed
			return
		}
	}
	if val, _, err := key.GetIntegerValue(valueName); err == nil {
		*target = int(val)
	}
}

// loadStringArrayFromRegistry loads a string array from registry. Arrays can
// be stored as comma-separated values or multi-string (REG_MULTI_SZ).
func loadStringArrayFromRegistry(key registry.Key, valueName string, target *[]string) {
	if vals, _, err := key.GetStringsValue(valueName); err == nil && len(vals) > 0 {
		filtered := make([]string, 0, len(vals))
		for _, val := range vals {
			if strings.TrimSpace(val) != "" {
				filtered = append(filtered, strings.TrimSpace(val))
			}
		}
		if len(filtered) > 0 {
			*target = filtered
			return
		}
	}
	if val, _, err := key.GetStringValue(valueName); err == nil && val != "" {
		parts := strings.Split(val, ",")
		filtered := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				filtered = append(filtered, trimmed)
			}
		}
		if len(filtered) > 0 {
			*target = filtered
		}
	}
}
