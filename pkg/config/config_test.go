package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "vpnui", cfg.ClientProcess)
	assert.Equal(t, "vpnagent", cfg.AgentProcess)
	assert.Equal(t, "vpnagent", cfg.ServiceName)
	assert.Equal(t, 3, cfg.MaxDeferrals)
	assert.Equal(t, 300, cfg.CloseCountdownSecs)
	assert.Equal(t, 10, cfg.NAMSettleSecs)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Empty(t, cfg.DefaultMSI, "Zero-Config is opt-in")

	for _, module := range []string{"Base", "GINA", "NAM", "Posture", "ISE", "DART"} {
		assert.NotEmpty(t, cfg.Packages[module], "module %s needs a default package", module)
	}
}

func TestPackagePath(t *testing.T) {
	cfg := &Configuration{
		PackagesPath: `C:\Packages`,
		Packages: map[string]string{
			"Base": "core.msi",
			"NAM":  `D:\override\nam.msi`,
		},
	}

	assert.Equal(t, `C:\Packages\core.msi`, cfg.PackagePath("Base"))
	assert.Equal(t, `D:\override\nam.msi`, cfg.PackagePath("NAM"),
		"absolute entries bypass PackagesPath")
	assert.Empty(t, cfg.PackagePath("Posture"))
	assert.Empty(t, cfg.PackagePath("NoSuchModule"))
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Config.yaml")
	payload := `
PackagesPath: 'D:\Deploy\Packages'
DefaultMSI: 'D:\Deploy\anyconnect-all.msi'
Transform: 'D:\Deploy\site.mst'
MaxDeferrals: 5
LogLevel: DEBUG
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, `D:\Deploy\Packages`, cfg.PackagesPath)
	assert.Equal(t, `D:\Deploy\anyconnect-all.msi`, cfg.DefaultMSI)
	assert.Equal(t, `D:\Deploy\site.mst`, cfg.Transform)
	assert.Equal(t, 5, cfg.MaxDeferrals)
	assert.Equal(t, "DEBUG", cfg.LogLevel)

	// Fields the file omitted keep their defaults.
	assert.Equal(t, "vpnui", cfg.ClientProcess)
	assert.Equal(t, 300, cfg.CloseCountdownSecs)
	assert.NotEmpty(t, cfg.Packages)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PackagesPath: [broken"), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestApplyFallbacks(t *testing.T) {
	cfg := &Configuration{PackagesPath: `C:\Custom`}
	cfg.applyFallbacks()

	assert.Equal(t, `C:\Custom`, cfg.PackagesPath, "explicit values survive")
	assert.Equal(t, "vpnui", cfg.ClientProcess)
	assert.Equal(t, "vpnagent", cfg.ServiceName)
	assert.NotEmpty(t, cfg.LogPath)
}

func TestLoadFromExplicitZeroesSurvive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Config.yaml")
	payload := `
MaxDeferrals: 0
CloseCountdownSecs: 0
InstallerTimeoutMins: 0
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	// A site may disable deferral, the countdown, or the installer timeout.
	assert.Equal(t, 0, cfg.MaxDeferrals)
	assert.Equal(t, 0, cfg.CloseCountdownSecs)
	assert.Equal(t, 0, cfg.InstallerTimeoutMins)

	// Omitted integers still default.
	assert.Equal(t, 60, cfg.RepairCountdownSecs)
	assert.Equal(t, 10, cfg.NAMSettleSecs)
}
