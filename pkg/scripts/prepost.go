// pkg/scripts/prepost.go - optional pre/post deployment hook scripts.
//
// Sites drop predeploy.ps1 / postdeploy.ps1 next to the packages to run
// site-specific steps (profile staging, certificate installs) around the
// MSI sequence. A missing script is not an error.

package scripts

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

// runScript executes the PowerShell script at the provided path and logs
// its output line by line.
func runScript(scriptPath, displayName string) error {
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		logging.Debug("Hook script not present", "script", displayName, "path", scriptPath)
		return nil
	}

	cmd := exec.Command(
		"powershell.exe",
		"-NoLogo",
		"-NoProfile",
		"-NonInteractive",
		"-ExecutionPolicy", "Bypass",
		"-Command", fmt.Sprintf(`& "%s" 2>&1`, scriptPath),
	)
	cmd.Dir = filepath.Dir(scriptPath)

	outputBytes, err := cmd.CombinedOutput()
	for _, line := range strings.Split(string(outputBytes), "\n") {
		txt := strings.TrimSpace(line)
		if txt == "" {
			continue
		}
		txt = strings.TrimPrefix(txt, "\ufeff")
		logging.Info(txt, "script", displayName)
	}

	if err != nil {
		return fmt.Errorf("%s script error: %w", displayName, err)
	}
	logging.Info("Hook script completed", "script", displayName)
	return nil
}

// RunPredeploy runs the predeploy hook from the packages directory.
func RunPredeploy(packagesPath string) error {
	return runScript(filepath.Join(packagesPath, "predeploy.ps1"), "Predeploy")
}

// RunPostdeploy runs the postdeploy hook from the packages directory.
func RunPostdeploy(packagesPath string) error {
	return runScript(filepath.Join(packagesPath, "postdeploy.ps1"), "Postdeploy")
}
