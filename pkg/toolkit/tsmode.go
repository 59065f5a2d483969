// pkg/toolkit/tsmode.go - terminal server install mode handling.

package toolkit

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

var commandChange = filepath.Join(os.Getenv("WINDIR"), "system32", "change.exe")

// SetTerminalServerInstallMode toggles the RD session host between install
// and execute mode around the deployment.
func (k *Kit) SetTerminalServerInstallMode(enable bool) error {
	mode := "/Execute"
	if enable {
		mode = "/Install"
	}

	cmd := exec.Command(commandChange, "user", mode)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("change user %s failed: %w, output: %s", mode, err, string(output))
	}
	logging.Info("Terminal server mode changed", "mode", mode)
	return nil
}
