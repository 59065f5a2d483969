// pkg/msi/msi.go - msiexec execution wrapper.
//
// All installer actions funnel through here so every step gets the same
// silent arguments, verbose log file, timeout, and exit-code handling.

package msi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Action is the msiexec operation to perform.
type Action string

const (
	ActionInstall   Action = "install"
	ActionUninstall Action = "uninstall"
	ActionRepair    Action = "repair"
	ActionPatch     Action = "patch"
)

// Windows Installer exit codes this wrapper distinguishes.
const (
	exitSuccess             = 0
	exitRebootRequired      = 3010
	exitRebootInitiated     = 1641
	exitInstallUserExit     = 1602
	exitInstallFailure      = 1603
	exitUnknownProduct      = 1605
	exitAnotherInstallation = 1618
)

// ErrRebootRequired reports a successful action that needs a restart to
// finish (msiexec exit codes 3010 and 1641).
var ErrRebootRequired = errors.New("reboot required to complete installation")

var commandMsi = filepath.Join(os.Getenv("WINDIR"), "system32", "msiexec.exe")

// Display selects the msiexec UI level.
type Display int

const (
	DisplaySilent Display = iota // /qn
	DisplayBasic                 // /qb!- : progress bar only, no cancel
)

func (d Display) args() []string {
	if d == DisplayBasic {
		return []string{"/qb!-"}
	}
	return []string{"/qn"}
}

// Runner executes msiexec actions with shared settings.
type Runner struct {
	Display Display
	Timeout time.Duration // zero means no timeout
	LogDir  string        // when set, each action writes a /L*v log here
}

// Exec runs one msiexec action. target is a package path for install,
// repair, and patch, or a product code for uninstall. transform names an
// optional .mst applied to install actions; extra are appended verbatim.
func (r *Runner) Exec(action Action, target, transform string, extra ...string) (string, error) {
	args, err := r.buildArgs(action, target, transform, extra)
	if err != nil {
		return "", err
	}

	ctx := context.Background()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, commandMsi, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return out.String(), fmt.Errorf("msiexec %s timed out after %s: %s",
			action, r.Timeout, target)
	}
	return out.String(), interpretExit(action, target, runErr, stderr.String())
}

// buildArgs assembles the full msiexec argument list for one action.
func (r *Runner) buildArgs(action Action, target, transform string, extra []string) ([]string, error) {
	if target == "" {
		return nil, fmt.Errorf("msiexec %s: empty target", action)
	}

	var args []string
	switch action {
	case ActionInstall:
		args = []string{"/i", target}
		if transform != "" {
			args = append(args, "TRANSFORMS="+transform)
		}
	case ActionUninstall:
		args = []string{"/x", target}
	case ActionRepair:
		// Reinstall all files and rewrite all registry entries.
		args = []string{"/fvomus", target}
	case ActionPatch:
		args = []string{"/p", target}
	default:
		return nil, fmt.Errorf("unsupported msiexec action %q", action)
	}

	args = append(args, r.Display.args()...)
	args = append(args, "/norestart")

	if r.LogDir != "" {
		args = append(args, "/L*v", filepath.Join(r.LogDir, logName(action, target)))
	}
	return append(args, extra...), nil
}

// logName derives a per-step log file name from the action target.
func logName(action Action, target string) string {
	base := filepath.Base(target)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Trim(base, "{}")
	return fmt.Sprintf("msi-%s-%s.log", action, base)
}

// interpretExit maps the msiexec process result onto the wrapper's error
// model.
func interpretExit(action Action, target string, runErr error, stderr string) error {
	if runErr == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return fmt.Errorf("msiexec %s %s: %w", action, target, runErr)
	}

	switch exitErr.ExitCode() {
	case exitSuccess:
		return nil
	case exitRebootRequired, exitRebootInitiated:
		return ErrRebootRequired
	case exitInstallUserExit:
		return fmt.Errorf("msiexec %s %s: canceled by user (1602)", action, target)
	case exitInstallFailure:
		return fmt.Errorf("msiexec %s %s: fatal error during installation (1603)", action, target)
	case exitUnknownProduct:
		return fmt.Errorf("msiexec %s %s: product is not installed (1605)", action, target)
	case exitAnotherInstallation:
		return fmt.Errorf("msiexec %s %s: another installation is already in progress (1618)", action, target)
	}

	msg := strings.TrimSpace(stderr)
	if msg != "" {
		return fmt.Errorf("msiexec %s %s: exit code %d: %s", action, target, exitErr.ExitCode(), msg)
	}
	return fmt.Errorf("msiexec %s %s: exit code %d", action, target, exitErr.ExitCode())
}
