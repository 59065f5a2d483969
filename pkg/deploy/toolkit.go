// pkg/deploy/toolkit.go - the collaborator surface the orchestrator drives.

package deploy

import "time"

// WelcomeOptions parameterizes the pre-deployment closure prompt.
type WelcomeOptions struct {
	// Processes to close before the deployment may proceed (base names,
	// without .exe).
	Processes []string
	// Countdown before running processes are closed by force. It also
	// bounds how long the closure prompt waits for an answer.
	Countdown time.Duration
	// MaxDeferrals is how many times the user may postpone the closure.
	// Zero disables deferral entirely.
	MaxDeferrals int
}

// Toolkit is the deployment toolkit surface consumed by the orchestrator.
// The production implementation lives in pkg/toolkit; tests substitute a
// recording fake.
type Toolkit interface {
	// ShowWelcome prompts for closure of the named processes, honoring the
	// deferral allowance, and force-closes them after the countdown. It
	// returns ErrDeferred when the user postponed the deployment.
	ShowWelcome(opts WelcomeOptions) error

	// CloseProcesses closes the named processes after the countdown with
	// no user interaction.
	CloseProcesses(names []string, countdown time.Duration) error

	ShowProgress(text string)
	UpdateProgress(text string)
	CloseProgress()

	// InstallMSI installs the package, optionally applying a transform.
	// Returns ErrRebootRequired when the installer requests a restart.
	InstallMSI(pkgPath, transform string) error
	// UninstallMSI removes an installed product by product code.
	UninstallMSI(productCode string) error
	// RepairMSI repairs the product installed from the package path.
	RepairMSI(pkgPath string) error

	// InstalledVersion reports the installed version of a product, if any.
	InstalledVersion(productName string) (string, bool)
	// ProductCode resolves the MSI product code of an installed product.
	ProductCode(productName string) (string, bool)

	RemoveFolder(path string) error
	RestartService(name string) error

	// RunAsActiveUser launches a program in the active console session.
	RunAsActiveUser(exePath string, args ...string) error

	// Inform shows a blocking informational dialog; Fail shows a blocking
	// error dialog. Both are no-ops outside interactive mode.
	Inform(title, text string)
	Fail(title, text string)

	// Settle blocks for the given duration between installer steps.
	Settle(d time.Duration)
}
