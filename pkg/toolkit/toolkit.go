// pkg/toolkit/toolkit.go - the production deployment toolkit.
//
// Kit implements deploy.Toolkit by composing the msi, process, service,
// detect, and ui packages. Dialogs and the progress window only appear in
// interactive mode; the silent modes keep the same sequencing with the UI
// calls reduced to logging.

package toolkit

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/windowsadmins/vpndeploy/pkg/config"
	"github.com/windowsadmins/vpndeploy/pkg/deploy"
	"github.com/windowsadmins/vpndeploy/pkg/detect"
	"github.com/windowsadmins/vpndeploy/pkg/logging"
	"github.com/windowsadmins/vpndeploy/pkg/msi"
	"github.com/windowsadmins/vpndeploy/pkg/process"
	"github.com/windowsadmins/vpndeploy/pkg/service"
	"github.com/windowsadmins/vpndeploy/pkg/ui"
)

// deferralCounter is the persisted deferral record ShowWelcome consults.
type deferralCounter interface {
	Count() int
	Increment()
	Clear()
}

// Kit is the production deploy.Toolkit.
type Kit struct {
	cfg       *config.Configuration
	mode      deploy.DeployMode
	runner    *msi.Runner
	deferrals deferralCounter
	progress  *ui.ProgressWindow

	// Substitution seams for the interactive and process-touching calls.
	prompt     func(title, text string) ui.Choice
	inform     func(title, text string)
	anyRunning func(names []string) bool
	closeProcs func(names []string) error
	closeAfter func(names []string, countdown time.Duration) error
}

// New builds a Kit for the given deployment mode.
func New(cfg *config.Configuration, mode deploy.DeployMode) (*Kit, error) {
	if cfg == nil {
		return nil, fmt.Errorf("toolkit requires a configuration")
	}

	display := msi.DisplaySilent
	if mode == deploy.ModeInteractive {
		display = msi.DisplayBasic
	}

	return &Kit{
		cfg:  cfg,
		mode: mode,
		runner: &msi.Runner{
			Display: display,
			Timeout: time.Duration(cfg.InstallerTimeoutMins) * time.Minute,
			LogDir:  logging.SessionDir(),
		},
		deferrals:  NewDeferralStore(),
		prompt:     ui.PromptCloseOrDefer,
		inform:     ui.Inform,
		anyRunning: process.AnyRunning,
		closeProcs: process.Close,
		closeAfter: process.CloseAfter,
	}, nil
}

// interactive reports whether dialogs may be shown.
func (k *Kit) interactive() bool { return k.mode == deploy.ModeInteractive }

// ShowWelcome prompts for closure of the named processes, honoring the
// deferral allowance, then closes them. Non-interactive modes close the
// processes immediately.
func (k *Kit) ShowWelcome(opts deploy.WelcomeOptions) error {
	if !k.anyRunning(opts.Processes) {
		k.deferrals.Clear()
		return nil
	}

	if !k.interactive() {
		logging.Info("Closing blocking processes without prompting",
			"processes", opts.Processes, "mode", k.mode.String())
		return k.closeProcs(opts.Processes)
	}

	used := k.deferrals.Count()
	if opts.MaxDeferrals > 0 && used < opts.MaxDeferrals {
		remaining := opts.MaxDeferrals - used
		choice, answered := k.promptWithCountdown("VPN client deployment",
			fmt.Sprintf("The VPN client must be closed before deployment can continue.\n\n"+
				"Close it now?\n\nChoosing No postpones the deployment. "+
				"You may postpone %d more time(s).", remaining), opts.Countdown)
		if !answered {
			logging.Warn("No answer to closure prompt within countdown, closing processes",
				"countdown", opts.Countdown.String())
			k.deferrals.Clear()
			return k.closeProcs(opts.Processes)
		}
		if choice == ui.ChoiceDefer {
			k.deferrals.Increment()
			logging.Info("User deferred deployment",
				"deferrals_used", used+1, "max_deferrals", opts.MaxDeferrals)
			return deploy.ErrDeferred
		}
		k.deferrals.Clear()
		return k.closeProcs(opts.Processes)
	}

	// Deferral allowance exhausted: announce the forced closure, then give
	// the countdown for the user to save work before processes are closed.
	k.inform("VPN client deployment",
		fmt.Sprintf("The VPN client will be closed automatically in %s. "+
			"Please save your work.", opts.Countdown))
	k.deferrals.Clear()
	return k.closeAfter(opts.Processes, opts.Countdown)
}

// promptWithCountdown shows the closure prompt and waits at most countdown
// for an answer. answered is false when the countdown expired first; the
// dialog stays on screen but closure proceeds underneath it. A zero
// countdown waits indefinitely.
func (k *Kit) promptWithCountdown(title, text string, countdown time.Duration) (choice ui.Choice, answered bool) {
	choiceCh := make(chan ui.Choice, 1)
	go func() { choiceCh <- k.prompt(title, text) }()

	var timeout <-chan time.Time
	if countdown > 0 {
		timer := time.NewTimer(countdown)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case c := <-choiceCh:
		return c, true
	case <-timeout:
		return ui.ChoiceClose, false
	}
}

// CloseProcesses closes the named processes after the countdown, with no
// prompting.
func (k *Kit) CloseProcesses(names []string, countdown time.Duration) error {
	return k.closeAfter(names, countdown)
}

func (k *Kit) ShowProgress(text string) {
	logging.Info("Progress", "message", text)
	if !k.interactive() || k.progress != nil {
		return
	}
	p, err := ui.ShowProgress("VPN client deployment", text)
	if err != nil {
		logging.Warn("Could not show progress window, continuing without UI", "error", err)
		return
	}
	k.progress = p
}

func (k *Kit) UpdateProgress(text string) {
	logging.Info("Progress", "message", text)
	if k.progress != nil {
		k.progress.Update(text)
	}
}

func (k *Kit) CloseProgress() {
	if k.progress != nil {
		k.progress.Close()
		k.progress = nil
	}
}

// InstallMSI installs the package, optionally applying a transform.
func (k *Kit) InstallMSI(pkgPath, transform string) error {
	output, err := k.runner.Exec(msi.ActionInstall, pkgPath, transform)
	return k.finishMSI("install", pkgPath, output, err)
}

// UninstallMSI removes an installed product by product code.
func (k *Kit) UninstallMSI(productCode string) error {
	output, err := k.runner.Exec(msi.ActionUninstall, productCode, "")
	return k.finishMSI("uninstall", productCode, output, err)
}

// RepairMSI repairs the product installed from the package path.
func (k *Kit) RepairMSI(pkgPath string) error {
	output, err := k.runner.Exec(msi.ActionRepair, pkgPath, "")
	return k.finishMSI("repair", pkgPath, output, err)
}

// finishMSI translates the runner result into the orchestrator's error
// model.
func (k *Kit) finishMSI(action, target, output string, err error) error {
	if errors.Is(err, msi.ErrRebootRequired) {
		logging.Warn("Installer finished but requires a restart",
			"action", action, "target", target)
		return deploy.ErrRebootRequired
	}
	if err != nil {
		return err
	}
	logging.Debug("msiexec completed", "action", action, "target", target, "output", output)
	return nil
}

// InstalledVersion reports the installed version of a product, if any.
func (k *Kit) InstalledVersion(productName string) (string, bool) {
	return detect.InstalledVersion(productName)
}

// ProductCode resolves the MSI product code of an installed product.
func (k *Kit) ProductCode(productName string) (string, bool) {
	return detect.ProductCode(productName)
}

// RemoveFolder deletes a directory tree. A missing directory is fine.
func (k *Kit) RemoveFolder(path string) error {
	if path == "" {
		return nil
	}
	logging.Info("Removing folder", "path", path)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// RestartService stops and starts the named service.
func (k *Kit) RestartService(name string) error {
	return service.Restart(name)
}

// RunAsActiveUser launches a program in the active console session.
func (k *Kit) RunAsActiveUser(exePath string, args ...string) error {
	return process.StartInActiveSession(exePath, args...)
}

// Inform shows a blocking informational dialog in interactive mode.
func (k *Kit) Inform(title, text string) {
	logging.Info("Dialog", "title", title, "text", text)
	if k.interactive() {
		ui.Inform(title, text)
	}
}

// Fail shows a blocking error dialog in interactive mode.
func (k *Kit) Fail(title, text string) {
	logging.Error("Dialog", "title", title, "text", text)
	if k.interactive() {
		ui.Fail(title, text)
	}
}

// Settle blocks for the given duration between installer steps.
func (k *Kit) Settle(d time.Duration) {
	logging.Debug("Settling between installer steps", "duration", d.String())
	time.Sleep(d)
}
