// pkg/deploy/install.go - the install workflow: Pre -> Main -> Post.

package deploy

import (
	"fmt"
	"time"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

func (o *Orchestrator) runInstall() error {
	// Pre: close the client UI, honoring the deferral allowance, then put
	// up the progress window for the rest of the run.
	o.setPhase("Pre-Install")
	if err := o.tk.ShowWelcome(WelcomeOptions{
		Processes:    []string{o.cfg.ClientProcess},
		Countdown:    o.closeCountdown(),
		MaxDeferrals: o.cfg.MaxDeferrals,
	}); err != nil {
		return err
	}
	o.tk.ShowProgress("Installing the VPN client. Please wait...")
	defer o.tk.CloseProgress()

	o.setPhase("Install")
	zeroConfig := o.cfg.DefaultMSI != ""
	if zeroConfig {
		logging.Info("Installing Zero-Config package", "package", o.cfg.DefaultMSI)
		o.tk.UpdateProgress("Installing VPN client package...")
		if err := o.installStep(func() error {
			return o.tk.InstallMSI(o.cfg.DefaultMSI, o.cfg.Transform)
		}); err != nil {
			return err
		}
	} else {
		if err := o.installModules(); err != nil {
			return err
		}
	}

	o.setPhase("Post-Install")
	o.tk.UpdateProgress("Restarting the VPN agent service...")
	if err := o.tk.RestartService(o.cfg.ServiceName); err != nil {
		return fmt.Errorf("restarting service %s: %w", o.cfg.ServiceName, err)
	}
	if o.cfg.ClientUIPath != "" {
		// Best effort: there may be no console session on silent rollouts.
		if err := o.tk.RunAsActiveUser(o.cfg.ClientUIPath); err != nil {
			logging.Warn("Could not launch client UI in user session",
				"path", o.cfg.ClientUIPath, "error", err)
		}
	}
	o.tk.CloseProgress()
	if !zeroConfig && o.opts.Mode == ModeInteractive {
		o.tk.Inform("Installation complete",
			"The VPN client has been installed successfully.")
	}
	return nil
}

// installModules installs the requested modules in fixed precedence order.
func (o *Orchestrator) installModules() error {
	if o.opts.Modules.Contains(ModuleWSM) {
		// The web security module is retired; the selector is still
		// accepted so existing rollout command lines keep working.
		logging.Warn("WSM module selected but no longer shipped, skipping")
	}

	for _, spec := range installOrder {
		if !o.opts.Modules.Contains(spec.Tag) {
			continue
		}
		pkgPath := o.cfg.PackagePath(string(spec.Tag))
		if pkgPath == "" {
			return fmt.Errorf("no package configured for module %s", spec.Tag)
		}

		if installed, ok := o.tk.InstalledVersion(spec.ProductName); ok {
			logging.Info("Module already present, msiexec will upgrade in place",
				"module", spec.Tag, "installed_version", installed)
		}

		logging.Info("Installing module", "module", spec.Tag, "package", pkgPath)
		o.tk.UpdateProgress(fmt.Sprintf("Installing %s...", spec.ProductName))
		if err := o.installStep(func() error {
			return o.tk.InstallMSI(pkgPath, o.cfg.Transform)
		}); err != nil {
			return fmt.Errorf("installing module %s: %w", spec.Tag, err)
		}

		if spec.Tag == ModuleNAM {
			// The network access manager needs time to rebind network
			// adapters before the next installer touches the stack.
			o.tk.Settle(time.Duration(o.cfg.NAMSettleSecs) * time.Second)
		}
	}
	return nil
}
