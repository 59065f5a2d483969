// pkg/deploy/uninstall.go - the uninstall workflow.

package deploy

import (
	"fmt"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

func (o *Orchestrator) runUninstall() error {
	o.setPhase("Pre-Uninstall")
	if err := o.tk.ShowWelcome(WelcomeOptions{
		Processes:    []string{o.cfg.ClientProcess},
		Countdown:    o.closeCountdown(),
		MaxDeferrals: o.cfg.MaxDeferrals,
	}); err != nil {
		return err
	}
	o.tk.ShowProgress("Removing the VPN client. Please wait...")
	defer o.tk.CloseProgress()

	// Main: every module is removed in strict reverse-dependency order,
	// independent of the module selection the caller passed.
	o.setPhase("Uninstall")
	for _, spec := range uninstallOrder {
		code, present := o.tk.ProductCode(spec.ProductName)
		if present {
			logging.Info("Uninstalling module", "module", spec.Tag, "product_code", code)
			o.tk.UpdateProgress(fmt.Sprintf("Removing %s...", spec.ProductName))
			if err := o.installStep(func() error {
				return o.tk.UninstallMSI(code)
			}); err != nil {
				return fmt.Errorf("uninstalling module %s: %w", spec.Tag, err)
			}
		} else {
			logging.Debug("Module not installed, skipping", "module", spec.Tag)
		}

		// Data directories are swept even when the product record was
		// already gone, so leftovers from broken installs get cleaned.
		switch spec.Tag {
		case ModuleNAM:
			if o.cfg.NAMDataPath != "" {
				if err := o.tk.RemoveFolder(o.cfg.NAMDataPath); err != nil {
					return fmt.Errorf("removing NAM data: %w", err)
				}
			}
		case ModuleBase:
			for _, dir := range o.cfg.ClientDataPaths {
				if err := o.tk.RemoveFolder(dir); err != nil {
					return fmt.Errorf("removing client data %s: %w", dir, err)
				}
			}
		}
	}
	return nil
}
