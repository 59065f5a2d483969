// pkg/deploy/repair.go - the repair workflow.

package deploy

import (
	"time"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

func (o *Orchestrator) runRepair() error {
	// Pre: the agent process is closed outright after a fixed countdown.
	// Repair offers no deferral.
	o.setPhase("Pre-Repair")
	countdown := time.Duration(o.cfg.RepairCountdownSecs) * time.Second
	if err := o.tk.CloseProcesses([]string{o.cfg.AgentProcess}, countdown); err != nil {
		return err
	}

	o.setPhase("Repair")
	if o.cfg.DefaultMSI == "" {
		logging.Info("No Zero-Config package configured, nothing to repair")
		return nil
	}

	o.tk.ShowProgress("Repairing the VPN client. Please wait...")
	defer o.tk.CloseProgress()
	return o.installStep(func() error {
		return o.tk.RepairMSI(o.cfg.DefaultMSI)
	})
}
