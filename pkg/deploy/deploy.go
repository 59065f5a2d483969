// pkg/deploy/deploy.go - the deployment orchestrator.
//
// The orchestrator runs one of three linear workflows (install, uninstall,
// repair), each a fixed Pre/Main/Post sequence of toolkit calls. There is
// no per-step recovery: the first failing step aborts the remainder and
// surfaces through Run's single error return, which the caller maps to an
// exit code.

package deploy

import (
	"errors"
	"fmt"
	"time"

	"github.com/windowsadmins/vpndeploy/pkg/config"
	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

// ErrDeferred is returned when the user postponed the deployment at the
// welcome prompt instead of closing the blocking applications.
var ErrDeferred = errors.New("deployment deferred by user")

// ErrRebootRequired is the soft failure an installer step reports when the
// machine must restart to finish. The orchestrator records it and carries
// on with the remaining steps.
var ErrRebootRequired = errors.New("reboot required to complete installation")

// Options selects the workflow and its behavior. Reboot pass-through and
// terminal server mode are concerns of the caller: the orchestrator only
// reports RebootRequired and the CLI maps it to an exit code.
type Options struct {
	Type    DeploymentType
	Mode    DeployMode
	Modules ModuleSelection
}

// Orchestrator executes one deployment workflow against a Toolkit.
type Orchestrator struct {
	cfg  *config.Configuration
	tk   Toolkit
	opts Options

	phase          string
	rebootRequired bool
}

// New builds an orchestrator. The module selection defaults to
// {Base, GINA} when empty.
func New(cfg *config.Configuration, tk Toolkit, opts Options) *Orchestrator {
	if opts.Modules == nil {
		opts.Modules, _ = ParseModules(nil)
	}
	return &Orchestrator{cfg: cfg, tk: tk, opts: opts}
}

// RebootRequired reports whether any installer step requested a restart.
func (o *Orchestrator) RebootRequired() bool { return o.rebootRequired }

// Phase returns the label of the phase the orchestrator last entered,
// for diagnostic context in error reports.
func (o *Orchestrator) Phase() string { return o.phase }

// Run executes the selected workflow. Any failure is logged, surfaced via
// a blocking dialog in interactive mode, and returned to the caller.
func (o *Orchestrator) Run() error {
	logging.Info("Starting deployment",
		"type", o.opts.Type.String(),
		"mode", o.opts.Mode.String(),
		"modules", o.opts.Modules.Tags())

	var err error
	switch o.opts.Type {
	case TypeUninstall:
		err = o.runUninstall()
	case TypeRepair:
		err = o.runRepair()
	default:
		err = o.runInstall()
	}

	if err != nil {
		if errors.Is(err, ErrDeferred) {
			logging.Info("Deployment deferred", "phase", o.phase)
			return err
		}
		logging.Error("Deployment failed", "phase", o.phase, "error", err)
		if o.opts.Mode == ModeInteractive {
			o.tk.Fail(o.opts.Type.String()+" failed",
				fmt.Sprintf("The %s operation did not complete: %v", o.opts.Type, err))
		}
		return fmt.Errorf("%s failed during %s: %w", o.opts.Type, o.phase, err)
	}

	logging.Info("Deployment completed", "type", o.opts.Type.String(),
		"reboot_required", o.rebootRequired)
	return nil
}

// setPhase advances the informational phase label.
func (o *Orchestrator) setPhase(name string) {
	o.phase = name
	logging.SetPhase(name)
	logging.Debug("Entering phase", "phase", name)
}

// installStep runs one installer action, folding the reboot-required soft
// failure into the run state instead of aborting.
func (o *Orchestrator) installStep(action func() error) error {
	err := action()
	if errors.Is(err, ErrRebootRequired) {
		o.rebootRequired = true
		logging.Warn("Installer requested a restart, continuing")
		return nil
	}
	return err
}

func (o *Orchestrator) closeCountdown() time.Duration {
	return time.Duration(o.cfg.CloseCountdownSecs) * time.Second
}
