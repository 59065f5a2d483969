// cmd/vpndeploy/main.go

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sys/windows"
	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/vpndeploy/pkg/config"
	"github.com/windowsadmins/vpndeploy/pkg/deploy"
	"github.com/windowsadmins/vpndeploy/pkg/logging"
	"github.com/windowsadmins/vpndeploy/pkg/scripts"
	"github.com/windowsadmins/vpndeploy/pkg/toolkit"
	"github.com/windowsadmins/vpndeploy/pkg/version"
)

// Process exit codes. The 60000-68999 range is reserved for deployment
// tooling codes so monitoring can tell them apart from installer codes.
const (
	ExitSuccess        = 0
	ExitRebootRequired = 3010  // passed through when reboot pass-through is enabled
	ExitRunFailure     = 60001 // unhandled failure during orchestration
	ExitLoadFailure    = 60008 // configuration/logging/toolkit bring-up failure
	ExitDeferred       = 60012 // user postponed the deployment
)

// enableANSIConsole enables ANSI colors in the console.
func enableANSIConsole() {
	for _, stream := range []*os.File{os.Stdout, os.Stderr} {
		handle := windows.Handle(stream.Fd())
		var mode uint32
		if err := windows.GetConsoleMode(handle, &mode); err == nil {
			mode |= windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING
			_ = windows.SetConsoleMode(handle, mode)
		}
	}
}

func main() {
	enableANSIConsole()

	deploymentType := pflag.String("deployment-type", "Install", "Deployment type: Install, Uninstall, or Repair.")
	deployMode := pflag.String("deploy-mode", "Interactive", "Deploy mode: Interactive, Silent, or NonInteractive.")
	modules := pflag.StringSlice("modules", []string{"Base", "GINA"}, "Modules to deploy (All, Base, NAM, WSM, ISE, Posture, GINA).")
	allowRebootPassThru := pflag.Bool("allow-reboot-passthru", false, "Pass exit code 3010 through when an installer requires a restart.")
	terminalServerMode := pflag.Bool("terminal-server-mode", false, "Toggle RD session host install mode around the deployment.")
	disableLogging := pflag.Bool("disable-logging", false, "Disable file logging; console output only.")
	showConfig := pflag.Bool("show-config", false, "Display the current configuration and exit.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv)")
	pflag.Parse()

	if *versionFlag {
		if verbosity > 0 {
			version.PrintFull()
		} else {
			version.Print()
		}
		os.Exit(ExitSuccess)
	}

	dType, err := deploy.ParseDeploymentType(*deploymentType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		pflag.Usage()
		os.Exit(1)
	}
	mode, err := deploy.ParseDeployMode(*deployMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		pflag.Usage()
		os.Exit(1)
	}
	selection, err := deploy.ParseModules(*modules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		pflag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(ExitLoadFailure)
	}

	switch {
	case verbosity >= 2 || cfg.Debug:
		cfg.LogLevel = "DEBUG"
	case verbosity == 1 || cfg.Verbose:
		cfg.LogLevel = "INFO"
	}

	if err := logging.Init(logging.Options{
		BaseDir:  cfg.LogPath,
		Level:    cfg.LogLevel,
		FileLogs: !*disableLogging,
		Console:  true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(ExitLoadFailure)
	}
	defer logging.Close()

	if *showConfig {
		if cfgYaml, err := yaml.Marshal(cfg); err == nil {
			fmt.Printf("Current configuration:\n%s", string(cfgYaml))
		}
		os.Exit(ExitSuccess)
	}

	// Handle system signals for graceful shutdown.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-signalChan
		logging.Warn("Signal received, aborting deployment", "signal", sig.String())
		logging.Close()
		os.Exit(ExitRunFailure)
	}()

	admin, adminErr := adminCheck()
	if adminErr != nil || !admin {
		logging.Error("Administrative access required",
			"error", adminErr, "admin", admin)
		os.Exit(ExitLoadFailure)
	}

	kit, err := toolkit.New(cfg, mode)
	if err != nil {
		logging.Error("Failed to initialize deployment toolkit", "error", err)
		os.Exit(ExitLoadFailure)
	}

	if *terminalServerMode {
		if err := kit.SetTerminalServerInstallMode(true); err != nil {
			logging.Error("Failed to enter terminal server install mode", "error", err)
			os.Exit(ExitLoadFailure)
		}
		defer func() {
			if err := kit.SetTerminalServerInstallMode(false); err != nil {
				logging.Warn("Failed to leave terminal server install mode", "error", err)
			}
		}()
	}

	if err := scripts.RunPredeploy(cfg.PackagesPath); err != nil {
		// Hook failures are reported but never block the deployment.
		logging.Warn("Predeploy script failed", "error", err)
	}

	orch := deploy.New(cfg, kit, deploy.Options{
		Type:    dType,
		Mode:    mode,
		Modules: selection,
	})

	runErr := orch.Run()
	if runErr == nil {
		if err := scripts.RunPostdeploy(cfg.PackagesPath); err != nil {
			logging.Warn("Postdeploy script failed", "error", err)
		}
	}

	os.Exit(exitCode(runErr, orch.RebootRequired() && *allowRebootPassThru))
}

// exitCode maps the orchestrator result onto the process exit code.
func exitCode(runErr error, passReboot bool) int {
	switch {
	case runErr == nil && passReboot:
		return ExitRebootRequired
	case runErr == nil:
		return ExitSuccess
	case errors.Is(runErr, deploy.ErrDeferred):
		return ExitDeferred
	default:
		return ExitRunFailure
	}
}

// adminCheck verifies whether the current process has administrative privileges.
func adminCheck() (bool, error) {
	var adminSid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&adminSid)
	if err != nil {
		return false, err
	}
	defer windows.FreeSid(adminSid)
	token := windows.Token(0)
	isMember, err := token.IsMember(adminSid)
	return isMember, err
}
