// pkg/service/service.go - Windows service control for the VPN agent.

package service

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
	"github.com/windowsadmins/vpndeploy/pkg/retry"
)

const stateTimeout = 30 * time.Second

// Stop stops the named service and any running services that depend on
// it. Missing services are not an error; an uninstall may already have
// removed them.
func Stop(name string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		logging.Debug("Service not present, nothing to stop", "service", name)
		return nil
	}
	defer s.Close()

	// Dependents must go down first or the stop is rejected.
	deps, err := s.ListDependentServices(svc.Active)
	if err == nil {
		for _, dep := range deps {
			if err := stopOne(m, dep); err != nil {
				return fmt.Errorf("failed to stop dependent service %s: %w", dep, err)
			}
		}
	}

	return stopOpened(s, name)
}

// Start starts the named service, retrying while the service control
// manager settles after an install.
func Start(name string) error {
	return retry.Retry(retry.Config{
		MaxRetries:      3,
		InitialInterval: 2 * time.Second,
		Multiplier:      2.0,
	}, func() error {
		return startOnce(name)
	})
}

// Restart stops and then starts the named service.
func Restart(name string) error {
	if err := Stop(name); err != nil {
		return err
	}
	return Start(name)
}

func stopOne(m *mgr.Mgr, name string) error {
	s, err := m.OpenService(name)
	if err != nil {
		return nil
	}
	defer s.Close()
	return stopOpened(s, name)
}

func stopOpened(s *mgr.Service, name string) error {
	status, err := s.Query()
	if err != nil {
		return fmt.Errorf("failed to query service %s: %w", name, err)
	}
	if status.State == svc.Stopped {
		return nil
	}

	logging.Info("Stopping service", "service", name)
	if _, err := s.Control(svc.Stop); err != nil {
		return fmt.Errorf("failed to stop service %s: %w", name, err)
	}
	return waitForState(s, name, svc.Stopped)
}

func startOnce(name string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("failed to open service %s: %w", name, err)
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return fmt.Errorf("failed to query service %s: %w", name, err)
	}
	if status.State == svc.Running {
		logging.Debug("Service already running", "service", name)
		return nil
	}

	logging.Info("Starting service", "service", name)
	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to start service %s: %w", name, err)
	}
	return waitForState(s, name, svc.Running)
}

func waitForState(s *mgr.Service, name string, want svc.State) error {
	deadline := time.Now().Add(stateTimeout)
	for time.Now().Before(deadline) {
		status, err := s.Query()
		if err != nil {
			return fmt.Errorf("failed to query service %s: %w", name, err)
		}
		if status.State == want {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("service %s did not reach the requested state within %s", name, stateTimeout)
}
