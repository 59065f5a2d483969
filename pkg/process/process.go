// pkg/process/process.go - detection and closure of running client processes.

package process

import (
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

// MatchesName reports whether a process name matches a target app name.
// The target may be given with or without the .exe suffix; matching is
// case-insensitive.
func MatchesName(processName, target string) bool {
	p := strings.ToLower(processName)
	t := strings.ToLower(strings.TrimSpace(target))
	if t == "" {
		return false
	}
	if strings.HasSuffix(t, ".exe") {
		return p == t
	}
	return p == t || p == t+".exe"
}

// FindRunning returns the live processes matching any of the target names.
func FindRunning(names []string) ([]*process.Process, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var matched []*process.Process
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		for _, target := range names {
			if MatchesName(name, target) {
				matched = append(matched, proc)
				break
			}
		}
	}
	return matched, nil
}

// AnyRunning reports whether any of the named processes is running.
func AnyRunning(names []string) bool {
	matched, err := FindRunning(names)
	if err != nil {
		logging.Error("Process scan failed", "error", err)
		return false
	}
	return len(matched) > 0
}

// Close terminates every process matching the target names: first a
// graceful terminate, then a kill for anything still alive after the
// grace period.
func Close(names []string) error {
	matched, err := FindRunning(names)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		logging.Debug("No matching processes to close", "targets", names)
		return nil
	}

	for _, proc := range matched {
		name, _ := proc.Name()
		logging.Info("Closing process", "process", name, "pid", proc.Pid)
		if err := proc.Terminate(); err != nil {
			logging.Debug("Terminate failed, will kill", "pid", proc.Pid, "error", err)
		}
	}

	// Grace period for clean shutdown before resorting to a kill.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !AnyRunning(names) {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}

	matched, err = FindRunning(names)
	if err != nil {
		return err
	}
	for _, proc := range matched {
		name, _ := proc.Name()
		logging.Warn("Force killing process", "process", name, "pid", proc.Pid)
		if err := proc.Kill(); err != nil {
			return fmt.Errorf("failed to kill process %s (pid %d): %w", name, proc.Pid, err)
		}
	}
	return nil
}

// CloseAfter waits out the countdown while any target process is running,
// then closes whatever remains. Processes exiting on their own end the
// wait early.
func CloseAfter(names []string, countdown time.Duration) error {
	if !AnyRunning(names) {
		return nil
	}

	logging.Info("Waiting before forced closure",
		"targets", names, "countdown", countdown.String())
	deadline := time.Now().Add(countdown)
	for time.Now().Before(deadline) {
		if !AnyRunning(names) {
			return nil
		}
		time.Sleep(time.Second)
	}
	return Close(names)
}
