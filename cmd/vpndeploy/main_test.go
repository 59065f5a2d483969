package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/windowsadmins/vpndeploy/pkg/deploy"
)

func TestExitCode(t *testing.T) {
	wrappedDeferral := fmt.Errorf("Install failed during Pre-Install: %w", deploy.ErrDeferred)
	runFailure := errors.New("msiexec install core.msi: fatal error during installation (1603)")

	tests := []struct {
		name       string
		runErr     error
		passReboot bool
		want       int
	}{
		{"success", nil, false, ExitSuccess},
		{"success with reboot pass-through", nil, true, ExitRebootRequired},
		{"deferred", deploy.ErrDeferred, false, ExitDeferred},
		{"deferred wrapped", wrappedDeferral, false, ExitDeferred},
		{"run failure", runFailure, false, ExitRunFailure},
		{"run failure trumps reboot", runFailure, true, ExitRunFailure},
		{"deferral trumps reboot", deploy.ErrDeferred, true, ExitDeferred},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.runErr, tt.passReboot))
		})
	}
}

func TestExitCodeValues(t *testing.T) {
	// The 60000-68999 range is reserved for deployment tooling codes;
	// 3010 is the Windows Installer reboot-required code.
	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 3010, ExitRebootRequired)
	assert.Equal(t, 60001, ExitRunFailure)
	assert.Equal(t, 60008, ExitLoadFailure)
	assert.Equal(t, 60012, ExitDeferred)
}
