// pkg/process/session.go - launching a program in the active user session.
//
// Post-install the client UI must run as the logged-on user, not as the
// elevated deployment process, so the launch goes through the WTS user
// token of the active console session.

package process

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

// StartInActiveSession launches exePath with the token of the user on the
// active console session. Fails when no user is logged on.
func StartInActiveSession(exePath string, args ...string) error {
	sessionID := windows.WTSGetActiveConsoleSessionId()
	if sessionID == 0xFFFFFFFF {
		return fmt.Errorf("no active console session")
	}

	var userToken windows.Token
	if err := windows.WTSQueryUserToken(sessionID, &userToken); err != nil {
		return fmt.Errorf("failed to query user token for session %d: %w", sessionID, err)
	}
	defer userToken.Close()

	var env *uint16
	if err := windows.CreateEnvironmentBlock(&env, userToken, false); err != nil {
		return fmt.Errorf("failed to create environment block: %w", err)
	}
	defer windows.DestroyEnvironmentBlock(env)

	cmdLine := syscall.EscapeArg(exePath)
	for _, arg := range args {
		cmdLine += " " + syscall.EscapeArg(arg)
	}
	cmdLinePtr, err := windows.UTF16PtrFromString(cmdLine)
	if err != nil {
		return err
	}
	desktop, err := windows.UTF16PtrFromString(`winsta0\default`)
	if err != nil {
		return err
	}

	si := new(windows.StartupInfo)
	si.Cb = uint32(unsafe.Sizeof(*si))
	si.Desktop = desktop
	pi := new(windows.ProcessInformation)

	err = windows.CreateProcessAsUser(
		userToken,
		nil,
		cmdLinePtr,
		nil,
		nil,
		false,
		windows.CREATE_UNICODE_ENVIRONMENT,
		env,
		nil,
		si,
		pi,
	)
	if err != nil {
		return fmt.Errorf("failed to start %s in session %d: %w",
			exePath, sessionID, err)
	}
	defer windows.CloseHandle(pi.Thread)
	defer windows.CloseHandle(pi.Process)

	logging.Info("Started process in user session",
		"path", exePath, "args", strings.Join(args, " "),
		"session", sessionID, "pid", pi.ProcessId)
	return nil
}
