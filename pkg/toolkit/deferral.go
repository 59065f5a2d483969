// pkg/toolkit/deferral.go - persisted deferral history.
//
// Deferral counts survive process restarts so the allowance is a cap per
// rollout, not per invocation. A successful pass through the welcome
// prompt clears the record.

package toolkit

import (
	"golang.org/x/sys/windows/registry"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

const deferralKeyPath = `SOFTWARE\VPNDeploy`
const deferralValueName = "DeferralsUsed"

// DeferralStore tracks how many times the user has postponed deployment.
type DeferralStore struct {
	keyPath string
}

// NewDeferralStore returns the registry-backed deferral store.
func NewDeferralStore() *DeferralStore {
	return &DeferralStore{keyPath: deferralKeyPath}
}

// Count returns the number of deferrals used so far.
func (s *DeferralStore) Count() int {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, s.keyPath, registry.READ)
	if err != nil {
		return 0
	}
	defer key.Close()

	val, _, err := key.GetIntegerValue(deferralValueName)
	if err != nil {
		return 0
	}
	return int(val)
}

// Increment records one more deferral.
func (s *DeferralStore) Increment() {
	key, _, err := registry.CreateKey(registry.LOCAL_MACHINE, s.keyPath, registry.ALL_ACCESS)
	if err != nil {
		logging.Warn("Could not persist deferral count", "error", err)
		return
	}
	defer key.Close()

	if err := key.SetDWordValue(deferralValueName, uint32(s.Count()+1)); err != nil {
		logging.Warn("Could not persist deferral count", "error", err)
	}
}

// Clear removes the deferral record.
func (s *DeferralStore) Clear() {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, s.keyPath, registry.ALL_ACCESS)
	if err != nil {
		return
	}
	defer key.Close()
	key.DeleteValue(deferralValueName)
}
