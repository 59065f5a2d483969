// pkg/deploy/types.go - deployment selectors and module tables.

package deploy

import (
	"fmt"
	"strings"
)

// DeploymentType is the requested operation.
type DeploymentType int

const (
	TypeInstall DeploymentType = iota
	TypeUninstall
	TypeRepair
)

func (t DeploymentType) String() string {
	switch t {
	case TypeInstall:
		return "Install"
	case TypeUninstall:
		return "Uninstall"
	case TypeRepair:
		return "Repair"
	default:
		return "Unknown"
	}
}

// ParseDeploymentType parses a deployment type name (case-insensitive).
func ParseDeploymentType(s string) (DeploymentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "install":
		return TypeInstall, nil
	case "uninstall":
		return TypeUninstall, nil
	case "repair":
		return TypeRepair, nil
	default:
		return TypeInstall, fmt.Errorf("unknown deployment type %q", s)
	}
}

// DeployMode controls how much UI the deployment presents.
type DeployMode int

const (
	ModeInteractive DeployMode = iota
	ModeSilent
	ModeNonInteractive
)

func (m DeployMode) String() string {
	switch m {
	case ModeInteractive:
		return "Interactive"
	case ModeSilent:
		return "Silent"
	case ModeNonInteractive:
		return "NonInteractive"
	default:
		return "Unknown"
	}
}

// ParseDeployMode parses a deploy mode name (case-insensitive).
func ParseDeployMode(s string) (DeployMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "interactive":
		return ModeInteractive, nil
	case "silent":
		return ModeSilent, nil
	case "noninteractive":
		return ModeNonInteractive, nil
	default:
		return ModeInteractive, fmt.Errorf("unknown deploy mode %q", s)
	}
}

// Module is an optional installable component of the VPN client package.
type Module string

const (
	ModuleAll     Module = "All"
	ModuleBase    Module = "Base"
	ModuleNAM     Module = "NAM"
	ModuleWSM     Module = "WSM"
	ModuleISE     Module = "ISE"
	ModulePosture Module = "Posture"
	ModuleGINA    Module = "GINA"
	ModuleDART    Module = "DART"
)

// moduleSpec ties a module tag to the product it installs. ProductName is
// the DisplayName the MSI registers under the Uninstall hive; it is how
// installed copies are found again for version checks and removal.
type moduleSpec struct {
	Tag         Module
	ProductName string
}

// installOrder is the fixed precedence for module installation. Only
// modules present in the requested selection are installed, in this order.
var installOrder = []moduleSpec{
	{ModuleBase, "Cisco AnyConnect Secure Mobility Client"},
	{ModuleGINA, "Cisco AnyConnect Start Before Login Module"},
	{ModuleNAM, "Cisco AnyConnect Network Access Manager"},
	{ModulePosture, "Cisco AnyConnect Posture Module"},
	{ModuleISE, "Cisco AnyConnect ISE Posture Module"},
}

// uninstallOrder is the fixed reverse-dependency removal sequence. The
// whole client is removed regardless of the requested module subset.
var uninstallOrder = []moduleSpec{
	{ModuleGINA, "Cisco AnyConnect Start Before Login Module"},
	{ModuleNAM, "Cisco AnyConnect Network Access Manager"},
	{ModulePosture, "Cisco AnyConnect Posture Module"},
	{ModuleISE, "Cisco AnyConnect ISE Posture Module"},
	{ModuleBase, "Cisco AnyConnect Secure Mobility Client"},
	{ModuleDART, "Cisco AnyConnect Diagnostics and Reporting Tool"},
}

// selectableModules are the tags accepted on the command line.
var selectableModules = map[Module]bool{
	ModuleAll:     true,
	ModuleBase:    true,
	ModuleNAM:     true,
	ModuleWSM:     true,
	ModuleISE:     true,
	ModulePosture: true,
	ModuleGINA:    true,
}

// ModuleSelection is the set of modules requested for deployment.
type ModuleSelection map[Module]bool

// ParseModules parses a module list. "All" selects every installable
// module. An empty list yields the default selection {Base, GINA}.
func ParseModules(names []string) (ModuleSelection, error) {
	sel := make(ModuleSelection)
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		var match Module
		for tag := range selectableModules {
			if strings.EqualFold(string(tag), trimmed) {
				match = tag
				break
			}
		}
		if match == "" {
			return nil, fmt.Errorf("unknown module %q", name)
		}
		sel[match] = true
	}
	if len(sel) == 0 {
		sel[ModuleBase] = true
		sel[ModuleGINA] = true
	}
	if sel[ModuleAll] {
		delete(sel, ModuleAll)
		for _, spec := range installOrder {
			sel[spec.Tag] = true
		}
	}
	return sel, nil
}

// Contains reports whether the module was requested.
func (s ModuleSelection) Contains(m Module) bool { return s[m] }

// Tags returns the selection as a sorted-by-precedence slice for logging.
func (s ModuleSelection) Tags() []string {
	var tags []string
	for _, spec := range installOrder {
		if s[spec.Tag] {
			tags = append(tags, string(spec.Tag))
		}
	}
	if s[ModuleWSM] {
		tags = append(tags, string(ModuleWSM))
	}
	return tags
}
