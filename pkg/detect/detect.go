// pkg/detect/detect.go - installed product detection.
//
// Products are found through the Uninstall registry hives (both native and
// WOW6432Node), with a WMI Win32_Product query as fallback for records the
// hive scan misses. Detection feeds two decisions: reporting the installed
// version before an install, and resolving product codes for msiexec /x.

package detect

import (
	"fmt"
	"strings"

	version "github.com/hashicorp/go-version"
	"github.com/yusufpapurcu/wmi"
	"golang.org/x/sys/windows/registry"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

// Product describes one installed application record.
type Product struct {
	DisplayName string
	Version     string
	ProductCode string // the MSI product code GUID, when the record has one
	Location    string
}

var uninstallHives = []string{
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`,
	`SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
}

// InstalledProducts enumerates the application records in the Uninstall
// registry hives.
func InstalledProducts() ([]Product, error) {
	var products []Product
	var lastErr error

	for _, hive := range uninstallHives {
		key, err := registry.OpenKey(registry.LOCAL_MACHINE, hive, registry.READ)
		if err != nil {
			lastErr = err
			continue
		}
		subkeys, err := key.ReadSubKeyNames(-1)
		key.Close()
		if err != nil {
			lastErr = err
			continue
		}

		for _, sub := range subkeys {
			itemKey, err := registry.OpenKey(registry.LOCAL_MACHINE, hive+`\`+sub, registry.READ)
			if err != nil {
				continue
			}
			name, _, err := itemKey.GetStringValue("DisplayName")
			if err != nil || name == "" {
				itemKey.Close()
				continue
			}
			ver, _, _ := itemKey.GetStringValue("DisplayVersion")
			loc, _, _ := itemKey.GetStringValue("InstallLocation")
			itemKey.Close()

			p := Product{DisplayName: name, Version: ver, Location: loc}
			if isProductCode(sub) {
				p.ProductCode = sub
			}
			products = append(products, p)
		}
	}

	if len(products) == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to scan uninstall registry hives: %w", lastErr)
	}
	return products, nil
}

// Find locates an installed product by display name. When several records
// match, the highest-versioned one wins.
func Find(displayName string) (Product, bool) {
	products, err := InstalledProducts()
	if err != nil {
		logging.Error("Installed product scan failed", "error", err)
		return Product{}, false
	}

	best, found := pickBest(products, displayName)
	if found {
		return best, true
	}
	return findWMI(displayName)
}

// InstalledVersion reports the installed version of a product, if any.
func InstalledVersion(displayName string) (string, bool) {
	p, ok := Find(displayName)
	if !ok {
		return "", false
	}
	return p.Version, true
}

// ProductCode resolves the MSI product code of an installed product.
func ProductCode(displayName string) (string, bool) {
	p, ok := Find(displayName)
	if !ok || p.ProductCode == "" {
		return "", false
	}
	return p.ProductCode, true
}

// pickBest selects the highest-versioned product whose display name
// matches.
func pickBest(products []Product, displayName string) (Product, bool) {
	var best Product
	found := false

	for _, p := range products {
		if !strings.EqualFold(strings.TrimSpace(p.DisplayName), strings.TrimSpace(displayName)) {
			continue
		}
		if !found || IsOlderVersion(best.Version, p.Version) {
			best, found = p, true
		}
	}
	return best, found
}

// IsOlderVersion reports whether local is strictly older than remote.
// Versions that do not parse as semver fall back to a string compare,
// which covers the vendor's date-style build numbers.
func IsOlderVersion(local, remote string) bool {
	vLocal, errLocal := version.NewVersion(local)
	vRemote, errRemote := version.NewVersion(remote)
	if errLocal != nil || errRemote != nil {
		return local < remote
	}
	return vLocal.LessThan(vRemote)
}

// win32Product mirrors the WMI Win32_Product class fields we read.
type win32Product struct {
	Name              string
	Version           string
	IdentifyingNumber string
	InstallLocation   string
}

// findWMI queries Win32_Product for records absent from the registry scan.
// Slow, but only reached when the hive scan found nothing.
func findWMI(displayName string) (Product, bool) {
	var results []win32Product
	query := fmt.Sprintf(
		"SELECT Name, Version, IdentifyingNumber, InstallLocation FROM Win32_Product WHERE Name = '%s'",
		strings.ReplaceAll(displayName, "'", "''"))
	if err := wmi.Query(query, &results); err != nil {
		logging.Debug("WMI product query failed", "product", displayName, "error", err)
		return Product{}, false
	}
	if len(results) == 0 {
		return Product{}, false
	}

	r := results[0]
	return Product{
		DisplayName: r.Name,
		Version:     r.Version,
		ProductCode: r.IdentifyingNumber,
		Location:    r.InstallLocation,
	}, true
}

// isProductCode reports whether a registry subkey name is an MSI product
// code GUID ({XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}).
func isProductCode(s string) bool {
	if len(s) != 38 || s[0] != '{' || s[37] != '}' {
		return false
	}
	for i, c := range s[1:37] {
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return false
			}
		default:
			isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
			if !isHex {
				return false
			}
		}
	}
	return true
}
