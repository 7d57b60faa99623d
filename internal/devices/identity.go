// Package devices tracks which devices a user has authorized and identifies
// the current one.
package devices

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/mlevitan/clinisync/internal/common"
)

// IdentityProvider yields the fingerprint of the device the process runs on.
//
// The fingerprint is a best-effort hint, not a security boundary: it may
// collide on cloned or virtualized hosts and may change when hardware
// identifiers change. The engine tolerates both — the worst case is a device
// re-registering as new.
type IdentityProvider interface {
	DeviceID() (string, error)
}

// HostIdentity derives a stable 16-hex-char fingerprint from OS, hostname
// and the first hardware address. Falls back to a random id when host
// introspection fails.
type HostIdentity struct{}

func (HostIdentity) DeviceID() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return common.MakeRandHexString(8)
	}

	var mac string
	if ifaces, err := net.Interfaces(); err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
				continue
			}
			mac = iface.HardwareAddr.String()
			break
		}
	}

	sum := sha256.Sum256(fmt.Appendf(nil, "%s_%s_%s", runtime.GOOS, hostname, mac))
	return hex.EncodeToString(sum[:])[:16], nil
}

// HostDisplayName returns a human-readable default name for this host.
func HostDisplayName() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s - %s", runtime.GOOS, hostname)
}

// StaticIdentity is a deterministic IdentityProvider for tests and for
// simulating peer devices.
type StaticIdentity string

func (s StaticIdentity) DeviceID() (string, error) { return string(s), nil }
