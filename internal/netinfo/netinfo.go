// Package netinfo picks the LAN-reachable address used for the
// cross-device sharing link.
package netinfo

import (
	"net"
	"strings"
)

// virtualNames mark interfaces that are reachable in name only; a VPN or
// container bridge address would produce a share link nobody else on the
// LAN can open.
var virtualNames = []string{"vmnet", "virtual", "wsl", "docker", "pseudo", "veth", "br-", "tun", "tap"}

type candidate struct {
	name    string
	address string
}

// LanIP returns the best-guess LAN IPv4 address: the first address on a
// physically-named interface, falling back to any non-loopback IPv4, then
// to 127.0.0.1.
func LanIP() string {
	candidates := ipv4Candidates()
	for _, c := range candidates {
		if !isVirtual(c.name) {
			return c.address
		}
	}
	if len(candidates) > 0 {
		return candidates[0].address
	}
	return "127.0.0.1"
}

func ipv4Candidates() []candidate {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var res []candidate
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			res = append(res, candidate{name: iface.Name, address: ip.String()})
		}
	}
	return res
}

func isVirtual(name string) bool {
	lowered := strings.ToLower(name)
	for _, v := range virtualNames {
		if strings.Contains(lowered, v) {
			return true
		}
	}
	return false
}
