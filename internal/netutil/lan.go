package netutil

import (
	"fmt"
	"net"
)

// LANAddress returns the first non-loopback IPv4 address of this machine,
// or false when none is up.
func LANAddress() (string, bool) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", false
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() {
			continue
		}
		return ip.String(), true
	}
	return "", false
}

// BaseURL builds the reachable server URL, preferring the LAN address so the
// link works for phones on the same network.
func BaseURL(port string) string {
	if ip, ok := LANAddress(); ok {
		return fmt.Sprintf("http://%s:%s", ip, port)
	}
	return fmt.Sprintf("http://localhost:%s", port)
}
