package device

import (
	"net"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

const (
	chipIDLength = 12

	fallbackIPAddress = "127.0.0.1"
)

// generateChipID returns a 12 hex digit identifier shaped like an ESP32
// eFuse MAC.
func generateChipID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:chipIDLength])
}

// detectIPAddress returns the first non-loopback IPv4 address of the host.
func detectIPAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return fallbackIPAddress
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return fallbackIPAddress
}

// runtimeFreeHeap reports heap memory the Go runtime holds but is not
// using, the closest analogue of ESP.getFreeHeap().
func runtimeFreeHeap() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapIdle - ms.HeapReleased
}
