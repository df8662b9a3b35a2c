package device

import (
	"net"
	"os"
	"runtime"

	"anjungan-print-agent/internal/models"
)

// Interface names that usually carry the kiosk's real uplink; their MAC is
// preferred as the primary identity.
var priorityInterfaces = map[string]bool{"en0": true, "eth0": true}

// Info collects the kiosk's hardware identity: all usable MACs, a primary
// MAC, the first non-loopback IPv4, and the hostname.
func Info() models.DeviceInfo {
	info := models.DeviceInfo{
		OS:      runtime.GOOS,
		Version: models.AgentVersion,
		MACs:    []string{},
	}

	if host, err := os.Hostname(); err == nil {
		info.Hostname = host
	}

	interfaces, err := net.Interfaces()
	if err != nil {
		return info
	}

	seen := make(map[string]bool)
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		mac := iface.HardwareAddr.String()
		if mac == "" {
			continue
		}

		if !seen[mac] {
			seen[mac] = true
			info.MACs = append(info.MACs, mac)
		}

		if info.MAC == "" || priorityInterfaces[iface.Name] {
			info.MAC = mac
		}

		if info.IP == "" {
			addrs, _ := iface.Addrs()
			for _, addr := range addrs {
				if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
					info.IP = ipnet.IP.String()
					break
				}
			}
		}
	}

	return info
}
