package provisioner

import "regexp"

const (
	MACNotGenerated = "not generated"
	MACReadError    = "read error"
)

var hwAddrPattern = regexp.MustCompile(`(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}`)

// ExtractMAC pulls the hardware address out of a network device descriptor
// string such as "virtio=BC:24:11:D2:63:7E,bridge=vmbr0". The descriptor is
// an informal key=value list, so the address is matched rather than parsed.
func ExtractMAC(descriptor string) (string, bool) {
	mac := hwAddrPattern.FindString(descriptor)
	if mac == "" {
		return "", false
	}

	return mac, true
}
