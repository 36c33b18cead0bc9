package models

const (
	// DiskFormat is the only format ever written into a disk descriptor.
	// Every persistent and security disk must support snapshots.
	DiskFormat = "qcow2"

	OSProfileWindows = "win11"
	OSProfileLinux   = "l26"
)

// VMSpec is the VM under construction. It is assembled in memory and
// submitted as the creation request; afterwards the authoritative copy lives
// on the cluster and is addressed by ID.
type VMSpec struct {
	ID        int
	Name      string
	Pool      string
	Node      string
	OSProfile string
	MemoryMB  int
	Cores     int
	Sockets   int
	CPU       string
	Machine   string
	BIOS      string
	SCSIHW    string
	Agent     bool
	Disk      DiskDescriptor
	Network   NetworkDescriptor
}

type DiskDescriptor struct {
	Storage string
	SizeGB  int
}

type NetworkDescriptor struct {
	Model  string
	Bridge string
}

// SecurityConfig describes the firmware-adjacent security disks applied to an
// existing VM: the EFI variable store and the TPM state volume.
type SecurityConfig struct {
	Storage string
}

type HAEnrollment struct {
	SID     string
	State   string
	Comment string
}

// VMConfig is the subset of the cluster-side VM configuration read back after
// provisioning.
type VMConfig struct {
	Name string `json:"name"`
	Net0 string `json:"net0"`
}

type ProvisionResult struct {
	ID      int    `yaml:"id"`
	Name    string `yaml:"name"`
	Node    string `yaml:"node"`
	Pool    string `yaml:"pool"`
	MAC     string `yaml:"mac"`
	HAState string `yaml:"ha_state"`
}
