package provisioner

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pvelab/provctl/internal/models"
)

const (
	DesiredHAState = "started"

	enrollmentComment = "provisioned by provctl"
)

//go:generate mockgen -source provisioner.go -destination mocks/vm_provider.go -package mocks
type VMProvider interface {
	NextID(ctx context.Context) (int, error)
	CreateVM(ctx context.Context, node string, form url.Values) error
	UpdateVMConfig(ctx context.Context, node string, vmid int, form url.Values) error
	CreateHAResource(ctx context.Context, enrollment models.HAEnrollment) error
	VMConfig(ctx context.Context, node string, vmid int) (models.VMConfig, error)
}

// Request holds the operator-supplied VM parameters. Storage and bridge names
// are submitted as given; the cluster rejects invalid ones at creation.
type Request struct {
	Name     string
	Windows  bool
	Storage  string
	DiskGB   int
	MemoryGB int
	Cores    int
	Bridge   string
}

type Defaults struct {
	Pool           string `mapstructure:"pool"`
	CPUModel       string `mapstructure:"cpu_model"`
	MachineType    string `mapstructure:"machine_type"`
	Firmware       string `mapstructure:"firmware"`
	SCSIController string `mapstructure:"scsi_controller"`
	NetworkModel   string `mapstructure:"network_model"`
}

type Config struct {
	Client   VMProvider
	Defaults Defaults
}

type Provisioner struct {
	client   VMProvider
	defaults Defaults
}

// Provision runs the ordered creation sequence against the target node:
// allocate an identifier, create the base VM, apply security hardening,
// enroll it in HA management, read back the assigned hardware address.
// Stages are not retried; a rejection after creation leaves the VM in place.
func (p *Provisioner) Provision(ctx context.Context, node string, request Request) (models.ProvisionResult, error) {
	vmid, err := p.client.NextID(ctx)
	if err != nil {
		return models.ProvisionResult{}, fmt.Errorf("failed to allocate vm identifier: %w", err)
	}

	spec := p.buildSpec(vmid, node, request)

	if err := p.client.CreateVM(ctx, node, createForm(spec)); err != nil {
		return models.ProvisionResult{}, fmt.Errorf("failed to create vm %d: %w", vmid, err)
	}

	security := models.SecurityConfig{Storage: request.Storage}
	if err := p.client.UpdateVMConfig(ctx, node, vmid, hardeningForm(security)); err != nil {
		return models.ProvisionResult{}, fmt.Errorf("vm %d was created but security hardening failed, no rollback is performed: %w", vmid, err)
	}

	enrollment := models.HAEnrollment{
		SID:     fmt.Sprintf("vm:%d", vmid),
		State:   DesiredHAState,
		Comment: fmt.Sprintf("%s (%s)", request.Name, enrollmentComment),
	}
	if err := p.client.CreateHAResource(ctx, enrollment); err != nil {
		return models.ProvisionResult{}, fmt.Errorf("vm %d was created and hardened but ha enrollment failed, no rollback is performed: %w", vmid, err)
	}

	result := models.ProvisionResult{
		ID:      vmid,
		Name:    request.Name,
		Node:    node,
		Pool:    spec.Pool,
		MAC:     p.readbackMAC(ctx, node, vmid),
		HAState: DesiredHAState,
	}

	return result, nil
}

func (p *Provisioner) buildSpec(vmid int, node string, request Request) models.VMSpec {
	profile := models.OSProfileLinux
	if request.Windows {
		profile = models.OSProfileWindows
	}

	return models.VMSpec{
		ID:        vmid,
		Name:      request.Name,
		Pool:      p.defaults.Pool,
		Node:      node,
		OSProfile: profile,
		MemoryMB:  request.MemoryGB * 1024,
		Cores:     request.Cores,
		Sockets:   1,
		CPU:       p.defaults.CPUModel,
		Machine:   p.defaults.MachineType,
		BIOS:      p.defaults.Firmware,
		SCSIHW:    p.defaults.SCSIController,
		Agent:     true,
		Disk: models.DiskDescriptor{
			Storage: request.Storage,
			SizeGB:  request.DiskGB,
		},
		Network: models.NetworkDescriptor{
			Model:  p.defaults.NetworkModel,
			Bridge: request.Bridge,
		},
	}
}

// readbackMAC is informational only: any failure downgrades the report to a
// sentinel instead of failing the provisioned VM.
func (p *Provisioner) readbackMAC(ctx context.Context, node string, vmid int) string {
	config, err := p.client.VMConfig(ctx, node, vmid)
	if err != nil {
		return MACReadError
	}

	mac, found := ExtractMAC(config.Net0)
	if !found {
		return MACNotGenerated
	}

	return mac
}

func createForm(spec models.VMSpec) url.Values {
	agent := "0"
	if spec.Agent {
		agent = "1"
	}

	form := url.Values{}
	form.Set("vmid", strconv.Itoa(spec.ID))
	form.Set("name", spec.Name)
	form.Set("pool", spec.Pool)
	form.Set("ostype", spec.OSProfile)
	form.Set("memory", strconv.Itoa(spec.MemoryMB))
	form.Set("cores", strconv.Itoa(spec.Cores))
	form.Set("sockets", strconv.Itoa(spec.Sockets))
	form.Set("cpu", spec.CPU)
	form.Set("machine", spec.Machine)
	form.Set("bios", spec.BIOS)
	form.Set("agent", agent)
	form.Set("ide2", "none,media=cdrom")
	form.Set("scsihw", spec.SCSIHW)
	form.Set("scsi0", fmt.Sprintf("%s:%d,format=%s", spec.Disk.Storage, spec.Disk.SizeGB, models.DiskFormat))
	form.Set("net0", fmt.Sprintf("%s,bridge=%s", spec.Network.Model, spec.Network.Bridge))
	form.Set("rng0", "source=/dev/urandom")

	return form
}

func hardeningForm(security models.SecurityConfig) url.Values {
	form := url.Values{}
	form.Set("efidisk0", fmt.Sprintf("%s:4,efitype=4m,pre-enrolled-keys=1,ms-cert=2023,format=%s", security.Storage, models.DiskFormat))
	form.Set("tpmstate0", fmt.Sprintf("%s:4,version=v2.0,format=%s", security.Storage, models.DiskFormat))

	return form
}

func New(config Config) *Provisioner {
	return &Provisioner{
		client:   config.Client,
		defaults: config.Defaults,
	}
}
