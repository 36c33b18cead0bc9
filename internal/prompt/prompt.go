package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/pvelab/provctl/internal/provisioner"
)

// Run collects the VM parameters from the operator. Storage and bridge are
// free-text names; they are not cross-checked against the catalog, the
// cluster rejects invalid ones at creation.
func Run(ctx context.Context) (provisioner.Request, error) {
	var (
		request provisioner.Request
		disk    string
		memory  string
		cores   string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("VM Name").
				Value(&request.Name).
				Validate(notEmpty),
			huh.NewSelect[bool]().
				Title("Operating System").
				Options(
					huh.NewOption("Linux", false),
					huh.NewOption("Windows", true),
				).
				Value(&request.Windows),
		).Title("Virtual Machine"),
		huh.NewGroup(
			huh.NewInput().
				Title("Storage").
				Description("Storage backend name from the catalog").
				Value(&request.Storage).
				Validate(notEmpty),
			huh.NewInput().
				Title("Disk Size (GB)").
				Value(&disk).
				Validate(positiveInt),
			huh.NewInput().
				Title("RAM (GB)").
				Value(&memory).
				Validate(positiveInt),
			huh.NewInput().
				Title("CPU Cores").
				Value(&cores).
				Validate(positiveInt),
			huh.NewInput().
				Title("Network Bridge").
				Description("Bridge or virtual segment name from the catalog").
				Value(&request.Bridge).
				Validate(notEmpty),
		).Title("Resources"),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return provisioner.Request{}, fmt.Errorf("failed to run prompt form: %w", err)
	}

	request.DiskGB, _ = strconv.Atoi(disk)
	request.MemoryGB, _ = strconv.Atoi(memory)
	request.Cores, _ = strconv.Atoi(cores)

	return request, nil
}

func notEmpty(value string) error {
	if value == "" {
		return errors.New("value is required")
	}

	return nil
}

func positiveInt(value string) error {
	number, err := strconv.Atoi(value)
	if err != nil || number <= 0 {
		return errors.New("must be a positive integer")
	}

	return nil
}
