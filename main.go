package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pvelab/provctl/config"
	"github.com/pvelab/provctl/internal/catalog"
	"github.com/pvelab/provctl/internal/inspector"
	"github.com/pvelab/provctl/internal/prompt"
	"github.com/pvelab/provctl/internal/provisioner"
	"github.com/pvelab/provctl/internal/proxmox"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configPath string
)

var root = &cobra.Command{
	Use:   "provctl",
	Short: "Provision customer VMs on a Proxmox VE cluster",
}

var version = &cobra.Command{
	Use:   "version",
	Short: "Probe the cluster version and identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		client, _, err := newSession(cmd)
		if err != nil {
			return err
		}

		probe, err := client.Version(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to probe cluster: %w", err)
		}

		fmt.Printf("Proxmox VE %s (release %s)\n", probe.Version, probe.Release)

		return nil
	},
}

var listCatalog = &cobra.Command{
	Use:   "catalog",
	Short: "List storage backends and network endpoints visible from the target node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		client, _, err := newSession(cmd)
		if err != nil {
			return err
		}

		node, err := inspector.New(client).SelectNode(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to select node: %w", err)
		}

		resources, err := catalog.New(client).Fetch(cmd.Context(), node)
		if err != nil {
			return fmt.Errorf("failed to fetch catalog: %w", err)
		}

		fmt.Print(catalog.Format(resources))

		return nil
	},
}

var provision = &cobra.Command{
	Use:   "provision",
	Short: "Provision a hardened, HA-enrolled VM",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		client, cfg, err := newSession(cmd)
		if err != nil {
			return err
		}

		probe, err := client.Version(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to probe cluster: %w", err)
		}

		log.Printf("Connected to Proxmox VE %s", probe.Version)

		node, err := inspector.New(client).SelectNode(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to select node: %w", err)
		}

		log.Printf("Selected target node: %s", node)

		resources, err := catalog.New(client).Fetch(cmd.Context(), node)
		if err != nil {
			return fmt.Errorf("failed to fetch catalog: %w", err)
		}

		fmt.Print(catalog.Format(resources))

		request, err := prompt.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to collect vm parameters: %w", err)
		}

		vms := provisioner.New(provisioner.Config{Client: client, Defaults: cfg.VM})

		result, err := vms.Provision(cmd.Context(), node, request)
		if err != nil {
			return fmt.Errorf("failed to provision vm: %w", err)
		}

		report, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}

		fmt.Print(string(report))

		return nil
	},
}

func newSession(cmd *cobra.Command) (*proxmox.Client, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	client, err := proxmox.New(proxmox.Config{
		Endpoint:    cfg.Endpoint,
		TokenID:     cfg.TokenID,
		TokenSecret: cfg.TokenSecret,
		Username:    cfg.Username,
		Password:    cfg.Password,
		InsecureTLS: cfg.InsecureTLS,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to create proxmox client: %w", err)
	}

	if err := client.Login(cmd.Context()); err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to authenticate: %w", err)
	}

	return client, cfg, nil
}

func init() {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	root.AddCommand(provision, listCatalog, version)
}

func main() {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
