package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pvelab/provctl/internal/models"
	"github.com/samber/lo"
)

//go:generate mockgen -source catalog.go -destination mocks/resource_provider.go -package mocks
type ResourceProvider interface {
	Storages(ctx context.Context) ([]models.StorageBackend, error)
	Bridges(ctx context.Context, node string) ([]models.NetworkBridge, error)
	VirtualSegments(ctx context.Context) ([]models.VirtualSegment, error)
}

type Catalog struct {
	resources ResourceProvider
}

// Fetch enumerates storage backends cluster-wide and network endpoints
// visible from the given node. Storage enumeration failure is fatal; a
// failure of either network fetch degrades the catalog with a warning.
func (c *Catalog) Fetch(ctx context.Context, node string) (models.Catalog, error) {
	storages, err := c.resources.Storages(ctx)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("failed to list storages: %w", err)
	}

	networks := make([]models.NetworkEndpoint, 0)

	bridges, err := c.resources.Bridges(ctx, node)
	if err != nil {
		log.Printf("Warning: failed to list bridges on %s: %v", node, err)
	} else {
		networks = append(networks, lo.Map(bridges, func(bridge models.NetworkBridge, _ int) models.NetworkEndpoint {
			return models.NetworkEndpoint{
				Kind:   models.BridgeEndpoint,
				Name:   bridge.Name,
				Detail: bridge.Comments,
			}
		})...)
	}

	segments, err := c.resources.VirtualSegments(ctx)
	if err != nil {
		log.Printf("Warning: failed to list SDN virtual segments: %v", err)
	} else {
		networks = append(networks, lo.Map(segments, func(segment models.VirtualSegment, _ int) models.NetworkEndpoint {
			return models.NetworkEndpoint{
				Kind:   models.VirtualSegmentEndpoint,
				Name:   segment.Name,
				Detail: fmt.Sprintf("zone %s, tag %d", segment.Zone, segment.Tag),
			}
		})...)
	}

	return models.Catalog{Storages: storages, Networks: networks}, nil
}

// Format renders the catalog as the flat kind-tagged listing shown to the
// operator before prompting.
func Format(catalog models.Catalog) string {
	builder := &strings.Builder{}

	builder.WriteString("Storage backends:\n")
	for _, storage := range catalog.Storages {
		shared := ""
		if storage.Shared == 1 {
			shared = ", shared"
		}

		fmt.Fprintf(builder, "  %s (%s%s): %s\n", storage.Name, storage.Type, shared, storage.Content)
	}

	builder.WriteString("Network endpoints:\n")
	for _, network := range catalog.Networks {
		if network.Detail == "" {
			fmt.Fprintf(builder, "  [%s] %s\n", network.Kind, network.Name)
			continue
		}

		fmt.Fprintf(builder, "  [%s] %s: %s\n", network.Kind, network.Name, network.Detail)
	}

	return builder.String()
}

func New(resources ResourceProvider) *Catalog {
	return &Catalog{resources: resources}
}
