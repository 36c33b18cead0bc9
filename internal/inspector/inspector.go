package inspector

import (
	"context"
	"errors"
	"fmt"

	"github.com/pvelab/provctl/internal/models"
	"github.com/samber/lo"
)

var ErrNoActiveNode = errors.New("no cluster node has an active local resource manager")

//go:generate mockgen -source inspector.go -destination mocks/cluster_provider.go -package mocks
type ClusterProvider interface {
	Nodes(ctx context.Context) ([]models.ClusterNode, error)
	HAStatus(ctx context.Context) ([]models.HAStatusRecord, error)
}

type Inspector struct {
	cluster ClusterProvider
}

// SelectNode returns the first node, in cluster order, whose local resource
// manager reports an active status. The HA status table is fetched once and
// filtered per candidate.
func (i *Inspector) SelectNode(ctx context.Context) (string, error) {
	nodes, err := i.cluster.Nodes(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list nodes: %w", err)
	}

	records, err := i.cluster.HAStatus(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get ha status: %w", err)
	}

	node, found := lo.Find(nodes, func(node models.ClusterNode) bool {
		return lo.ContainsBy(records, func(record models.HAStatusRecord) bool {
			return record.IsActiveLRM(node.Name)
		})
	})
	if !found {
		return "", ErrNoActiveNode
	}

	return node.Name, nil
}

func New(cluster ClusterProvider) *Inspector {
	return &Inspector{cluster: cluster}
}
