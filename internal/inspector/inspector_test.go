package inspector

import (
	"context"
	"errors"
	"testing"

	"github.com/pvelab/provctl/internal/models"
	"github.com/stretchr/testify/assert"
)

type fakeCluster struct {
	nodes     []models.ClusterNode
	records   []models.HAStatusRecord
	nodesErr  error
	statusErr error
}

func (f *fakeCluster) Nodes(ctx context.Context) ([]models.ClusterNode, error) {
	return f.nodes, f.nodesErr
}

func (f *fakeCluster) HAStatus(ctx context.Context) ([]models.HAStatusRecord, error) {
	return f.records, f.statusErr
}

func Test_SelectNode(t *testing.T) {
	testCases := []struct {
		name     string
		nodes    []models.ClusterNode
		records  []models.HAStatusRecord
		expected string
		wantErr  bool
		err      error
	}{
		{
			name: "first active node wins",
			nodes: []models.ClusterNode{
				{Name: "pve1"},
				{Name: "pve2"},
				{Name: "pve3"},
			},
			records: []models.HAStatusRecord{
				{Type: models.TypeLRM, Node: "pve1", Status: "pve1 (idle, Mon Apr 1 10:00:00 2024)"},
				{Type: models.TypeLRM, Node: "pve2", Status: "pve2 (active, Mon Apr 1 10:00:00 2024)"},
				{Type: models.TypeLRM, Node: "pve3", Status: "pve3 (active, Mon Apr 1 10:00:00 2024)"},
			},
			expected: "pve2",
		},
		{
			name: "quorum records are ignored",
			nodes: []models.ClusterNode{
				{Name: "pve1"},
			},
			records: []models.HAStatusRecord{
				{Type: "quorum", Node: "pve1", Status: "OK"},
				{Type: models.TypeLRM, Node: "pve1", Status: "pve1 (active, Mon Apr 1 10:00:00 2024)"},
			},
			expected: "pve1",
		},
		{
			name: "node without lrm record is skipped",
			nodes: []models.ClusterNode{
				{Name: "pve1"},
				{Name: "pve2"},
			},
			records: []models.HAStatusRecord{
				{Type: models.TypeLRM, Node: "pve2", Status: "pve2 (active, Mon Apr 1 10:00:00 2024)"},
			},
			expected: "pve2",
		},
		{
			name: "no active node",
			nodes: []models.ClusterNode{
				{Name: "pve1"},
				{Name: "pve2"},
			},
			records: []models.HAStatusRecord{
				{Type: models.TypeLRM, Node: "pve1", Status: "pve1 (idle, Mon Apr 1 10:00:00 2024)"},
				{Type: models.TypeLRM, Node: "pve2", Status: "pve2 (old timestamp - dead?)"},
			},
			wantErr: true,
			err:     ErrNoActiveNode,
		},
		{
			name:    "empty node list",
			nodes:   []models.ClusterNode{},
			wantErr: true,
			err:     ErrNoActiveNode,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inspector := New(&fakeCluster{nodes: tc.nodes, records: tc.records})

			actual, err := inspector.SelectNode(context.Background())
			if tc.wantErr {
				assert.ErrorIs(t, err, tc.err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, actual)
			}
		})
	}
}

func Test_SelectNode_FetchErrors(t *testing.T) {
	fetchErr := errors.New("connection refused")

	testCases := []struct {
		name    string
		cluster *fakeCluster
	}{
		{
			name:    "node list fetch fails",
			cluster: &fakeCluster{nodesErr: fetchErr},
		},
		{
			name: "ha status fetch fails",
			cluster: &fakeCluster{
				nodes:     []models.ClusterNode{{Name: "pve1"}},
				statusErr: fetchErr,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cluster).SelectNode(context.Background())
			assert.ErrorIs(t, err, fetchErr)
		})
	}
}
