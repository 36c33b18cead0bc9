package models

import "strings"

const (
	// TypeLRM is the HA status record type for the per-node local resource manager.
	TypeLRM = "lrm"

	activeMarker = "active"
)

type ClusterNode struct {
	Name   string `json:"node"`
	Status string `json:"status"`
}

type HAStatusRecord struct {
	Type   string `json:"type"`
	Node   string `json:"node"`
	Status string `json:"status"`
}

// IsActiveLRM reports whether the record is the local resource manager of the
// given node and its status text marks it as active.
func (r HAStatusRecord) IsActiveLRM(node string) bool {
	return r.Type == TypeLRM && r.Node == node && strings.Contains(r.Status, activeMarker)
}

type StorageBackend struct {
	Name    string `json:"storage"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Shared  int    `json:"shared"`
}

type NetworkBridge struct {
	Name     string `json:"iface"`
	Type     string `json:"type"`
	Comments string `json:"comments"`
}

type VirtualSegment struct {
	Name  string `json:"vnet"`
	Zone  string `json:"zone"`
	Tag   int    `json:"tag"`
	Alias string `json:"alias"`
}

type EndpointKind string

const (
	BridgeEndpoint         EndpointKind = "Bridge"
	VirtualSegmentEndpoint EndpointKind = "Virtual Segment"
)

// NetworkEndpoint is the flat kind-tagged view of a bridge or a virtual
// segment, as presented to the operator.
type NetworkEndpoint struct {
	Kind   EndpointKind
	Name   string
	Detail string
}

type Catalog struct {
	Storages []StorageBackend
	Networks []NetworkEndpoint
}

type Version struct {
	Version string `json:"version"`
	Release string `json:"release"`
	RepoID  string `json:"repoid"`
}
