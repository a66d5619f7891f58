// Package cltopo derives a highly-available multi-zone network topology from a network spec. Every
// zone index gets its own bundle of public subnet, NAT gateway, private subnet and private route
// table such that the loss of one zone only affects the private egress of that zone.
package cltopo

import (
	"net/netip"

	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/clnetspec"
	"github.com/samber/lo"
)

// Tier classifies a subnet's internet reachability.
type Tier string

const (
	// TierPublic subnets route to the internet gateway.
	TierPublic Tier = "public"
	// TierPrivate subnets route through the NAT gateway of their zone.
	TierPrivate Tier = "private"
)

// TargetKind describes what a route sends traffic to.
type TargetKind string

const (
	// TargetInternetGateway routes to the vpc's internet gateway.
	TargetInternetGateway TargetKind = "internet-gateway"
	// TargetNatGateway routes to a NAT gateway.
	TargetNatGateway TargetKind = "nat-gateway"
)

// DefaultDestination is the destination of default routes.
var DefaultDestination = netip.MustParsePrefix("0.0.0.0/0")

// VPC is the network itself.
type VPC struct {
	ID   clid.ID
	Name string
	CIDR netip.Prefix
	Tags clnetspec.TagSet
}

// InternetGateway is attached to the vpc and backs the public route table.
type InternetGateway struct {
	ID    clid.ID
	Name  string
	VPCID clid.ID
	Tags  clnetspec.TagSet
}

// Subnet is a zonal address range of the vpc.
type Subnet struct {
	ID          clid.ID
	Name        string
	Index       int
	Tier        Tier
	CIDR        netip.Prefix
	AZ          string
	MapPublicIP bool
	VPCID       clid.ID
	Tags        clnetspec.TagSet
}

// ElasticIP is the stable public address of a NAT gateway.
type ElasticIP struct {
	ID    clid.ID
	Name  string
	Index int
	Tags  clnetspec.TagSet
}

// NatGateway translates outbound traffic of one zone's private subnet.
type NatGateway struct {
	ID           clid.ID
	Name         string
	Index        int
	AZ           string
	SubnetID     clid.ID
	AllocationID clid.ID
	GatewayID    clid.ID
	Tags         clnetspec.TagSet
}

// Route is a route table entry.
type Route struct {
	Destination netip.Prefix
	TargetKind  TargetKind
	Target      clid.ID
}

// Association binds a route table to a subnet.
type Association struct {
	ID           clid.ID
	Name         string
	Index        int
	RouteTableID clid.ID
	SubnetID     clid.ID
}

// RouteTable holds the default route of one or more subnets. The public route table has an index of -1.
type RouteTable struct {
	ID           clid.ID
	Name         string
	Tier         Tier
	Index        int
	VPCID        clid.ID
	DefaultRoute Route
	Associations []Association
	Tags         clnetspec.TagSet
}

// SubnetIDs returns the ids of the associated subnets.
func (rt RouteTable) SubnetIDs() []clid.ID {
	return lo.Map(rt.Associations, func(a Association, _ int) clid.ID { return a.SubnetID })
}

// Bundle holds the entities of one zone index. Bundles don't depend on each other.
type Bundle struct {
	Index      int
	AZ         string
	Key        string
	Public     Subnet
	ElasticIP  ElasticIP
	NAT        NatGateway
	Private    Subnet
	RouteTable RouteTable
}

// Topology is the complete synthesized network.
type Topology struct {
	VPC              VPC
	InternetGateway  InternetGateway
	PublicRouteTable RouteTable
	Bundles          []Bundle
	// Tags are the spec's tags, without a name.
	Tags clnetspec.TagSet
	// DomainName is passed through from the spec, it may be empty.
	DomainName string
}

// Zones returns the number of zone bundles.
func (t *Topology) Zones() int { return len(t.Bundles) }

// PublicSubnets returns the public subnets in zone order.
func (t *Topology) PublicSubnets() []Subnet {
	return lo.Map(t.Bundles, func(b Bundle, _ int) Subnet { return b.Public })
}

// PrivateSubnets returns the private subnets in zone order.
func (t *Topology) PrivateSubnets() []Subnet {
	return lo.Map(t.Bundles, func(b Bundle, _ int) Subnet { return b.Private })
}

// Subnets returns all public subnets followed by all private subnets.
func (t *Topology) Subnets() []Subnet {
	return append(t.PublicSubnets(), t.PrivateSubnets()...)
}

// NatGateways returns the NAT gateways in zone order.
func (t *Topology) NatGateways() []NatGateway {
	return lo.Map(t.Bundles, func(b Bundle, _ int) NatGateway { return b.NAT })
}

// ElasticIPs returns the NAT addresses in zone order.
func (t *Topology) ElasticIPs() []ElasticIP {
	return lo.Map(t.Bundles, func(b Bundle, _ int) ElasticIP { return b.ElasticIP })
}

// PrivateRouteTables returns the private route tables in zone order.
func (t *Topology) PrivateRouteTables() []RouteTable {
	return lo.Map(t.Bundles, func(b Bundle, _ int) RouteTable { return b.RouteTable })
}

// RouteTables returns the public route table followed by the private route tables.
func (t *Topology) RouteTables() []RouteTable {
	return append([]RouteTable{t.PublicRouteTable}, t.PrivateRouteTables()...)
}
