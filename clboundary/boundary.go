// Package clboundary derives the security boundary of a synthesized topology: service endpoints,
// their security groups and the client/server groups that downstream tiers attach to.
package clboundary

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/clnetspec"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
)

// identifier prefixes of the boundary entities.
const (
	PrefixSecurityGroup = "sgrp"
	PrefixRule          = "sgrl"
	PrefixEndpoint      = "vpce"
)

// EndpointType is the type of service endpoint.
type EndpointType string

const (
	// EndpointGateway endpoints are bound to route tables.
	EndpointGateway EndpointType = "Gateway"
	// EndpointInterface endpoints are bound to subnets and security groups.
	EndpointInterface EndpointType = "Interface"
)

// Direction of a security group rule.
type Direction string

const (
	// Ingress rules allow inbound traffic.
	Ingress Direction = "ingress"
	// Egress rules allow outbound traffic.
	Egress Direction = "egress"
)

// Role of a security group.
type Role string

const (
	// RoleEndpoint groups guard a single interface endpoint.
	RoleEndpoint Role = "endpoint"
	// RoleClient is attached by compute that needs to reach the data tier.
	RoleClient Role = "client"
	// RoleServer is attached by data tier collaborators such as the database.
	RoleServer Role = "server"
)

// protocols as they are named in security group rules.
const (
	ProtocolTCP  = "tcp"
	ProtocolAll  = "-1"
	HTTPSPort    = 443
	maxPortValue = 65535
)

// AnyIPv4 is the peer of unrestricted rules.
var AnyIPv4 = netip.MustParsePrefix("0.0.0.0/0")

// Service is a cloud service reached through an endpoint, encoded as "name:port".
type Service struct {
	Name string
	Port int
}

func (s Service) String() string { return s.Name + ":" + strconv.Itoa(s.Port) }

// UnmarshalText implements encoding.TextUnmarshaler so services can be read from the environment.
func (s *Service) UnmarshalText(text []byte) error {
	name, port, ok := strings.Cut(string(text), ":")
	if !ok || name == "" {
		return fmt.Errorf("service %q must be formatted as 'name:port'", text)
	}

	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > maxPortValue {
		return fmt.Errorf("service %q has an invalid port", text)
	}

	s.Name, s.Port = name, p

	return nil
}

// SecurityGroup is a stateful firewall that rules are added to.
type SecurityGroup struct {
	ID          clid.ID
	Name        string
	Role        Role
	Description string
	VPCID       clid.ID
	Tags        clnetspec.TagSet
}

// Rule is a single security group rule. It is an entity of its own so two groups can reference each
// other without either group referencing the other at construction.
type Rule struct {
	ID          clid.ID
	Name        string
	Direction   Direction
	GroupID     clid.ID
	Protocol    string
	FromPort    int
	ToPort      int
	PeerCIDR    netip.Prefix
	PeerGroupID clid.ID
	Description string
}

// HasGroupPeer returns whether the rule's peer is another security group.
func (r Rule) HasGroupPeer() bool { return !r.PeerGroupID.IsZero() }

// Peer returns a printable form of the rule's peer.
func (r Rule) Peer() string {
	if r.HasGroupPeer() {
		return r.PeerGroupID.String()
	}

	return r.PeerCIDR.String()
}

// Endpoint is a private connectivity path to a service.
type Endpoint struct {
	ID               clid.ID
	Name             string
	Type             EndpointType
	Service          Service
	RouteTableIDs    []clid.ID
	SubnetIDs        []clid.ID
	SecurityGroupIDs []clid.ID
	PrivateDNS       bool
	Tags             clnetspec.TagSet
}

// SecurityBoundary holds the groups, rules and endpoints of a topology.
type SecurityBoundary struct {
	Groups    []SecurityGroup
	Rules     []Rule
	Endpoints []Endpoint
}

// Group returns the group with the given id.
func (sb *SecurityBoundary) Group(id clid.ID) (SecurityGroup, bool) {
	return lo.Find(sb.Groups, func(g SecurityGroup) bool { return g.ID == id })
}

// GroupByRole returns the first group with the role.
func (sb *SecurityBoundary) GroupByRole(role Role) (SecurityGroup, bool) {
	return lo.Find(sb.Groups, func(g SecurityGroup) bool { return g.Role == role })
}

// RulesOf returns the rules of a group in the given direction.
func (sb *SecurityBoundary) RulesOf(groupID clid.ID, dir Direction) []Rule {
	return lo.Filter(sb.Rules, func(r Rule, _ int) bool { return r.GroupID == groupID && r.Direction == dir })
}

// EndpointsOf returns the endpoints of the given type.
func (sb *SecurityBoundary) EndpointsOf(typ EndpointType) []Endpoint {
	return lo.Filter(sb.Endpoints, func(e Endpoint, _ int) bool { return e.Type == typ })
}

// Entities returns the boundary entities in a stable order. They are all shared by the zones.
func (sb *SecurityBoundary) Entities() (ents []cltopo.Entity) {
	for _, g := range sb.Groups {
		ents = append(ents, cltopo.Entity{
			ID: g.ID, Kind: cltopo.KindSecurityGroup, Name: g.Name, Bundle: cltopo.SharedIndex,
			Fingerprint: g.Tags.String(),
		})
	}

	for _, r := range sb.Rules {
		ents = append(ents, cltopo.Entity{
			ID: r.ID, Kind: cltopo.KindSecurityGroupRule, Name: r.Name, Bundle: cltopo.SharedIndex,
			Fingerprint: r.Description,
		})
	}

	for _, e := range sb.Endpoints {
		ents = append(ents, cltopo.Entity{
			ID: e.ID, Kind: cltopo.KindEndpoint, Name: e.Name, Bundle: cltopo.SharedIndex,
			Fingerprint: endpointFingerprint(e),
		})
	}

	return ents
}

// Edges returns the dependencies of the boundary entities.
func (sb *SecurityBoundary) Edges(vpcID clid.ID) (edges []cltopo.Edge) {
	for _, g := range sb.Groups {
		edges = append(edges, cltopo.Edge{From: g.ID, To: vpcID})
	}

	for _, r := range sb.Rules {
		edges = append(edges, cltopo.Edge{From: r.ID, To: r.GroupID})
		if r.HasGroupPeer() {
			edges = append(edges, cltopo.Edge{From: r.ID, To: r.PeerGroupID})
		}
	}

	for _, e := range sb.Endpoints {
		edges = append(edges, cltopo.Edge{From: e.ID, To: vpcID})

		for _, id := range lo.Flatten([][]clid.ID{e.RouteTableIDs, e.SubnetIDs, e.SecurityGroupIDs}) {
			edges = append(edges, cltopo.Edge{From: e.ID, To: id})
		}
	}

	return edges
}

// endpointFingerprint holds everything that can change without replacing the endpoint.
func endpointFingerprint(e Endpoint) string {
	ids := func(ids []clid.ID) string {
		return strings.Join(lo.Map(ids, func(id clid.ID, _ int) string { return id.String() }), ",")
	}

	return fmt.Sprintf("rt=%s;sn=%s;sg=%s;dns=%t;%s",
		ids(e.RouteTableIDs), ids(e.SubnetIDs), ids(e.SecurityGroupIDs), e.PrivateDNS, e.Tags)
}
