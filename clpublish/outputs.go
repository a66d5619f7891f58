// Package clpublish projects a topology and its security boundary into the index ordered output
// contract that downstream tiers bind to.
package clpublish

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/crewlinker/clnet/clboundary"
	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Keys of the flat output contract, in the order they are exported.
const (
	KeyVPCID                 = "VpcId"
	KeyVPCCIDR               = "VpcCidr"
	KeyAvailabilityZones     = "AvailabilityZones"
	KeyPublicSubnetIDs       = "PublicSubnetIds"
	KeyPublicSubnetCIDRs     = "PublicSubnetCidrs"
	KeyPrivateSubnetIDs      = "PrivateSubnetIds"
	KeyPrivateSubnetCIDRs    = "PrivateSubnetCidrs"
	KeyNatGatewayIDs         = "NatGatewayIds"
	KeyNatAddressIDs         = "NatAddressIds"
	KeyPublicRouteTableID    = "PublicRouteTableId"
	KeyPrivateRouteTableIDs  = "PrivateRouteTableIds"
	KeyEndpointIDs           = "EndpointIds"
	KeyClientSecurityGroupID = "ClientSecurityGroupId"
	KeyServerSecurityGroupID = "ServerSecurityGroupId"
)

// Keys lists every key of the flat contract in a stable order.
var Keys = []string{
	KeyVPCID, KeyVPCCIDR, KeyAvailabilityZones,
	KeyPublicSubnetIDs, KeyPublicSubnetCIDRs, KeyPrivateSubnetIDs, KeyPrivateSubnetCIDRs,
	KeyNatGatewayIDs, KeyNatAddressIDs, KeyPublicRouteTableID, KeyPrivateRouteTableIDs,
	KeyEndpointIDs, KeyClientSecurityGroupID, KeyServerSecurityGroupID,
}

// ListSeparator joins list values in the flat contract.
const ListSeparator = ","

// SearchSubnetCount is the number of private subnets a search cluster is placed in.
const SearchSubnetCount = 2

// ErrMissingGroup is returned when the boundary lacks the client or server group.
var ErrMissingGroup = errors.New("security boundary has no group with role")

// EndpointOutput identifies a published endpoint.
type EndpointOutput struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Service string `json:"service" yaml:"service"`
	ID      string `json:"id" yaml:"id"`
}

// Outputs is the read-only contract. Every list is ordered by zone index.
type Outputs struct {
	VPCID                 string           `json:"vpc_id" yaml:"vpc_id"`
	VPCCIDR               string           `json:"vpc_cidr" yaml:"vpc_cidr"`
	AvailabilityZones     []string         `json:"availability_zones" yaml:"availability_zones"`
	PublicSubnetIDs       []string         `json:"public_subnet_ids" yaml:"public_subnet_ids"`
	PublicSubnetCIDRs     []string         `json:"public_subnet_cidrs" yaml:"public_subnet_cidrs"`
	PrivateSubnetIDs      []string         `json:"private_subnet_ids" yaml:"private_subnet_ids"`
	PrivateSubnetCIDRs    []string         `json:"private_subnet_cidrs" yaml:"private_subnet_cidrs"`
	NatGatewayIDs         []string         `json:"nat_gateway_ids" yaml:"nat_gateway_ids"`
	NatAddressIDs         []string         `json:"nat_address_ids" yaml:"nat_address_ids"`
	PublicRouteTableID    string           `json:"public_route_table_id" yaml:"public_route_table_id"`
	PrivateRouteTableIDs  []string         `json:"private_route_table_ids" yaml:"private_route_table_ids"`
	Endpoints             []EndpointOutput `json:"endpoints" yaml:"endpoints"`
	ClientSecurityGroupID string           `json:"client_security_group_id" yaml:"client_security_group_id"`
	ServerSecurityGroupID string           `json:"server_security_group_id" yaml:"server_security_group_id"`
}

// RefFunc renders the identifier of an entity. Publishing renders the synthesized ids, a materializer
// can render references to the provisioned resources instead.
type RefFunc func(id clid.ID) string

// Project builds the outputs, rendering every identifier with ref.
func Project(topo *cltopo.Topology, sb *clboundary.SecurityBoundary, ref RefFunc) (*Outputs, error) {
	client, ok := sb.GroupByRole(clboundary.RoleClient)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingGroup, clboundary.RoleClient)
	}

	server, ok := sb.GroupByRole(clboundary.RoleServer)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingGroup, clboundary.RoleServer)
	}

	subnetIDs := func(s cltopo.Subnet, _ int) string { return ref(s.ID) }
	subnetCIDRs := func(s cltopo.Subnet, _ int) string { return s.CIDR.String() }

	return &Outputs{
		VPCID:              ref(topo.VPC.ID),
		VPCCIDR:            topo.VPC.CIDR.String(),
		AvailabilityZones:  lo.Map(topo.Bundles, func(b cltopo.Bundle, _ int) string { return b.AZ }),
		PublicSubnetIDs:    lo.Map(topo.PublicSubnets(), subnetIDs),
		PublicSubnetCIDRs:  lo.Map(topo.PublicSubnets(), subnetCIDRs),
		PrivateSubnetIDs:   lo.Map(topo.PrivateSubnets(), subnetIDs),
		PrivateSubnetCIDRs: lo.Map(topo.PrivateSubnets(), subnetCIDRs),
		NatGatewayIDs:      lo.Map(topo.NatGateways(), func(n cltopo.NatGateway, _ int) string { return ref(n.ID) }),
		NatAddressIDs:      lo.Map(topo.ElasticIPs(), func(e cltopo.ElasticIP, _ int) string { return ref(e.ID) }),
		PublicRouteTableID: ref(topo.PublicRouteTable.ID),
		PrivateRouteTableIDs: lo.Map(topo.PrivateRouteTables(), func(rt cltopo.RouteTable, _ int) string {
			return ref(rt.ID)
		}),
		Endpoints: lo.Map(sb.Endpoints, func(e clboundary.Endpoint, _ int) EndpointOutput {
			return EndpointOutput{Name: e.Name, Type: string(e.Type), Service: e.Service.Name, ID: ref(e.ID)}
		}),
		ClientSecurityGroupID: ref(client.ID),
		ServerSecurityGroupID: ref(server.ID),
	}, nil
}

// Map returns the flat contract, lists are joined with the ListSeparator.
func (o *Outputs) Map() map[string]string {
	join := func(l []string) string { return strings.Join(l, ListSeparator) }

	return map[string]string{
		KeyVPCID:                 o.VPCID,
		KeyVPCCIDR:               o.VPCCIDR,
		KeyAvailabilityZones:     join(o.AvailabilityZones),
		KeyPublicSubnetIDs:       join(o.PublicSubnetIDs),
		KeyPublicSubnetCIDRs:     join(o.PublicSubnetCIDRs),
		KeyPrivateSubnetIDs:      join(o.PrivateSubnetIDs),
		KeyPrivateSubnetCIDRs:    join(o.PrivateSubnetCIDRs),
		KeyNatGatewayIDs:         join(o.NatGatewayIDs),
		KeyNatAddressIDs:         join(o.NatAddressIDs),
		KeyPublicRouteTableID:    o.PublicRouteTableID,
		KeyPrivateRouteTableIDs:  join(o.PrivateRouteTableIDs),
		KeyEndpointIDs:           join(lo.Map(o.Endpoints, func(e EndpointOutput, _ int) string { return e.ID })),
		KeyClientSecurityGroupID: o.ClientSecurityGroupID,
		KeyServerSecurityGroupID: o.ServerSecurityGroupID,
	}
}

// DatabaseSubnetIDs returns every private subnet, for a multi-zone database subnet group.
func (o *Outputs) DatabaseSubnetIDs() []string {
	return append([]string{}, o.PrivateSubnetIDs...)
}

// SearchSubnetIDs returns the private subnets a search cluster is placed in.
func (o *Outputs) SearchSubnetIDs() []string {
	return append([]string{}, o.PrivateSubnetIDs[:min(SearchSubnetCount, len(o.PrivateSubnetIDs))]...)
}

// EncodeYAML renders the outputs as YAML. Unchanged outputs always encode to the same bytes.
func (o *Outputs) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(o); err != nil {
		return nil, fmt.Errorf("failed to encode outputs: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to close encoder: %w", err)
	}

	return buf.Bytes(), nil
}

// Publisher publishes outputs with the synthesized identifiers.
type Publisher struct {
	logs *zap.Logger
}

// NewPublisher inits the publisher.
func NewPublisher(logs *zap.Logger) *Publisher {
	return &Publisher{logs: logs}
}

// Publish projects the topology and boundary.
func (p *Publisher) Publish(topo *cltopo.Topology, sb *clboundary.SecurityBoundary) (*Outputs, error) {
	outs, err := Project(topo, sb, func(id clid.ID) string { return id.String() })
	if err != nil {
		return nil, err
	}

	p.logs.Info("published outputs",
		zap.String("vpc_id", outs.VPCID), zap.Strings("private_subnet_ids", outs.PrivateSubnetIDs))

	return outs, nil
}
