package clboundary

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"

	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
)

// Invariants of a security boundary, they are reported as topology errors.
const (
	InvariantEndpointPlacement = "endpoint-placement"
	InvariantEndpointIngress   = "endpoint-ingress"
	InvariantEndpointEgress    = "endpoint-egress"
	InvariantGatewayBinding    = "gateway-binding"
	InvariantPeerReference     = "peer-reference"
)

// Check verifies the boundary against the topology it was built for. All violations are joined.
func (sb *SecurityBoundary) Check(topo *cltopo.Topology, limit int) error {
	var errs []error

	fail := func(entity, inv, format string, args ...any) {
		errs = append(errs, cltopo.TopologyError{Entity: entity, Invariant: inv, Detail: fmt.Sprintf(format, args...)})
	}

	privIDs := lo.Map(topo.PrivateSubnets(), func(s cltopo.Subnet, _ int) clid.ID { return s.ID })
	privCIDRs := lo.Map(topo.PrivateSubnets(), func(s cltopo.Subnet, _ int) netip.Prefix { return s.CIDR })
	rtIDs := lo.Map(topo.PrivateRouteTables(), func(rt cltopo.RouteTable, _ int) clid.ID { return rt.ID })

	for _, ep := range sb.EndpointsOf(EndpointGateway) {
		if !slices.Equal(ep.RouteTableIDs, rtIDs) {
			fail(ep.Name, InvariantGatewayBinding, "must be bound to all %d private route tables", len(rtIDs))
		}
	}

	for _, ep := range sb.EndpointsOf(EndpointInterface) {
		if want := min(limit, len(privIDs)); len(ep.SubnetIDs) != want {
			fail(ep.Name, InvariantEndpointPlacement, "placed in %d subnets instead of %d", len(ep.SubnetIDs), want)
		}

		if outside, _ := lo.Difference(ep.SubnetIDs, privIDs); len(outside) > 0 {
			fail(ep.Name, InvariantEndpointPlacement, "placed in subnets that are not private: %v", outside)
		}

		for _, gid := range ep.SecurityGroupIDs {
			errs = append(errs, sb.checkEndpointGroup(ep, gid, privCIDRs)...)
		}
	}

	for _, r := range sb.Rules {
		if _, ok := sb.Group(r.GroupID); !ok {
			fail(r.Name, InvariantPeerReference, "belongs to unknown group %s", r.GroupID)
		}

		if !r.HasGroupPeer() {
			continue
		}

		if _, ok := sb.Group(r.PeerGroupID); !ok || r.PeerGroupID == r.GroupID {
			fail(r.Name, InvariantPeerReference, "references invalid peer group %s", r.PeerGroupID)
		}
	}

	return errors.Join(errs...)
}

// checkEndpointGroup verifies that an endpoint's group only allows the private cidrs in, on the
// service port, and allows everything out.
func (sb *SecurityBoundary) checkEndpointGroup(ep Endpoint, gid clid.ID, privCIDRs []netip.Prefix) (errs []error) {
	grp, ok := sb.Group(gid)
	if !ok || grp.Role != RoleEndpoint {
		return []error{cltopo.TopologyError{
			Entity: ep.Name, Invariant: InvariantEndpointIngress, Detail: "security group is not an endpoint group",
		}}
	}

	ingress := sb.RulesOf(gid, Ingress)
	for _, r := range ingress {
		if r.HasGroupPeer() || !slices.Contains(privCIDRs, r.PeerCIDR) ||
			r.Protocol != ProtocolTCP || r.FromPort != ep.Service.Port || r.ToPort != ep.Service.Port {
			errs = append(errs, cltopo.TopologyError{
				Entity: r.Name, Invariant: InvariantEndpointIngress,
				Detail: fmt.Sprintf("allows %s %d-%d from %s", r.Protocol, r.FromPort, r.ToPort, r.Peer()),
			})
		}
	}

	if len(ingress) != len(privCIDRs) {
		errs = append(errs, cltopo.TopologyError{
			Entity: grp.Name, Invariant: InvariantEndpointIngress,
			Detail: fmt.Sprintf("has %d ingress rules for %d private subnets", len(ingress), len(privCIDRs)),
		})
	}

	egress := sb.RulesOf(gid, Egress)
	if len(egress) != 1 || egress[0].Protocol != ProtocolAll || egress[0].PeerCIDR != AnyIPv4 {
		errs = append(errs, cltopo.TopologyError{
			Entity: grp.Name, Invariant: InvariantEndpointEgress, Detail: "must allow all outbound traffic",
		})
	}

	return errs
}
