package cltopo

import (
	"errors"
	"fmt"
	"slices"

	"github.com/crewlinker/clnet/clid"
	"github.com/samber/lo"
)

// Invariants that a topology guarantees. They are named in every TopologyError.
const (
	InvariantHighAvailability = "high-availability"
	InvariantWellFormed       = "well-formed"
	InvariantZoneOrder        = "zone-order"
	InvariantNatPlacement     = "nat-placement"
	InvariantZoneIsolation    = "zone-isolation"
	InvariantPublicRouting    = "public-routing"
	InvariantWithinVPC        = "within-vpc"
	InvariantDisjoint         = "disjoint"
	InvariantUniqueID         = "unique-id"
)

// TopologyError is returned when a topology violates an invariant that synthesis guarantees. It
// indicates a fault in the synthesizer, not in its input.
type TopologyError struct {
	Entity    string
	Invariant string
	Detail    string
}

func (e TopologyError) Error() string {
	return fmt.Sprintf("topology invariant '%s' violated by %s: %s", e.Invariant, e.Entity, e.Detail)
}

// Check verifies every invariant of the topology. All violations are joined into the returned error.
func (t *Topology) Check() error {
	var errs []error

	if len(t.Bundles) < 2 {
		errs = append(errs, TopologyError{
			Entity: "topology", Invariant: InvariantHighAvailability,
			Detail: fmt.Sprintf("has %d zone bundle(s)", len(t.Bundles)),
		})
	}

	for i, b := range t.Bundles {
		errs = append(errs, t.checkBundle(i, b)...)
	}

	for _, az := range lo.FindDuplicates(lo.Map(t.Bundles, func(b Bundle, _ int) string { return b.AZ })) {
		errs = append(errs, TopologyError{
			Entity: "zone " + az, Invariant: InvariantZoneOrder,
			Detail: "is used by more than one bundle",
		})
	}

	errs = append(errs, t.checkPublicRouting()...)
	errs = append(errs, t.checkAddressing()...)
	errs = append(errs, t.checkIDs()...)

	return errors.Join(errs...)
}

// checkBundle verifies that every entity of a bundle belongs to the same zone, and that the private
// route table never points at a NAT of another zone.
func (t *Topology) checkBundle(idx int, b Bundle) (errs []error) {
	entity := fmt.Sprintf("bundle %d", idx)
	fail := func(inv, format string, args ...any) {
		errs = append(errs, TopologyError{Entity: entity, Invariant: inv, Detail: fmt.Sprintf(format, args...)})
	}

	if b.Index != idx || b.Public.Index != idx || b.Private.Index != idx ||
		b.NAT.Index != idx || b.RouteTable.Index != idx {
		fail(InvariantZoneOrder, "entities are not all at index %d", idx)
	}

	if b.Public.AZ != b.AZ || b.Private.AZ != b.AZ || b.NAT.AZ != b.AZ {
		fail(InvariantZoneOrder, "entities are not all in zone %s", b.AZ)
	}

	if b.Public.Tier != TierPublic || b.Private.Tier != TierPrivate {
		fail(InvariantZoneOrder, "subnet tiers are swapped")
	}

	if b.NAT.SubnetID != b.Public.ID {
		fail(InvariantNatPlacement, "nat gateway is not placed in public subnet %s", b.Public.ID)
	}

	if b.NAT.AllocationID != b.ElasticIP.ID {
		fail(InvariantNatPlacement, "nat gateway is not bound to elastic ip %s", b.ElasticIP.ID)
	}

	if b.NAT.GatewayID != t.InternetGateway.ID {
		fail(InvariantNatPlacement, "nat gateway does not depend on the internet gateway")
	}

	route := b.RouteTable.DefaultRoute
	if route.TargetKind != TargetNatGateway || route.Target != b.NAT.ID || route.Destination != DefaultDestination {
		fail(InvariantZoneIsolation, "private route table routes to %s %s instead of nat gateway %s",
			route.TargetKind, route.Target, b.NAT.ID)
	}

	if !slices.Equal(b.RouteTable.SubnetIDs(), []clid.ID{b.Private.ID}) {
		fail(InvariantZoneIsolation, "private route table must be associated with exactly private subnet %s",
			b.Private.ID)
	}

	return errs
}

// checkPublicRouting verifies the shared public route table.
func (t *Topology) checkPublicRouting() (errs []error) {
	rt := t.PublicRouteTable

	route := rt.DefaultRoute
	if route.TargetKind != TargetInternetGateway || route.Target != t.InternetGateway.ID {
		errs = append(errs, TopologyError{
			Entity: rt.Name, Invariant: InvariantPublicRouting,
			Detail: fmt.Sprintf("default route targets %s %s", route.TargetKind, route.Target),
		})
	}

	want := lo.Map(t.PublicSubnets(), func(s Subnet, _ int) clid.ID { return s.ID })
	if !slices.Equal(rt.SubnetIDs(), want) {
		errs = append(errs, TopologyError{
			Entity: rt.Name, Invariant: InvariantPublicRouting,
			Detail: "must be associated with every public subnet, in zone order",
		})
	}

	return errs
}

// checkAddressing verifies containment in the vpc and pairwise disjointness of the subnets.
func (t *Topology) checkAddressing() (errs []error) {
	subnets := t.Subnets()

	for i, a := range subnets {
		if t.VPC.CIDR.Bits() > a.CIDR.Bits() || !t.VPC.CIDR.Contains(a.CIDR.Addr()) {
			errs = append(errs, TopologyError{
				Entity: a.Name, Invariant: InvariantWithinVPC,
				Detail: fmt.Sprintf("%s is not contained in %s", a.CIDR, t.VPC.CIDR),
			})
		}

		for _, b := range subnets[i+1:] {
			if a.CIDR.Overlaps(b.CIDR) {
				errs = append(errs, TopologyError{
					Entity: b.Name, Invariant: InvariantDisjoint,
					Detail: fmt.Sprintf("%s overlaps %s of %s", b.CIDR, a.CIDR, a.Name),
				})
			}
		}
	}

	return errs
}

// checkIDs verifies that no two entities share an identifier.
func (t *Topology) checkIDs() (errs []error) {
	seen := map[clid.ID]string{}

	for _, e := range t.Entities() {
		if other, ok := seen[e.ID]; ok {
			errs = append(errs, TopologyError{
				Entity: e.Name, Invariant: InvariantUniqueID,
				Detail: fmt.Sprintf("id %s is also used by %s", e.ID, other),
			})
		}

		seen[e.ID] = e.Name
	}

	return errs
}
