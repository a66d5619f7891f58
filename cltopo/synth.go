package cltopo

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/clnetspec"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// identifier prefixes of the topology entities.
const (
	PrefixVPC         = "vpcn"
	PrefixGateway     = "igwy"
	PrefixSubnet      = "subn"
	PrefixElasticIP   = "eipa"
	PrefixNatGateway  = "natg"
	PrefixRouteTable  = "rtbl"
	PrefixAssociation = "rtba"
)

// SharedIndex is the bundle index of entities that are shared by all zones.
const SharedIndex = -1

// Synthesizer derives topologies from network specs. It holds no state between calls.
type Synthesizer struct {
	logs *zap.Logger
}

// NewSynthesizer inits the synthesizer.
func NewSynthesizer(logs *zap.Logger) *Synthesizer {
	return &Synthesizer{logs: logs}
}

// Synthesize derives the topology. The spec is expected to be validated, when it is not only the
// shortest of the zone and cidr lists is materialized and fewer than two zones is an error.
func (s *Synthesizer) Synthesize(spec clnetspec.NetworkSpec) (*Topology, error) {
	k := spec.Zones()
	if k < clnetspec.MinZones {
		return nil, TopologyError{
			Entity: "topology", Invariant: InvariantHighAvailability,
			Detail: fmt.Sprintf("%d zone(s) can be materialized, at least %d are required", k, clnetspec.MinZones),
		}
	}

	vpcCIDR, err := parsePrefix("vpc", spec.VPCCIDR)
	if err != nil {
		return nil, err
	}

	pubs, err := parsePrefixes("public subnet", spec.PublicCIDRs[:k])
	if err != nil {
		return nil, err
	}

	privs, err := parsePrefixes("private subnet", spec.PrivateCIDRs[:k])
	if err != nil {
		return nil, err
	}

	tags := spec.TagSet()
	vpc := newVPC(vpcCIDR, tags)
	igw := newInternetGateway(vpc, tags)

	bundles := lo.Map(lo.Range(k), func(idx int, _ int) Bundle {
		return newBundle(vpc, igw, idx, spec.AZs[idx], pubs[idx], privs[idx], tags)
	})

	topo := &Topology{
		VPC:             vpc,
		InternetGateway: igw,
		PublicRouteTable: newPublicRouteTable(vpc, igw,
			lo.Map(bundles, func(b Bundle, _ int) Subnet { return b.Public }), tags),
		Bundles:    bundles,
		Tags:       tags,
		DomainName: spec.DomainName,
	}

	if err := topo.Check(); err != nil {
		return nil, fmt.Errorf("synthesized topology failed its own checks: %w", err)
	}

	if k < len(spec.AZs) {
		s.logs.Warn("not all zones materialized, cidr lists are shorter than the zone list",
			zap.Int("zones", len(spec.AZs)), zap.Int("materialized", k))
	}

	s.logs.Info("synthesized topology",
		zap.Stringer("vpc", vpc.ID), zap.Int("zones", k), zap.Int("entities", len(topo.Entities())))

	return topo, nil
}

// parsePrefix parses a cidr. The masked prefix is used so identifiers never depend on host bits.
func parsePrefix(entity, s string) (netip.Prefix, error) {
	pfx, err := netip.ParsePrefix(s)
	if err != nil || !pfx.Addr().Is4() {
		return pfx, TopologyError{
			Entity: entity, Invariant: InvariantWellFormed,
			Detail: fmt.Sprintf("%q is not an IPv4 cidr", s),
		}
	}

	return pfx.Masked(), nil
}

// parsePrefixes parses a list of cidrs.
func parsePrefixes(entity string, list []string) ([]netip.Prefix, error) {
	pfxs := make([]netip.Prefix, 0, len(list))

	for i, s := range list {
		pfx, err := parsePrefix(entity+" "+strconv.Itoa(i), s)
		if err != nil {
			return nil, err
		}

		pfxs = append(pfxs, pfx)
	}

	return pfxs, nil
}

func newVPC(cidr netip.Prefix, tags clnetspec.TagSet) VPC {
	return VPC{
		ID:   clid.Derive(PrefixVPC, "vpc", cidr.String()),
		Name: "Vpc",
		CIDR: cidr,
		Tags: tags.With("Name", "Vpc"),
	}
}

func newInternetGateway(vpc VPC, tags clnetspec.TagSet) InternetGateway {
	return InternetGateway{
		ID:    clid.Derive(PrefixGateway, vpc.ID.String(), "internet-gateway"),
		Name:  "InternetGateway",
		VPCID: vpc.ID,
		Tags:  tags.With("Name", "InternetGateway"),
	}
}

// bundleKey holds every field whose change replaces the zone's bundle as a whole.
func bundleKey(vpc VPC, idx int, az string, pub, priv netip.Prefix) string {
	return clid.Derive("bndl", vpc.ID.String(), strconv.Itoa(idx), az, pub.String(), priv.String()).String()
}

// newBundle constructs the entities of one zone. Construction order follows the data: the NAT needs
// the public subnet, its address and the gateway, the route table needs the NAT.
func newBundle(
	vpc VPC, igw InternetGateway, idx int, az string, pub, priv netip.Prefix, tags clnetspec.TagSet,
) Bundle {
	key := bundleKey(vpc, idx, az, pub, priv)
	public := newSubnet(vpc, key, TierPublic, idx, az, pub, tags)
	eip := newElasticIP(key, idx, tags)
	nat := newNatGateway(key, igw, public, eip, tags)
	private := newSubnet(vpc, key, TierPrivate, idx, az, priv, tags)

	return Bundle{
		Index:      idx,
		AZ:         az,
		Key:        key,
		Public:     public,
		ElasticIP:  eip,
		NAT:        nat,
		Private:    private,
		RouteTable: newPrivateRouteTable(vpc, key, nat, private, tags),
	}
}

func newSubnet(
	vpc VPC, key string, tier Tier, idx int, az string, cidr netip.Prefix, tags clnetspec.TagSet,
) Subnet {
	name := fmt.Sprintf("%sSubnet%d", tierName(tier), idx)

	return Subnet{
		ID:          clid.Derive(PrefixSubnet, key, string(tier)),
		Name:        name,
		Index:       idx,
		Tier:        tier,
		CIDR:        cidr,
		AZ:          az,
		MapPublicIP: tier == TierPublic,
		VPCID:       vpc.ID,
		Tags:        tags.With("Name", name),
	}
}

func newElasticIP(key string, idx int, tags clnetspec.TagSet) ElasticIP {
	name := fmt.Sprintf("NatEip%d", idx)

	return ElasticIP{
		ID:    clid.Derive(PrefixElasticIP, key),
		Name:  name,
		Index: idx,
		Tags:  tags.With("Name", name),
	}
}

// newNatGateway places the NAT in the public subnet it is given, which is always the one of its own zone.
func newNatGateway(key string, igw InternetGateway, public Subnet, eip ElasticIP, tags clnetspec.TagSet) NatGateway {
	name := fmt.Sprintf("NatGateway%d", public.Index)

	return NatGateway{
		ID:           clid.Derive(PrefixNatGateway, key),
		Name:         name,
		Index:        public.Index,
		AZ:           public.AZ,
		SubnetID:     public.ID,
		AllocationID: eip.ID,
		GatewayID:    igw.ID,
		Tags:         tags.With("Name", name),
	}
}

func newPublicRouteTable(vpc VPC, igw InternetGateway, publics []Subnet, tags clnetspec.TagSet) RouteTable {
	id := clid.Derive(PrefixRouteTable, vpc.ID.String(), "public")

	return RouteTable{
		ID:    id,
		Name:  "PublicRouteTable",
		Tier:  TierPublic,
		Index: SharedIndex,
		VPCID: vpc.ID,
		DefaultRoute: Route{
			Destination: DefaultDestination,
			TargetKind:  TargetInternetGateway,
			Target:      igw.ID,
		},
		Associations: lo.Map(publics, func(s Subnet, _ int) Association {
			return newAssociation(id, s)
		}),
		Tags: tags.With("Name", "PublicRouteTable"),
	}
}

// newPrivateRouteTable routes the private subnet only through the NAT of the same zone.
func newPrivateRouteTable(vpc VPC, key string, nat NatGateway, private Subnet, tags clnetspec.TagSet) RouteTable {
	id := clid.Derive(PrefixRouteTable, key, "private")
	name := fmt.Sprintf("PrivateRouteTable%d", private.Index)

	return RouteTable{
		ID:    id,
		Name:  name,
		Tier:  TierPrivate,
		Index: private.Index,
		VPCID: vpc.ID,
		DefaultRoute: Route{
			Destination: DefaultDestination,
			TargetKind:  TargetNatGateway,
			Target:      nat.ID,
		},
		Associations: []Association{newAssociation(id, private)},
		Tags:         tags.With("Name", name),
	}
}

func newAssociation(rtID clid.ID, subnet Subnet) Association {
	return Association{
		ID:           clid.Derive(PrefixAssociation, rtID.String(), subnet.ID.String()),
		Name:         subnet.Name + "RouteTableAssociation",
		Index:        subnet.Index,
		RouteTableID: rtID,
		SubnetID:     subnet.ID,
	}
}

func tierName(t Tier) string {
	if t == TierPublic {
		return "Public"
	}

	return "Private"
}
