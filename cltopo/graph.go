package cltopo

import (
	"strconv"

	"github.com/crewlinker/clnet/clid"
)

// Kind names the type of an entity.
type Kind string

// entity kinds, including the ones of the security boundary.
const (
	KindVPC               Kind = "vpc"
	KindInternetGateway   Kind = "internet-gateway"
	KindSubnet            Kind = "subnet"
	KindElasticIP         Kind = "elastic-ip"
	KindNatGateway        Kind = "nat-gateway"
	KindRouteTable        Kind = "route-table"
	KindAssociation       Kind = "route-table-association"
	KindSecurityGroup     Kind = "security-group"
	KindSecurityGroupRule Kind = "security-group-rule"
	KindEndpoint          Kind = "endpoint"
)

// Entity is the flat description of one materialized entity. The ID changes when the entity must
// be replaced, the fingerprint changes when it can be updated in place.
type Entity struct {
	ID          clid.ID `json:"id"`
	Kind        Kind    `json:"kind"`
	Name        string  `json:"name"`
	Bundle      int     `json:"bundle"`
	Fingerprint string  `json:"fingerprint"`
}

// Edge states that From can only be created after To exists, and must be removed before To.
type Edge struct {
	From clid.ID `json:"from"`
	To   clid.ID `json:"to"`
}

// Entities returns every entity of the topology in a stable order: shared entities first, then the
// bundles in zone order.
func (t *Topology) Entities() (ents []Entity) {
	ents = append(ents,
		Entity{ID: t.VPC.ID, Kind: KindVPC, Name: t.VPC.Name, Bundle: SharedIndex,
			Fingerprint: t.VPC.Tags.String()},
		Entity{ID: t.InternetGateway.ID, Kind: KindInternetGateway, Name: t.InternetGateway.Name,
			Bundle: SharedIndex, Fingerprint: t.InternetGateway.Tags.String()},
	)
	ents = append(ents, routeTableEntities(t.PublicRouteTable)...)

	for _, b := range t.Bundles {
		ents = append(ents,
			subnetEntity(b.Public),
			Entity{ID: b.ElasticIP.ID, Kind: KindElasticIP, Name: b.ElasticIP.Name, Bundle: b.Index,
				Fingerprint: b.ElasticIP.Tags.String()},
			Entity{ID: b.NAT.ID, Kind: KindNatGateway, Name: b.NAT.Name, Bundle: b.Index,
				Fingerprint: b.NAT.Tags.String()},
			subnetEntity(b.Private),
		)
		ents = append(ents, routeTableEntities(b.RouteTable)...)
	}

	return ents
}

// Edges returns the dependencies between the entities.
func (t *Topology) Edges() (edges []Edge) {
	vpc, igw := t.VPC.ID, t.InternetGateway.ID
	edges = append(edges, Edge{igw, vpc})
	edges = append(edges, routeTableEdges(t.PublicRouteTable)...)

	for _, b := range t.Bundles {
		edges = append(edges,
			Edge{b.Public.ID, vpc},
			Edge{b.Private.ID, vpc},
			// an address can only be used by a NAT once the vpc is attached to the internet
			Edge{b.ElasticIP.ID, igw},
			Edge{b.NAT.ID, b.Public.ID},
			Edge{b.NAT.ID, b.ElasticIP.ID},
			Edge{b.NAT.ID, igw},
		)
		edges = append(edges, routeTableEdges(b.RouteTable)...)
	}

	return edges
}

func subnetEntity(s Subnet) Entity {
	return Entity{
		ID: s.ID, Kind: KindSubnet, Name: s.Name, Bundle: s.Index,
		Fingerprint: "map-public-ip=" + strconv.FormatBool(s.MapPublicIP) + ";" + s.Tags.String(),
	}
}

// routeTableEntities returns the table and its associations. An association belongs to the bundle of
// its subnet, also for the shared public table.
func routeTableEntities(rt RouteTable) []Entity {
	ents := []Entity{{
		ID: rt.ID, Kind: KindRouteTable, Name: rt.Name, Bundle: rt.Index,
		Fingerprint: rt.DefaultRoute.Destination.String() + "->" + rt.DefaultRoute.Target.String() +
			";" + rt.Tags.String(),
	}}

	for _, a := range rt.Associations {
		ents = append(ents, Entity{ID: a.ID, Kind: KindAssociation, Name: a.Name, Bundle: a.Index})
	}

	return ents
}

func routeTableEdges(rt RouteTable) []Edge {
	edges := []Edge{{rt.ID, rt.VPCID}, {rt.ID, rt.DefaultRoute.Target}}
	for _, a := range rt.Associations {
		edges = append(edges, Edge{a.ID, a.RouteTableID}, Edge{a.ID, a.SubnetID})
	}

	return edges
}
