package clplan

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
)

var (
	// ErrDuplicateEntity is returned when entities are not unique.
	ErrDuplicateEntity = errors.New("duplicate entity")
	// ErrUnknownEntity is returned when an edge refers to an entity that doesn't exist.
	ErrUnknownEntity = errors.New("edge refers to unknown entity")
	// ErrCycle is returned when the dependencies can't be ordered.
	ErrCycle = errors.New("dependency cycle")
)

// teardownPhase groups kinds so that endpoints, rules and associations go first, then route tables and
// groups, then gateways, then subnets and finally the vpc.
var teardownPhase = map[cltopo.Kind]int{
	cltopo.KindEndpoint:          0,
	cltopo.KindSecurityGroupRule: 0,
	cltopo.KindAssociation:       0,
	cltopo.KindRouteTable:        1,
	cltopo.KindSecurityGroup:     1,
	cltopo.KindNatGateway:        2,
	cltopo.KindElasticIP:         2,
	cltopo.KindInternetGateway:   2,
	cltopo.KindSubnet:            3,
	cltopo.KindVPC:               4,
}

// Graph holds entities and their dependencies.
type Graph struct {
	ents       []cltopo.Entity
	index      map[clid.ID]int
	deps       map[clid.ID][]clid.ID
	dependents map[clid.ID][]clid.ID
}

// NewGraph inits the graph. An edge from an entity to itself, or to an entity that is not given,
// is an error.
func NewGraph(ents []cltopo.Entity, edges []cltopo.Edge) (*Graph, error) {
	if err := checkUnique(ents); err != nil {
		return nil, err
	}

	g := &Graph{
		ents:       append([]cltopo.Entity{}, ents...),
		index:      make(map[clid.ID]int, len(ents)),
		deps:       map[clid.ID][]clid.ID{},
		dependents: map[clid.ID][]clid.ID{},
	}

	for i, e := range ents {
		g.index[e.ID] = i
	}

	for _, e := range lo.Uniq(edges) {
		if e.From == e.To {
			return nil, fmt.Errorf("%w: %s depends on itself", ErrCycle, e.From)
		}

		for _, id := range []clid.ID{e.From, e.To} {
			if _, ok := g.index[id]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
			}
		}

		g.deps[e.From] = append(g.deps[e.From], e.To)
		g.dependents[e.To] = append(g.dependents[e.To], e.From)
	}

	return g, nil
}

// FromSnapshot inits the graph of a snapshot.
func FromSnapshot(snap Snapshot) (*Graph, error) {
	return NewGraph(snap.Entities, snap.Edges)
}

// CreateOrder returns the entities in layers, every entity comes after all of its dependencies.
// Entities of the same layer can be created concurrently.
func (g *Graph) CreateOrder() ([][]cltopo.Entity, error) {
	return g.layers(g.deps, g.dependents, func(ready []cltopo.Entity) []cltopo.Entity { return ready })
}

// DestroyOrder returns the entities in layers, every entity comes before all of its dependencies.
// Among the entities that may be removed, only those of the earliest teardown phase form a layer.
func (g *Graph) DestroyOrder() ([][]cltopo.Entity, error) {
	return g.layers(g.dependents, g.deps, func(ready []cltopo.Entity) []cltopo.Entity {
		first := lo.MinBy(ready, func(a, b cltopo.Entity) bool { return phaseOf(a) < phaseOf(b) })

		return lo.Filter(ready, func(e cltopo.Entity, _ int) bool { return phaseOf(e) == phaseOf(first) })
	})
}

// layers runs Kahn's algorithm. An entity is ready when everything in blockers[id] was emitted, waiting
// is the reverse of blockers. Pick selects which of the ready entities form the next layer.
func (g *Graph) layers(
	blockers, waiting map[clid.ID][]clid.ID, pick func(ready []cltopo.Entity) []cltopo.Entity,
) (layers [][]cltopo.Entity, err error) {
	pending := make(map[clid.ID]int, len(g.ents))
	for _, e := range g.ents {
		pending[e.ID] = len(blockers[e.ID])
	}

	done := 0
	for done < len(g.ents) {
		ready := lo.Filter(g.ents, func(e cltopo.Entity, _ int) bool { return pending[e.ID] == 0 })
		if len(ready) == 0 {
			stuck := lo.Filter(g.ents, func(e cltopo.Entity, _ int) bool { return pending[e.ID] > 0 })

			return nil, fmt.Errorf("%w between: %s", ErrCycle,
				strings.Join(lo.Map(stuck, func(e cltopo.Entity, _ int) string { return e.Name }), ", "))
		}

		layer := pick(ready)
		for _, e := range layer {
			pending[e.ID] = -1

			for _, w := range waiting[e.ID] {
				pending[w]--
			}
		}

		slices.SortStableFunc(layer, func(a, b cltopo.Entity) int { return g.index[a.ID] - g.index[b.ID] })
		layers = append(layers, layer)
		done += len(layer)
	}

	return layers, nil
}

// Teardown orders the entities that the plan removes, including the previous version of replaced
// entities, using the dependencies recorded in the snapshot.
func Teardown(plan *Plan, snap Snapshot) ([][]cltopo.Entity, error) {
	g, err := FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot graph: %w", err)
	}

	order, err := g.DestroyOrder()
	if err != nil {
		return nil, err
	}

	removed := map[clid.ID]bool{}
	for _, c := range plan.Changes {
		if c.Action == ActionDelete || c.Action == ActionReplace {
			removed[c.Previous.ID] = true
		}
	}

	return lo.Filter(lo.Map(order, func(layer []cltopo.Entity, _ int) []cltopo.Entity {
		return lo.Filter(layer, func(e cltopo.Entity, _ int) bool { return removed[e.ID] })
	}), func(layer []cltopo.Entity, _ int) bool { return len(layer) > 0 }), nil
}

func phaseOf(e cltopo.Entity) int {
	if p, ok := teardownPhase[e.Kind]; ok {
		return p
	}

	return 0
}
