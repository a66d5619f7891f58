package clprovision

import (
	"context"
	"sync"

	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/clplan"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
)

// Recorder is an engine that materializes nothing but remembers which entities were applied, so a
// snapshot only ever holds the shared entities and the bundles that succeeded.
type Recorder struct {
	ents  []cltopo.Entity
	edges []cltopo.Edge

	mu      sync.Mutex
	applied map[int]bool
}

// NewRecorder inits a recorder for the entities and their edges.
func NewRecorder(ents []cltopo.Entity, edges []cltopo.Edge) *Recorder {
	return &Recorder{ents: ents, edges: edges, applied: map[int]bool{}}
}

// ApplyShared records the entities that belong to no bundle.
func (r *Recorder) ApplyShared(ctx context.Context, _ *cltopo.Topology) error {
	return r.record(ctx, cltopo.SharedIndex)
}

// ApplyBundle records the entities of the bundle.
func (r *Recorder) ApplyBundle(ctx context.Context, _ *cltopo.Topology, bundle cltopo.Bundle) error {
	return r.record(ctx, bundle.Index)
}

func (r *Recorder) record(ctx context.Context, idx int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied[idx] = true

	return nil
}

// Snapshot returns the recorded entities, in their original order, with the edges between them.
func (r *Recorder) Snapshot() clplan.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	ents := lo.Filter(r.ents, func(e cltopo.Entity, _ int) bool { return r.applied[e.Bundle] })
	ids := lo.Associate(ents, func(e cltopo.Entity) (clid.ID, bool) { return e.ID, true })

	return clplan.NewSnapshot(ents, lo.Filter(r.edges, func(e cltopo.Edge, _ int) bool {
		return ids[e.From] && ids[e.To]
	}))
}
