package clprovision_test

import (
	"context"

	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/clprovision"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
	"go.uber.org/zap"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// failing records everything but the failing bundle.
type failing struct {
	*clprovision.Recorder
	bundle int
}

func (f failing) ApplyBundle(ctx context.Context, topo *cltopo.Topology, b cltopo.Bundle) error {
	if b.Index == f.bundle {
		return clprovision.Fail(b.NAT.Name, apiError("NatGatewayLimitExceeded"))
	}

	return f.Recorder.ApplyBundle(ctx, topo, b)
}

var _ = Describe("recorder", func() {
	var drv *clprovision.Driver

	BeforeEach(func() {
		drv = clprovision.NewDriver(clprovision.Config{}, zap.NewNop())
	})

	It("should record everything that was applied", func(ctx context.Context) {
		topo := synthesize(3)
		rec := clprovision.NewRecorder(topo.Entities(), topo.Edges())
		Expect(rec.Snapshot().IsEmpty()).To(BeTrue())

		rep, err := drv.ApplyBundles(ctx, topo, rec)
		Expect(err).ToNot(HaveOccurred())
		Expect(rep.Succeeded).To(Equal([]int{0, 1, 2}))

		snap := rec.Snapshot()
		Expect(snap.Entities).To(Equal(topo.Entities()))
		Expect(snap.Edges).To(HaveLen(len(topo.Edges())))
	})

	It("should leave out the bundle that failed", func(ctx context.Context) {
		topo := synthesize(3)
		rec := clprovision.NewRecorder(topo.Entities(), topo.Edges())

		rep, err := drv.ApplyBundles(ctx, topo, failing{rec, 1})
		Expect(err).ToNot(HaveOccurred())
		Expect(rep.Succeeded).To(Equal([]int{0, 2}))

		snap := rec.Snapshot()
		Expect(lo.Uniq(lo.Map(snap.Entities, func(e cltopo.Entity, _ int) int { return e.Bundle }))).
			To(ConsistOf(cltopo.SharedIndex, 0, 2))

		recorded := lo.Associate(snap.Entities, func(e cltopo.Entity) (clid.ID, bool) { return e.ID, true })
		for _, e := range snap.Edges {
			Expect(recorded).To(HaveKey(e.From))
			Expect(recorded).To(HaveKey(e.To))
		}
	})
})
