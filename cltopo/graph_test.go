package cltopo_test

import (
	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/cltopo"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var _ = Describe("graph", func() {
	var topo *cltopo.Topology

	BeforeEach(func() {
		var err error
		topo, err = cltopo.NewSynthesizer(zap.NewNop()).Synthesize(zonesSpec(3))
		Expect(err).ToNot(HaveOccurred())
	})

	It("should only have edges between known entities", func() {
		ids := lo.Associate(topo.Entities(), func(e cltopo.Entity) (clid.ID, cltopo.Kind) { return e.ID, e.Kind })
		for _, e := range topo.Edges() {
			Expect(ids).To(HaveKey(e.From))
			Expect(ids).To(HaveKey(e.To))
		}
	})

	It("should make every nat depend on its public subnet and the gateway", func() {
		for _, b := range topo.Bundles {
			Expect(topo.Edges()).To(ContainElements(
				cltopo.Edge{From: b.NAT.ID, To: b.Public.ID},
				cltopo.Edge{From: b.NAT.ID, To: b.ElasticIP.ID},
				cltopo.Edge{From: b.NAT.ID, To: topo.InternetGateway.ID},
				cltopo.Edge{From: b.RouteTable.ID, To: b.NAT.ID},
			))
		}
	})

	It("should not have edges between bundles", func() {
		bundle := lo.Associate(topo.Entities(), func(e cltopo.Entity) (clid.ID, int) { return e.ID, e.Bundle })
		for _, e := range topo.Edges() {
			from, to := bundle[e.From], bundle[e.To]
			if from != cltopo.SharedIndex && to != cltopo.SharedIndex {
				Expect(from).To(Equal(to))
			}
		}
	})

	It("should assign public associations to the bundle of their subnet", func() {
		for i, a := range topo.PublicRouteTable.Associations {
			Expect(a.Index).To(Equal(i))
		}

		shared := lo.Filter(topo.Entities(), func(e cltopo.Entity, _ int) bool { return e.Bundle == cltopo.SharedIndex })
		Expect(lo.Map(shared, func(e cltopo.Entity, _ int) string { return e.Name })).To(Equal([]string{
			"Vpc", "InternetGateway", "PublicRouteTable",
		}))
	})
})
