// Package clsynth composes validation, topology synthesis, the security boundary and output publishing
// into a single pipeline.
package clsynth

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/crewlinker/clnet/clboundary"
	"github.com/crewlinker/clnet/clnetspec"
	"github.com/crewlinker/clnet/clplan"
	"github.com/crewlinker/clnet/clpublish"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/crewlinker/clnet/clzap"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Result holds everything derived from a spec.
type Result struct {
	Spec     clnetspec.NetworkSpec
	Topology *cltopo.Topology
	Boundary *clboundary.SecurityBoundary
	Outputs  *clpublish.Outputs
}

// Entities returns the entities of the topology and the boundary.
func (r *Result) Entities() []cltopo.Entity {
	return append(r.Topology.Entities(), r.Boundary.Entities()...)
}

// Edges returns the dependencies between the entities.
func (r *Result) Edges() []cltopo.Edge {
	return append(r.Topology.Edges(), r.Boundary.Edges(r.Topology.VPC.ID)...)
}

// Snapshot records the result, to be stored once it was materialized.
func (r *Result) Snapshot() clplan.Snapshot {
	return clplan.NewSnapshot(r.Entities(), r.Edges())
}

// Plan computes the changes against the snapshot in the store.
func (r *Result) Plan(ctx context.Context, store clplan.Store) (*clplan.Plan, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	plan, err := clplan.Compute(r.Entities(), snap)
	if err != nil {
		return nil, fmt.Errorf("failed to compute plan: %w", err)
	}

	return plan, nil
}

// Pipeline runs the components in dependency order.
type Pipeline struct {
	val  *clnetspec.Validator
	syn  *cltopo.Synthesizer
	bld  *clboundary.Builder
	pub  *clpublish.Publisher
	logs *zap.Logger
}

// New inits the pipeline.
func New(
	val *clnetspec.Validator,
	syn *cltopo.Synthesizer,
	bld *clboundary.Builder,
	pub *clpublish.Publisher,
	logs *zap.Logger,
) *Pipeline {
	return &Pipeline{val: val, syn: syn, bld: bld, pub: pub, logs: logs}
}

// Run validates the spec and derives the topology, its boundary and the outputs. Nothing is derived
// from a spec that fails validation.
func (p *Pipeline) Run(ctx context.Context, spec clnetspec.NetworkSpec) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline cancelled: %w", err)
	}

	spec, err := p.val.Validate(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid network spec: %w", err)
	}

	topo, err := p.syn.Synthesize(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize topology: %w", err)
	}

	sb, err := p.bld.Build(topo)
	if err != nil {
		return nil, fmt.Errorf("failed to build security boundary: %w", err)
	}

	outs, err := p.pub.Publish(topo, sb)
	if err != nil {
		return nil, fmt.Errorf("failed to publish outputs: %w", err)
	}

	res := &Result{Spec: spec, Topology: topo, Boundary: sb, Outputs: outs}

	clzap.Log(ctx, p.logs).Info("ran synthesis pipeline",
		zap.Int("num_zones", topo.Zones()),
		zap.Int("num_entities", len(res.Entities())),
		zap.Int("num_edges", len(res.Edges())))

	return res, nil
}

// ExampleSpec returns the two zone network that is used throughout the tests.
func ExampleSpec() clnetspec.NetworkSpec {
	return clnetspec.NetworkSpec{
		VPCCIDR:      "10.0.0.0/16",
		AZs:          []string{"az-a", "az-b"},
		PublicCIDRs:  []string{"10.0.1.0/24", "10.0.2.0/24"},
		PrivateCIDRs: []string{"10.0.10.0/24", "10.0.20.0/24"},
	}
}

// moduleName for naming conventions.
const moduleName = "clsynth"

// Prod configures the DI for running the pipeline. The spec is read from the environment.
func Prod() fx.Option {
	return fx.Module(moduleName,
		// the incoming logger will be named after the module
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		// the boundary is configured from the environment
		clboundary.Prod(),
		// provide the spec from the environment, env.Options may be supplied in tests
		fx.Provide(fx.Annotate(func(o env.Options) (clnetspec.NetworkSpec, error) {
			return clnetspec.FromEnv(o)
		}, fx.ParamTags(`optional:"true"`))),
		// provide the components and the pipeline
		fx.Provide(clnetspec.NewValidator, cltopo.NewSynthesizer, clpublish.NewPublisher, New),
	)
}

// Test provides the pipeline with the example spec, regardless of the environment.
func Test() fx.Option {
	return fx.Options(Prod(), fx.Replace(ExampleSpec()))
}
