package clcdk

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clnetspec"
	"github.com/crewlinker/clnet/clsynth"
)

// VersionTagKey tags every resource with the version of the synthesizer.
const VersionTagKey = "clnet:version"

// VersionedSpec returns a copy of the spec with the version tag added to its tag set, so every
// synthesized entity carries it.
func VersionedSpec(spec clnetspec.NetworkSpec, version string) clnetspec.NetworkSpec {
	spec = spec.Copy()
	spec.Tags = spec.TagSet().With(VersionTagKey, version).Map()

	return spec
}

// ConfigFromScope picks the production config when the "environment" context is "prod", the staging
// config otherwise.
func ConfigFromScope(s constructs.Construct) Config {
	if env, _ := s.Node().TryGetContext(jsii.String("environment")).(string); env == "prod" {
		return NewProductionConfig()
	}

	return NewStagingConfig()
}

// WithResult materializes the result of the synthesis pipeline into the stack: the network, its
// security boundary and the exported outputs.
func WithResult(
	stack awscdk.Stack,
	conv Conventions,
	cfg Config,
	res *clsynth.Result,
) (*Network, Exports, error) {
	instance := InstanceFromScope(stack)
	cfg = cfg.Copy(WithParameterPath(jsii.String(conv.ParameterPath(instance))))

	net := WithNetwork(stack, "Network", cfg, res.Topology)
	WithSecurityBoundary(stack, "Boundary", net, res.Boundary)

	exp, err := WithOutputs(stack, "Outputs", cfg, conv.ExportPrefix(instance), net, res.Boundary)
	if err != nil {
		return nil, Exports{}, fmt.Errorf("failed to materialize outputs: %w", err)
	}

	return net, exp, nil
}
