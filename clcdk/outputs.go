package clcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clboundary"
	"github.com/crewlinker/clnet/clpublish"
)

// Exports references the published outputs of the network, by output key.
type Exports struct {
	Outputs *clpublish.Outputs

	strong map[string]StrongRef
	weak   map[string]WeakRef
}

// Strong returns the reference to the export of key.
func (e Exports) Strong(key string) (StrongRef, bool) {
	ref, ok := e.strong[key]

	return ref, ok
}

// Weak returns the reference to the parameter of key, only if the config has a parameter path.
func (e Exports) Weak(key string) (WeakRef, bool) {
	ref, ok := e.weak[key]

	return ref, ok
}

// WithOutputs publishes the network as stack outputs, exported as "<prefix>:<key>". Identifiers
// reference the provisioned resources.
func WithOutputs(
	scope constructs.Construct,
	name ScopeName,
	cfg Config,
	prefix string,
	net *Network,
	sb *clboundary.SecurityBoundary,
) (Exports, error) {
	outs, err := clpublish.Project(net.Topology, sb, net.Ref)
	if err != nil {
		return Exports{}, err
	}

	scope = name.ChildScope(scope)
	exp := Exports{Outputs: outs, strong: map[string]StrongRef{}, weak: map[string]WeakRef{}}
	values := outs.Map()

	for _, key := range clpublish.Keys {
		ref := exportRef{name: prefix + ":" + key}

		awscdk.NewCfnOutput(scope, jsii.String(key), &awscdk.CfnOutputProps{
			Value:      jsii.String(values[key]),
			ExportName: jsii.String(ref.name),
		})
		exp.strong[key] = ref

		if path := cfg.ParameterPath(); path != nil {
			exp.weak[key] = WeakExport(scope, key+"Parameter", *path+"/"+key, jsii.String(values[key]))
		}
	}

	if net.HostedZone != nil {
		awscdk.NewCfnOutput(scope, jsii.String("HostedZoneId"), &awscdk.CfnOutputProps{
			Value:      net.HostedZone.AttrId(),
			ExportName: jsii.String(prefix + ":HostedZoneId"),
		})
	}

	return exp, nil
}
