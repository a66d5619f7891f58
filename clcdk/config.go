package clcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/jsii-runtime-go"
	"github.com/mitchellh/copystructure"
)

// Config describes the providing of resource configuration that is often convenient
// to be shared between branches of the resource tree.
type Config interface {
	Copy(opts ...ConfigOpt) Config

	RemovalPolicy() awscdk.RemovalPolicy
	FlowLogRetention() awslogs.RetentionDays
	EnableDNSSupport() *bool
	EnableDNSHostnames() *bool
	ParameterPath() *string
}

type config struct {
	RemovalPolicyVal      awscdk.RemovalPolicy  `copy:"shallow"`
	FlowLogRetentionVal   awslogs.RetentionDays `copy:"shallow"`
	EnableDNSSupportVal   *bool
	EnableDNSHostnamesVal *bool
	ParameterPathVal      *string
}

// ConfigOpt describes a configuration option.
type ConfigOpt func(*config)

// WithRemovalPolicy config, it applies to the NAT addresses since partners may allowlist them.
func WithRemovalPolicy(v awscdk.RemovalPolicy) ConfigOpt {
	return func(c *config) { c.RemovalPolicyVal = v }
}

// WithFlowLogRetention config, flow logs are only created when this is set.
func WithFlowLogRetention(v awslogs.RetentionDays) ConfigOpt {
	return func(c *config) { c.FlowLogRetentionVal = v }
}

// WithEnableDNSSupport config.
func WithEnableDNSSupport(v *bool) ConfigOpt {
	return func(c *config) { c.EnableDNSSupportVal = v }
}

// WithEnableDNSHostnames config.
func WithEnableDNSHostnames(v *bool) ConfigOpt {
	return func(c *config) { c.EnableDNSHostnamesVal = v }
}

// WithParameterPath config, when set every output is also stored as a SSM parameter under the path.
func WithParameterPath(v *string) ConfigOpt {
	return func(c *config) { c.ParameterPathVal = v }
}

// NewConfig initializes a config implementation given the provided values.
func NewConfig(opts ...ConfigOpt) Config {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}

	return cfg
}

// Copy returns a copy of the config while allowing certain options to be changed.
func (c config) Copy(opts ...ConfigOpt) Config {
	v, err := copystructure.Copy(c)
	if err != nil {
		panic("clcdk: failed to deep copy: " + err.Error())
	}

	cfg, _ := v.(config)
	for _, o := range opts {
		o(&cfg)
	}

	return cfg
}

// RemovalPolicy config.
func (c config) RemovalPolicy() awscdk.RemovalPolicy { return c.RemovalPolicyVal }

// FlowLogRetention config.
func (c config) FlowLogRetention() awslogs.RetentionDays { return c.FlowLogRetentionVal }

// EnableDNSSupport config.
func (c config) EnableDNSSupport() *bool { return c.EnableDNSSupportVal }

// EnableDNSHostnames config.
func (c config) EnableDNSHostnames() *bool { return c.EnableDNSHostnamesVal }

// ParameterPath config.
func (c config) ParameterPath() *string { return c.ParameterPathVal }

// NewStagingConfig provides a config that provides easy-to-use defaults for a staging environment.
func NewStagingConfig() Config {
	return NewConfig(
		WithRemovalPolicy(awscdk.RemovalPolicy_DESTROY),
		WithFlowLogRetention(awslogs.RetentionDays_FIVE_DAYS),
		WithEnableDNSSupport(jsii.Bool(true)),
		WithEnableDNSHostnames(jsii.Bool(true)),
	)
}

// NewProductionConfig keeps the NAT addresses around when the stack is removed and retains flow
// logs for longer.
func NewProductionConfig() Config {
	return NewStagingConfig().Copy(
		WithRemovalPolicy(awscdk.RemovalPolicy_RETAIN),
		WithFlowLogRetention(awslogs.RetentionDays_THREE_MONTHS),
	)
}
