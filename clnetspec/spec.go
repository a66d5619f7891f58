// Package clnetspec describes the input of network synthesis and validates it before any
// topology is derived from it.
package clnetspec

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/mitchellh/copystructure"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// NetworkSpec describes the network that should be synthesized. Entries in the cidr lists
// line up with the availability zone of the same index.
type NetworkSpec struct {
	// VPCCIDR is the address block of the whole network.
	VPCCIDR string `json:"vpc_cidr" yaml:"vpc_cidr" mapstructure:"vpc_cidr" env:"VPC_CIDR" validate:"required,prefix4"`
	// AZs lists the availability zones, in order.
	AZs []string `json:"az_list" yaml:"az_list" mapstructure:"az_list" env:"AZ_LIST" validate:"unique,dive,required"`
	// PublicCIDRs holds one public subnet range per zone.
	PublicCIDRs []string `json:"public_cidrs" yaml:"public_cidrs" mapstructure:"public_cidrs" env:"PUBLIC_CIDRS" validate:"dive,required,prefix4"` //nolint:lll
	// PrivateCIDRs holds one private subnet range per zone.
	PrivateCIDRs []string `json:"private_cidrs" yaml:"private_cidrs" mapstructure:"private_cidrs" env:"PRIVATE_CIDRS" validate:"dive,required,prefix4"` //nolint:lll
	// Tags are applied to every entity.
	Tags map[string]string `json:"tags" yaml:"tags" mapstructure:"tags" env:"TAGS" validate:"max=50,dive,keys,required,max=128,endkeys,max=256"` //nolint:lll
	// DomainName is optional, when set it must be a fully qualified domain name.
	DomainName string `json:"domain_name" yaml:"domain_name" mapstructure:"domain_name" env:"DOMAIN_NAME" validate:"omitempty,fqdn"` //nolint:lll
}

// Zones returns the number of zones that can actually be materialized: the shortest of the zone
// and cidr lists.
func (s NetworkSpec) Zones() int {
	return min(len(s.AZs), len(s.PublicCIDRs), len(s.PrivateCIDRs))
}

// TagSet returns the spec's tags as an immutable set.
func (s NetworkSpec) TagSet() TagSet {
	return NewTagSet(s.Tags)
}

// Copy returns a deep copy of the spec so the caller's value is never shared.
func (s NetworkSpec) Copy() NetworkSpec {
	v, err := copystructure.Copy(s)
	if err != nil {
		panic("clnetspec: failed to deep copy: " + err.Error())
	}

	cpy, _ := v.(NetworkSpec)

	return cpy
}

// FromEnv reads the spec from environment variables, e.g: CLNET_VPC_CIDR and CLNET_AZ_LIST. Tags are
// encoded as "Key1:Value1,Key2:Value2".
func FromEnv(o env.Options) (spec NetworkSpec, err error) {
	if o.Prefix == "" {
		o.Prefix = EnvPrefix
	}

	if err := env.ParseWithOptions(&spec, o); err != nil {
		return spec, fmt.Errorf("failed to parse environment: %w", err)
	}

	return spec, nil
}

// EnvPrefix is the default prefix of environment variables that describe the spec.
const EnvPrefix = "CLNET_"

// LoadFile reads a spec from a YAML document. Unknown fields are rejected.
func LoadFile(path string) (spec NetworkSpec, err error) {
	f, err := os.Open(path)
	if err != nil {
		return spec, fmt.Errorf("failed to open spec file: %w", err)
	}

	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(&spec); err != nil {
		return spec, fmt.Errorf("failed to decode spec file %s: %w", path, err)
	}

	return spec, nil
}

// FromContext decodes a spec from an untyped value, such as the value of a CDK context key.
func FromContext(v any) (spec NetworkSpec, err error) {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToSliceHookFunc(","),
		ErrorUnused: true,
		Result:      &spec,
	})
	if err != nil {
		return spec, fmt.Errorf("failed to init decoder: %w", err)
	}

	if err := dec.Decode(v); err != nil {
		return spec, fmt.Errorf("failed to decode spec: %w", err)
	}

	return spec, nil
}
