package clnetspec

import (
	"errors"
	"fmt"
	"net/netip"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// MinZones is the minimum number of availability zones of a valid network.
const MinZones = 2

// Rule names that are reported by the validator, next to the validator tags (e.g: "prefix4", "unique").
const (
	// TagPrefix only checks that a value parses as an IPv4 prefix, host bits are left to RuleCanonical.
	TagPrefix            = "prefix4"
	RuleHighAvailability = "high-availability"
	RuleMinSubnets       = "min-subnets"
	RuleLengthMatch      = "length-match"
	RuleCanonical        = "canonical"
	RulePrivateRange     = "private-range"
	RuleWithinVPC        = "within-vpc"
	RuleDisjoint         = "disjoint"
)

// privateRanges are the RFC1918 address blocks.
var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

// Violation describes a single rule that the spec does not satisfy.
type Violation struct {
	Field   string
	Rule    string
	Value   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s [%s]", v.Field, v.Message, v.Rule)
}

// ConfigError is returned when the spec is invalid. It holds every violation that was found.
type ConfigError struct {
	Violations []Violation
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid network spec, %d violation(s): %s", len(e.Violations),
		strings.Join(lo.Map(e.Violations, func(v Violation, _ int) string { return v.String() }), "; "))
}

// Has returns whether a violation was reported for the field and rule.
func (e ConfigError) Has(field, rule string) bool {
	return lo.ContainsBy(e.Violations, func(v Violation) bool { return v.Field == field && v.Rule == rule })
}

// Validator checks network specs.
type Validator struct {
	logs *zap.Logger
	val  *validator.Validate
}

// NewValidator inits the validator.
func NewValidator(logs *zap.Logger) *Validator {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")

		return name
	})

	if err := val.RegisterValidation(TagPrefix, isPrefix4); err != nil {
		panic("clnetspec: failed to register validation: " + err.Error())
	}

	return &Validator{logs: logs, val: val}
}

// isPrefix4 reports whether the field parses as an IPv4 prefix.
func isPrefix4(fl validator.FieldLevel) bool {
	pfx, err := netip.ParsePrefix(fl.Field().String())

	return err == nil && pfx.Addr().Is4()
}

// Validate checks the spec against every rule and returns a copy of it when it is valid. All rules
// are evaluated, the returned error is a ConfigError that lists every violation. Nothing is defaulted
// or normalized.
func (v *Validator) Validate(spec NetworkSpec) (NetworkSpec, error) {
	var vs []Violation

	vs = append(vs, v.structural(spec)...)
	vs = append(vs, zoneRules(spec)...)
	vs = append(vs, networkRules(spec)...)

	if len(vs) > 0 {
		v.logs.Info("network spec rejected", zap.Int("violations", len(vs)))

		return NetworkSpec{}, ConfigError{Violations: vs}
	}

	v.logs.Debug("network spec validated", zap.Int("zones", len(spec.AZs)))

	return spec.Copy(), nil
}

// structural runs the tag based rules.
func (v *Validator) structural(spec NetworkSpec) (vs []Violation) {
	err := v.val.Struct(spec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Field: "spec", Rule: "structure", Message: err.Error()}}
	}

	for _, fe := range verrs {
		vs = append(vs, Violation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Value:   fmt.Sprint(fe.Value()),
			Message: structuralMessage(fe),
		})
	}

	return vs
}

// structuralMessage renders a human readable message for a validator field error.
func structuralMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case TagPrefix:
		return fmt.Sprintf("%q is not a valid IPv4 CIDR block", fe.Value())
	case "unique":
		return "must not contain duplicates"
	case "fqdn":
		return fmt.Sprintf("%q is not a fully qualified domain name", fe.Value())
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed on the '" + fe.Tag() + "' rule"
	}
}

// zoneRules checks the zone count and list lengths.
func zoneRules(spec NetworkSpec) (vs []Violation) {
	if len(spec.AZs) < MinZones {
		vs = append(vs, Violation{
			Field: "az_list", Rule: RuleHighAvailability, Value: fmt.Sprint(len(spec.AZs)),
			Message: fmt.Sprintf("requires at least %d availability zones, got %d", MinZones, len(spec.AZs)),
		})
	}

	for _, nl := range subnetLists(spec) {
		field, list := nl.field, nl.cidrs

		if len(list) < MinZones {
			vs = append(vs, Violation{
				Field: field, Rule: RuleMinSubnets, Value: fmt.Sprint(len(list)),
				Message: fmt.Sprintf("requires at least %d subnets, got %d", MinZones, len(list)),
			})
		}

		if len(list) != len(spec.AZs) {
			vs = append(vs, Violation{
				Field: field, Rule: RuleLengthMatch, Value: fmt.Sprint(len(list)),
				Message: fmt.Sprintf("has %d entries but az_list has %d", len(list), len(spec.AZs)),
			})
		}
	}

	return vs
}

// namedList is a list of subnet cidrs with the name of its field.
type namedList struct {
	field string
	cidrs []string
}

// subnetLists returns the subnet lists in a fixed order.
func subnetLists(spec NetworkSpec) []namedList {
	return []namedList{{"public_cidrs", spec.PublicCIDRs}, {"private_cidrs", spec.PrivateCIDRs}}
}

// subnetRange is a parsed subnet cidr with the field it came from.
type subnetRange struct {
	field  string
	prefix netip.Prefix
}

// networkRules checks the address space semantics. Values that fail to parse are skipped since the
// structural rules already report them.
func networkRules(spec NetworkSpec) (vs []Violation) {
	vpc, vpcOK := checkPrefix("vpc_cidr", spec.VPCCIDR, &vs)

	var subnets []subnetRange

	for _, nl := range subnetLists(spec) {
		for i, s := range nl.cidrs {
			name := fmt.Sprintf("%s[%d]", nl.field, i)

			pfx, ok := checkPrefix(name, s, &vs)
			if !ok {
				continue
			}

			if vpcOK && !within(vpc, pfx) {
				vs = append(vs, Violation{
					Field: name, Rule: RuleWithinVPC, Value: s,
					Message: fmt.Sprintf("%s is not contained in vpc_cidr %s", pfx, vpc),
				})
			}

			subnets = append(subnets, subnetRange{field: name, prefix: pfx})
		}
	}

	for i, a := range subnets {
		for _, b := range subnets[i+1:] {
			if a.prefix.Overlaps(b.prefix) {
				vs = append(vs, Violation{
					Field: b.field, Rule: RuleDisjoint, Value: b.prefix.String(),
					Message: fmt.Sprintf("%s overlaps %s (%s)", b.prefix, a.field, a.prefix),
				})
			}
		}
	}

	return vs
}

// checkPrefix parses a cidr and checks that it is canonical and private. It returns false if the
// value can't be used for further checks.
func checkPrefix(field, s string, vs *[]Violation) (netip.Prefix, bool) {
	pfx, err := netip.ParsePrefix(s)
	if err != nil || !pfx.Addr().Is4() {
		return pfx, false
	}

	if pfx.Masked() != pfx {
		*vs = append(*vs, Violation{
			Field: field, Rule: RuleCanonical, Value: s,
			Message: fmt.Sprintf("%s has host bits set, did you mean %s", s, pfx.Masked()),
		})
	}

	pfx = pfx.Masked()
	if !lo.ContainsBy(privateRanges, func(r netip.Prefix) bool { return within(r, pfx) }) {
		*vs = append(*vs, Violation{
			Field: field, Rule: RulePrivateRange, Value: s,
			Message: fmt.Sprintf("%s is not inside a private (RFC1918) address range", s),
		})
	}

	return pfx, true
}

// within returns whether inner is fully contained in outer.
func within(outer, inner netip.Prefix) bool {
	return outer.Bits() <= inner.Bits() && outer.Contains(inner.Addr())
}
