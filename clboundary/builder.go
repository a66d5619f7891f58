package clboundary

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"unicode"

	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Config configures the boundary builder.
type Config struct {
	// InterfaceServices are reached through interface endpoints in the private subnets.
	InterfaceServices []Service `env:"INTERFACE_SERVICES" envDefault:"secretsmanager:443"`
	// GatewayServices are reached through gateway endpoints on every private route table.
	GatewayServices []string `env:"GATEWAY_SERVICES" envDefault:"s3"`
	// InterfaceSubnetCap bounds the number of private subnets an interface endpoint is deployed into.
	InterfaceSubnetCap int `env:"INTERFACE_SUBNET_CAP" envDefault:"2"`
	// ServerPort is the port that the client group may reach the server group on.
	ServerPort int `env:"SERVER_PORT" envDefault:"5432"`
	// PrivateDNS enables private dns names for interface endpoints.
	PrivateDNS bool `env:"PRIVATE_DNS" envDefault:"true"`
}

// ErrInvalidConfig is returned when the builder is configured incorrectly.
var ErrInvalidConfig = errors.New("invalid boundary configuration")

// check the configuration before anything is built.
func (cfg Config) check() error {
	var errs []error

	if cfg.InterfaceSubnetCap < 1 {
		errs = append(errs, fmt.Errorf("%w: interface subnet cap must be at least 1, got %d",
			ErrInvalidConfig, cfg.InterfaceSubnetCap))
	}

	if cfg.ServerPort < 1 || cfg.ServerPort > maxPortValue {
		errs = append(errs, fmt.Errorf("%w: server port %d is out of range", ErrInvalidConfig, cfg.ServerPort))
	}

	names := append(lo.Map(cfg.InterfaceServices, func(s Service, _ int) string { return s.Name }),
		cfg.GatewayServices...)
	for _, dup := range lo.FindDuplicates(names) {
		errs = append(errs, fmt.Errorf("%w: service %q is configured more than once", ErrInvalidConfig, dup))
	}

	return errors.Join(errs...)
}

// Builder builds security boundaries.
type Builder struct {
	cfg  Config
	logs *zap.Logger
}

// NewBuilder inits the builder.
func NewBuilder(cfg Config, logs *zap.Logger) *Builder {
	return &Builder{cfg: cfg, logs: logs}
}

// Build derives the security boundary of the topology.
func (b *Builder) Build(topo *cltopo.Topology) (*SecurityBoundary, error) {
	if err := b.cfg.check(); err != nil {
		return nil, err
	}

	sb := &SecurityBoundary{}
	vpc := topo.VPC.ID

	for _, svc := range b.cfg.GatewayServices {
		sb.Endpoints = append(sb.Endpoints, b.gatewayEndpoint(topo, svc))
	}

	placement := InterfacePlacement(topo, b.cfg.InterfaceSubnetCap)

	for _, svc := range b.cfg.InterfaceServices {
		grp := newGroup(topo, RoleEndpoint, svc.Name, "endpoint "+svc.Name)

		sb.Groups = append(sb.Groups, grp)
		sb.Rules = append(sb.Rules, lo.Map(topo.PrivateSubnets(), func(s cltopo.Subnet, _ int) Rule {
			return cidrRule(grp, Ingress, ProtocolTCP, svc.Port, s.CIDR,
				grp.Name+"IngressFrom"+s.Name, fmt.Sprintf("%s from %s", svc, s.Name))
		})...)
		sb.Rules = append(sb.Rules, egressAll(grp))
		sb.Endpoints = append(sb.Endpoints, Endpoint{
			ID:               clid.Derive(PrefixEndpoint, vpc.String(), string(EndpointInterface), svc.Name),
			Name:             endpointName(svc.Name),
			Type:             EndpointInterface,
			Service:          svc,
			SubnetIDs:        lo.Map(placement, func(s cltopo.Subnet, _ int) clid.ID { return s.ID }),
			SecurityGroupIDs: []clid.ID{grp.ID},
			PrivateDNS:       b.cfg.PrivateDNS,
			Tags:             topo.Tags.With("Name", endpointName(svc.Name)),
		})
	}

	client := newGroup(topo, RoleClient, "", "clients of the data tier")
	server := newGroup(topo, RoleServer, "", "data tier")
	sb.Groups = append(sb.Groups, client, server)
	sb.Rules = append(sb.Rules, crossRules(client, server, b.cfg.ServerPort)...)
	sb.Rules = append(sb.Rules,
		cidrRule(client, Egress, ProtocolTCP, HTTPSPort, AnyIPv4, client.Name+"EgressHttps", "https to anywhere"),
		egressAll(server))

	if err := sb.Check(topo, b.cfg.InterfaceSubnetCap); err != nil {
		return nil, fmt.Errorf("built boundary failed its own checks: %w", err)
	}

	b.logs.Info("built security boundary",
		zap.Int("groups", len(sb.Groups)), zap.Int("rules", len(sb.Rules)),
		zap.Int("endpoints", len(sb.Endpoints)), zap.Int("interface_subnets", len(placement)))

	return sb, nil
}

// InterfacePlacement returns the private subnets that interface endpoints are deployed into: the first
// min(limit, zones) of them.
func InterfacePlacement(topo *cltopo.Topology, limit int) []cltopo.Subnet {
	privs := topo.PrivateSubnets()

	return privs[:min(limit, len(privs))]
}

// gatewayEndpoint binds the service to every private route table.
func (b *Builder) gatewayEndpoint(topo *cltopo.Topology, svc string) Endpoint {
	name := endpointName(svc)

	return Endpoint{
		ID:      clid.Derive(PrefixEndpoint, topo.VPC.ID.String(), string(EndpointGateway), svc),
		Name:    name,
		Type:    EndpointGateway,
		Service: Service{Name: svc},
		RouteTableIDs: lo.Map(topo.PrivateRouteTables(), func(rt cltopo.RouteTable, _ int) clid.ID {
			return rt.ID
		}),
		Tags: topo.Tags.With("Name", name),
	}
}

// crossRules connects the client and server groups. Each direction is a rule object of its own that
// refers to the other group by id, so neither group depends on the other.
func crossRules(client, server SecurityGroup, port int) []Rule {
	return []Rule{
		groupRule(server, Ingress, port, client, server.Name+"IngressFromClient",
			fmt.Sprintf("port %d from %s", port, client.Name)),
		groupRule(client, Egress, port, server, client.Name+"EgressToServer",
			fmt.Sprintf("port %d to %s", port, server.Name)),
	}
}

func newGroup(topo *cltopo.Topology, role Role, service, description string) SecurityGroup {
	name := pascal(service) + pascal(string(role)) + "SecurityGroup"

	return SecurityGroup{
		ID:          clid.Derive(PrefixSecurityGroup, topo.VPC.ID.String(), string(role), service),
		Name:        name,
		Role:        role,
		Description: description,
		VPCID:       topo.VPC.ID,
		Tags:        topo.Tags.With("Name", name),
	}
}

func egressAll(grp SecurityGroup) Rule {
	return cidrRule(grp, Egress, ProtocolAll, 0, AnyIPv4, grp.Name+"EgressAll", "all outbound traffic")
}

func cidrRule(grp SecurityGroup, dir Direction, proto string, port int, cidr netip.Prefix, name, desc string) Rule {
	return Rule{
		ID:          clid.Derive(PrefixRule, grp.ID.String(), string(dir), proto, strconv.Itoa(port), cidr.String()),
		Name:        name,
		Direction:   dir,
		GroupID:     grp.ID,
		Protocol:    proto,
		FromPort:    port,
		ToPort:      port,
		PeerCIDR:    cidr,
		Description: desc,
	}
}

func groupRule(grp SecurityGroup, dir Direction, port int, peer SecurityGroup, name, desc string) Rule {
	return Rule{
		ID:          clid.Derive(PrefixRule, grp.ID.String(), string(dir), ProtocolTCP, strconv.Itoa(port), peer.ID.String()),
		Name:        name,
		Direction:   dir,
		GroupID:     grp.ID,
		Protocol:    ProtocolTCP,
		FromPort:    port,
		ToPort:      port,
		PeerGroupID: peer.ID,
		Description: desc,
	}
}

func endpointName(service string) string { return pascal(service) + "Endpoint" }

// pascal turns a service name such as "ecr.api" into "EcrApi".
func pascal(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })

	return strings.Join(lo.Map(parts, func(p string, _ int) string {
		return strings.ToUpper(p[:1]) + p[1:]
	}), "")
}
