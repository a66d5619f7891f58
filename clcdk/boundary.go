package clcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clboundary"
	"github.com/crewlinker/clnet/clid"
	"github.com/samber/lo"
)

// disallowAll is the egress rule that replaces the implicit allow-all rule of a group that has no
// egress rules of its own.
var disallowAll = awsec2.CfnSecurityGroup_EgressProperty{
	CidrIp:      jsii.String("255.255.255.255/32"),
	IpProtocol:  jsii.String("icmp"),
	FromPort:    jsii.Number(252), //nolint:gomnd
	ToPort:      jsii.Number(86),  //nolint:gomnd
	Description: jsii.String("Disallow all traffic"),
}

// WithSecurityBoundary materializes the security groups, their rules and the vpc endpoints into the
// network. Rules with a cidr peer are inlined in their group, rules between groups are separate
// resources so the groups don't reference each other.
func WithSecurityBoundary(
	scope constructs.Construct,
	name ScopeName,
	net *Network,
	sb *clboundary.SecurityBoundary,
) {
	scope = name.ChildScope(scope)

	for _, grp := range sb.Groups {
		ingress := lo.Filter(sb.RulesOf(grp.ID, clboundary.Ingress), isCIDRRule)
		egress := lo.Filter(sb.RulesOf(grp.ID, clboundary.Egress), isCIDRRule)

		props := &awsec2.CfnSecurityGroupProps{
			GroupDescription: jsii.String(grp.Description),
			VpcId:            jsii.String(net.Ref(net.Topology.VPC.ID)),
			Tags:             cfnTags(grp.Tags),
			SecurityGroupIngress: lo.Map(ingress, func(r clboundary.Rule, _ int) interface{} {
				return &awsec2.CfnSecurityGroup_IngressProperty{
					IpProtocol:  jsii.String(r.Protocol),
					CidrIp:      jsii.String(r.PeerCIDR.String()),
					FromPort:    fromPort(r),
					ToPort:      toPort(r),
					Description: jsii.String(r.Description),
				}
			}),
			SecurityGroupEgress: lo.Map(egress, func(r clboundary.Rule, _ int) interface{} {
				return &awsec2.CfnSecurityGroup_EgressProperty{
					IpProtocol:  jsii.String(r.Protocol),
					CidrIp:      jsii.String(r.PeerCIDR.String()),
					FromPort:    fromPort(r),
					ToPort:      toPort(r),
					Description: jsii.String(r.Description),
				}
			}),
		}

		if len(egress) == 0 {
			props.SecurityGroupEgress = []interface{}{&disallowAll}
		}

		res := awsec2.NewCfnSecurityGroup(scope, jsii.String(grp.Name), props)
		net.add(grp.ID, res, res.AttrGroupId())
	}

	for _, rule := range lo.Filter(sb.Rules, func(r clboundary.Rule, _ int) bool { return r.HasGroupPeer() }) {
		withGroupRule(scope, net, rule)
	}

	for _, ept := range sb.Endpoints {
		ids := func(ids []clid.ID) *[]*string {
			return jsii.Strings(lo.Map(ids, func(id clid.ID, _ int) string { return net.Ref(id) })...)
		}

		props := &awsec2.CfnVPCEndpointProps{
			VpcId: jsii.String(net.Ref(net.Topology.VPC.ID)),
			ServiceName: awscdk.Fn_Join(jsii.String(""), &[]*string{
				jsii.String("com.amazonaws."), awscdk.Aws_REGION(), jsii.String("." + ept.Service.Name),
			}),
			VpcEndpointType: jsii.String(string(ept.Type)),
		}

		switch ept.Type {
		case clboundary.EndpointGateway:
			props.RouteTableIds = ids(ept.RouteTableIDs)
		case clboundary.EndpointInterface:
			props.SubnetIds = ids(ept.SubnetIDs)
			props.SecurityGroupIds = ids(ept.SecurityGroupIDs)
			props.PrivateDnsEnabled = jsii.Bool(ept.PrivateDNS)
		}

		res := awsec2.NewCfnVPCEndpoint(scope, jsii.String(ept.Name), props)
		net.add(ept.ID, res, res.Ref())
	}

	net.dependOn(sb.Edges(net.Topology.VPC.ID))
}

// withGroupRule materializes a rule between two groups.
func withGroupRule(scope constructs.Construct, net *Network, rule clboundary.Rule) {
	switch rule.Direction {
	case clboundary.Ingress:
		res := awsec2.NewCfnSecurityGroupIngress(scope, jsii.String(rule.Name), &awsec2.CfnSecurityGroupIngressProps{
			GroupId:               jsii.String(net.Ref(rule.GroupID)),
			IpProtocol:            jsii.String(rule.Protocol),
			SourceSecurityGroupId: jsii.String(net.Ref(rule.PeerGroupID)),
			FromPort:              fromPort(rule),
			ToPort:                toPort(rule),
			Description:           jsii.String(rule.Description),
		})
		net.add(rule.ID, res, res.Ref())
	case clboundary.Egress:
		res := awsec2.NewCfnSecurityGroupEgress(scope, jsii.String(rule.Name), &awsec2.CfnSecurityGroupEgressProps{
			GroupId:                    jsii.String(net.Ref(rule.GroupID)),
			IpProtocol:                 jsii.String(rule.Protocol),
			DestinationSecurityGroupId: jsii.String(net.Ref(rule.PeerGroupID)),
			FromPort:                   fromPort(rule),
			ToPort:                     toPort(rule),
			Description:                jsii.String(rule.Description),
		})
		net.add(rule.ID, res, res.Ref())
	}
}

func isCIDRRule(r clboundary.Rule, _ int) bool { return !r.HasGroupPeer() }

// fromPort is left out for rules that allow every protocol.
func fromPort(r clboundary.Rule) *float64 {
	if r.Protocol == clboundary.ProtocolAll {
		return nil
	}

	return jsii.Number(float64(r.FromPort))
}

func toPort(r clboundary.Rule) *float64 {
	if r.Protocol == clboundary.ProtocolAll {
		return nil
	}

	return jsii.Number(float64(r.ToPort))
}
