package clcdk_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clboundary"
	"github.com/crewlinker/clnet/clcdk"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"

	. "github.com/onsi/ginkgo/v2"
)

var _ = Describe("security boundary creation", func() {
	var stack awscdk.Stack

	BeforeEach(func() {
		stack = awscdk.NewStack(awscdk.NewApp(nil), jsii.String("Stack1"), nil)
	})

	It("should create the groups, rules and endpoints", func() {
		topo, sb := build(3, "")
		net := clcdk.WithNetwork(stack, "Network", clcdk.NewStagingConfig(), topo)
		clcdk.WithSecurityBoundary(stack, "Boundary", net, sb)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroup"), jsii.Number(3))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroupIngress"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroupEgress"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::VPCEndpoint"), jsii.Number(2))

		client, _ := sb.GroupByRole(clboundary.RoleClient)
		server, _ := sb.GroupByRole(clboundary.RoleServer)

		tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]any{
			"IpProtocol": jsii.String("tcp"),
			"FromPort":   jsii.Number(5432),
			"ToPort":     jsii.Number(5432),
			"GroupId":    map[string]any{"Fn::GetAtt": []string{logicalID(stack, net, server.ID), "GroupId"}},
			"SourceSecurityGroupId": map[string]any{"Fn::GetAtt": []string{
				logicalID(stack, net, client.ID), "GroupId",
			}},
		})

		tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupEgress"), map[string]any{
			"GroupId": map[string]any{"Fn::GetAtt": []string{logicalID(stack, net, client.ID), "GroupId"}},
			"DestinationSecurityGroupId": map[string]any{"Fn::GetAtt": []string{
				logicalID(stack, net, server.ID), "GroupId",
			}},
		})
	})

	It("should bind the gateway endpoint to every private route table", func() {
		topo, sb := build(3, "")
		net := clcdk.WithNetwork(stack, "Network", clcdk.NewStagingConfig(), topo)
		clcdk.WithSecurityBoundary(stack, "Boundary", net, sb)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.HasResourceProperties(jsii.String("AWS::EC2::VPCEndpoint"), map[string]any{
			"VpcEndpointType": jsii.String("Gateway"),
			"RouteTableIds": lo.Map(topo.PrivateRouteTables(), func(rt cltopo.RouteTable, _ int) map[string]any {
				return map[string]any{"Ref": logicalID(stack, net, rt.ID)}
			}),
		})
	})

	It("should place the interface endpoint in the capped private subnets", func() {
		topo, sb := build(3, "")
		net := clcdk.WithNetwork(stack, "Network", clcdk.NewStagingConfig(), topo)
		clcdk.WithSecurityBoundary(stack, "Boundary", net, sb)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.HasResourceProperties(jsii.String("AWS::EC2::VPCEndpoint"), map[string]any{
			"VpcEndpointType":   jsii.String("Interface"),
			"PrivateDnsEnabled": jsii.Bool(true),
			"SubnetIds": []map[string]any{
				{"Ref": logicalID(stack, net, topo.Bundles[0].Private.ID)},
				{"Ref": logicalID(stack, net, topo.Bundles[1].Private.ID)},
			},
			"ServiceName": map[string]any{"Fn::Join": []any{"", []any{
				"com.amazonaws.", map[string]any{"Ref": "AWS::Region"}, ".secretsmanager",
			}}},
		})

		tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroup"), map[string]any{
			"SecurityGroupIngress": []map[string]any{
				{"IpProtocol": "tcp", "CidrIp": "10.0.10.0/24", "FromPort": 443, "ToPort": 443},
				{"IpProtocol": "tcp", "CidrIp": "10.0.20.0/24", "FromPort": 443, "ToPort": 443},
				{"IpProtocol": "tcp", "CidrIp": "10.0.30.0/24", "FromPort": 443, "ToPort": 443},
			},
		})
	})

	It("should disallow all egress of a group without egress rules", func() {
		topo, sb := build(2, "")
		server, _ := sb.GroupByRole(clboundary.RoleServer)
		sb.Rules = lo.Filter(sb.Rules, func(r clboundary.Rule, _ int) bool {
			return r.GroupID != server.ID || r.Direction != clboundary.Egress
		})

		net := clcdk.WithNetwork(stack, "Network", clcdk.NewStagingConfig(), topo)
		clcdk.WithSecurityBoundary(stack, "Boundary", net, sb)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroup"), map[string]any{
			"SecurityGroupEgress": []map[string]any{{
				"CidrIp":      "255.255.255.255/32",
				"IpProtocol":  "icmp",
				"FromPort":    252,
				"ToPort":      86,
				"Description": "Disallow all traffic",
			}},
		})
	})
})
