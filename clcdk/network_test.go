package clcdk_test

import (
	"encoding/json"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clcdk"
	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("network creation", func() {
	var app awscdk.App
	var stack awscdk.Stack
	var cfg clcdk.Config

	BeforeEach(func() {
		app = awscdk.NewApp(nil)
		cfg = clcdk.NewStagingConfig()
		stack = awscdk.NewStack(app, jsii.String("Stack1"), nil)
	})

	It("should create the two zone network", func() {
		topo, _ := build(2, "")
		clcdk.WithNetwork(stack, "Network", cfg, topo)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::VPC"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::InternetGateway"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::VPCGatewayAttachment"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::Subnet"), jsii.Number(4))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::EIP"), jsii.Number(2))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::NatGateway"), jsii.Number(2))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::RouteTable"), jsii.Number(3))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::Route"), jsii.Number(3))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::SubnetRouteTableAssociation"), jsii.Number(4))
		tmpl.ResourceCountIs(jsii.String("AWS::Route53::HostedZone"), jsii.Number(0))

		tmpl.HasResourceProperties(jsii.String("AWS::EC2::VPC"), map[string]any{
			"CidrBlock":          jsii.String(`10.0.0.0/16`),
			"EnableDnsSupport":   jsii.Bool(true),
			"EnableDnsHostnames": jsii.Bool(true),
			"Tags": []map[string]any{
				{"Key": jsii.String("Name"), "Value": jsii.String("Vpc")},
				{"Key": jsii.String("Project"), "Value": jsii.String("assistant")},
			},
		})

		tmpl.HasResourceProperties(jsii.String("AWS::EC2::Subnet"), map[string]any{
			"CidrBlock":           jsii.String(`10.0.1.0/24`),
			"AvailabilityZone":    jsii.String(`az-0`),
			"MapPublicIpOnLaunch": jsii.Bool(true),
		})

		tmpl.HasResourceProperties(jsii.String("AWS::EC2::Subnet"), map[string]any{
			"CidrBlock":           jsii.String(`10.0.20.0/24`),
			"AvailabilityZone":    jsii.String(`az-1`),
			"MapPublicIpOnLaunch": jsii.Bool(false),
		})
	})

	It("should route each private subnet through the NAT gateway of its own zone", func() {
		topo, _ := build(3, "")
		net := clcdk.WithNetwork(stack, "Network", cfg, topo)

		tmpl := assertions.Template_FromStack(stack, nil)
		for _, b := range topo.Bundles {
			tmpl.HasResourceProperties(jsii.String("AWS::EC2::Route"), map[string]any{
				"DestinationCidrBlock": jsii.String("0.0.0.0/0"),
				"RouteTableId":         map[string]any{"Ref": logicalID(stack, net, b.RouteTable.ID)},
				"NatGatewayId":         map[string]any{"Ref": logicalID(stack, net, b.NAT.ID)},
			})

			tmpl.HasResourceProperties(jsii.String("AWS::EC2::NatGateway"), map[string]any{
				"SubnetId": map[string]any{"Ref": logicalID(stack, net, b.Public.ID)},
				"AllocationId": map[string]any{"Fn::GetAtt": []string{
					logicalID(stack, net, b.ElasticIP.ID), "AllocationId",
				}},
			})

			tmpl.HasResourceProperties(jsii.String("AWS::EC2::SubnetRouteTableAssociation"), map[string]any{
				"RouteTableId": map[string]any{"Ref": logicalID(stack, net, b.RouteTable.ID)},
				"SubnetId":     map[string]any{"Ref": logicalID(stack, net, b.Private.ID)},
			})
		}
	})

	It("should route the public subnets to the attached internet gateway", func() {
		topo, _ := build(2, "")
		net := clcdk.WithNetwork(stack, "Network", cfg, topo)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.HasResource(jsii.String("AWS::EC2::Route"), map[string]any{
			"Properties": map[string]any{
				"RouteTableId": map[string]any{"Ref": logicalID(stack, net, topo.PublicRouteTable.ID)},
				"GatewayId":    map[string]any{"Ref": logicalID(stack, net, topo.InternetGateway.ID)},
			},
			"DependsOn": assertions.Match_ArrayWith(&[]any{*stack.GetLogicalId(net.Attachment)}),
		})

		for _, sn := range topo.PublicSubnets() {
			tmpl.HasResourceProperties(jsii.String("AWS::EC2::SubnetRouteTableAssociation"), map[string]any{
				"RouteTableId": map[string]any{"Ref": logicalID(stack, net, topo.PublicRouteTable.ID)},
				"SubnetId":     map[string]any{"Ref": logicalID(stack, net, sn.ID)},
			})
		}

		Expect(net.Ref(topo.VPC.ID)).ToNot(BeEmpty())
		Expect(func() { net.Ref(clid.Derive(cltopo.PrefixVPC, "unknown")) }).To(Panic())
	})

	It("should apply the removal policy to the NAT addresses", func() {
		topo, _ := build(2, "")
		clcdk.WithNetwork(stack, "Network", clcdk.NewProductionConfig(), topo)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.AllResources(jsii.String("AWS::EC2::EIP"), map[string]any{
			"DeletionPolicy":      jsii.String("Retain"),
			"UpdateReplacePolicy": jsii.String("Retain"),
		})
	})

	It("should create flow logs only when retention is configured", func() {
		topo, _ := build(2, "")
		clcdk.WithNetwork(stack, "Network", cfg, topo)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::FlowLog"), jsii.Number(1))
		tmpl.HasResourceProperties(jsii.String("AWS::EC2::FlowLog"), map[string]any{
			"ResourceType": jsii.String("VPC"),
			"TrafficType":  jsii.String("ALL"),
		})
		tmpl.HasResourceProperties(jsii.String("AWS::Logs::LogGroup"), map[string]any{
			"RetentionInDays": jsii.Number(5),
		})

		stack2 := awscdk.NewStack(app, jsii.String("Stack2"), nil)
		clcdk.WithNetwork(stack2, "Network", clcdk.NewConfig(), topo)
		assertions.Template_FromStack(stack2, nil).ResourceCountIs(jsii.String("AWS::EC2::FlowLog"), jsii.Number(0))
	})

	It("should create a private hosted zone for the domain", func() {
		topo, _ := build(2, "internal.example.com")
		net := clcdk.WithNetwork(stack, "Network", cfg, topo)

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::Route53::HostedZone"), jsii.Number(1))
		tmpl.HasResourceProperties(jsii.String("AWS::Route53::HostedZone"), map[string]any{
			"Name": jsii.String("internal.example.com"),
			"VPCs": assertions.Match_ArrayWith(&[]any{map[string]any{
				"VPCId":     map[string]any{"Ref": logicalID(stack, net, topo.VPC.ID)},
				"VPCRegion": assertions.Match_AnyValue(),
			}}),
		})
	})

	It("should synthesize identical templates on repeated runs", func() {
		template := func() []byte {
			app := awscdk.NewApp(nil)
			stack := awscdk.NewStack(app, jsii.String("Stack1"), nil)
			topo, _ := build(3, "")
			clcdk.WithNetwork(stack, "Network", cfg, topo)

			return lo.Must(json.Marshal(*assertions.Template_FromStack(stack, nil).ToJSON()))
		}

		Expect(template()).To(MatchJSON(template()))
	})
})
