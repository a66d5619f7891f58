package clcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clid"
	"github.com/crewlinker/clnet/cltopo"
)

// Network holds the materialized resources of a topology, by entity id.
type Network struct {
	Topology   *cltopo.Topology
	VPC        awsec2.CfnVPC
	Attachment awsec2.CfnVPCGatewayAttachment
	HostedZone awsroute53.CfnHostedZone

	resources map[clid.ID]awscdk.CfnResource
	refs      map[clid.ID]*string
}

// Resource returns the resource that materializes the entity.
func (n *Network) Resource(id clid.ID) (awscdk.CfnResource, bool) {
	res, ok := n.resources[id]

	return res, ok
}

// Ref returns the token that references the provisioned identifier of an entity. It can be passed to
// clpublish.Project as the reference function.
func (n *Network) Ref(id clid.ID) string {
	ref, ok := n.refs[id]
	if !ok {
		panic("clcdk: no resource materializes entity: " + id.String())
	}

	return *ref
}

func (n *Network) add(id clid.ID, res awscdk.CfnResource, ref *string) {
	n.resources[id], n.refs[id] = res, ref
}

// dependOn adds explicit dependencies for the edges, on top of the ones implied by references.
func (n *Network) dependOn(edges []cltopo.Edge) {
	for _, e := range edges {
		from, fok := n.resources[e.From]
		to, tok := n.resources[e.To]

		if fok && tok {
			from.AddDependency(to)
		}
	}
}

// WithNetwork materializes the topology: the vpc with its internet gateway and public route table,
// and per zone bundle a public subnet, NAT gateway with its address, private subnet and route table.
func WithNetwork(
	scope constructs.Construct,
	name ScopeName,
	cfg Config,
	topo *cltopo.Topology,
) *Network {
	scope = name.ChildScope(scope)
	net := &Network{Topology: topo, resources: map[clid.ID]awscdk.CfnResource{}, refs: map[clid.ID]*string{}}

	net.VPC = awsec2.NewCfnVPC(scope, jsii.String(topo.VPC.Name), &awsec2.CfnVPCProps{
		CidrBlock:          jsii.String(topo.VPC.CIDR.String()),
		EnableDnsSupport:   cfg.EnableDNSSupport(),
		EnableDnsHostnames: cfg.EnableDNSHostnames(),
		Tags:               cfnTags(topo.VPC.Tags),
	})
	net.add(topo.VPC.ID, net.VPC, net.VPC.Ref())

	igw := awsec2.NewCfnInternetGateway(scope, jsii.String(topo.InternetGateway.Name),
		&awsec2.CfnInternetGatewayProps{Tags: cfnTags(topo.InternetGateway.Tags)})
	net.add(topo.InternetGateway.ID, igw, igw.Ref())

	net.Attachment = awsec2.NewCfnVPCGatewayAttachment(scope, jsii.String(topo.InternetGateway.Name+"Attachment"),
		&awsec2.CfnVPCGatewayAttachmentProps{
			VpcId:             net.VPC.Ref(),
			InternetGatewayId: igw.Ref(),
		})

	for _, sn := range topo.Subnets() {
		subnet := awsec2.NewCfnSubnet(scope, jsii.String(sn.Name), &awsec2.CfnSubnetProps{
			VpcId:               net.VPC.Ref(),
			CidrBlock:           jsii.String(sn.CIDR.String()),
			AvailabilityZone:    jsii.String(sn.AZ),
			MapPublicIpOnLaunch: jsii.Bool(sn.MapPublicIP),
			Tags:                cfnTags(sn.Tags),
		})
		net.add(sn.ID, subnet, subnet.Ref())
	}

	for _, b := range topo.Bundles {
		eip := awsec2.NewCfnEIP(scope, jsii.String(b.ElasticIP.Name), &awsec2.CfnEIPProps{
			Domain: jsii.String("vpc"),
			Tags:   cfnTags(b.ElasticIP.Tags),
		})
		eip.AddDependency(net.Attachment)
		net.add(b.ElasticIP.ID, eip, eip.AttrAllocationId())

		if cfg.RemovalPolicy() != "" {
			eip.ApplyRemovalPolicy(cfg.RemovalPolicy(), nil)
		}

		nat := awsec2.NewCfnNatGateway(scope, jsii.String(b.NAT.Name), &awsec2.CfnNatGatewayProps{
			SubnetId:     jsii.String(net.Ref(b.NAT.SubnetID)),
			AllocationId: jsii.String(net.Ref(b.NAT.AllocationID)),
			Tags:         cfnTags(b.NAT.Tags),
		})
		net.add(b.NAT.ID, nat, nat.Ref())
	}

	for _, rt := range topo.RouteTables() {
		withRouteTable(scope, net, rt)
	}

	net.dependOn(topo.Edges())

	if topo.DomainName != "" {
		net.HostedZone = awsroute53.NewCfnHostedZone(scope, jsii.String("HostedZone"), &awsroute53.CfnHostedZoneProps{
			Name: jsii.String(topo.DomainName),
			Vpcs: []interface{}{&awsroute53.CfnHostedZone_VPCProperty{
				VpcId:     net.VPC.Ref(),
				VpcRegion: awscdk.Aws_REGION(),
			}},
		})
	}

	if cfg.FlowLogRetention() != "" {
		withFlowLogs(scope, cfg, net)
	}

	return net
}

// withRouteTable materializes a route table with its default route and associations.
func withRouteTable(scope constructs.Construct, net *Network, rt cltopo.RouteTable) {
	table := awsec2.NewCfnRouteTable(scope, jsii.String(rt.Name), &awsec2.CfnRouteTableProps{
		VpcId: net.VPC.Ref(),
		Tags:  cfnTags(rt.Tags),
	})
	net.add(rt.ID, table, table.Ref())

	props := &awsec2.CfnRouteProps{
		RouteTableId:         table.Ref(),
		DestinationCidrBlock: jsii.String(rt.DefaultRoute.Destination.String()),
	}

	switch rt.DefaultRoute.TargetKind {
	case cltopo.TargetInternetGateway:
		props.GatewayId = jsii.String(net.Ref(rt.DefaultRoute.Target))
	case cltopo.TargetNatGateway:
		props.NatGatewayId = jsii.String(net.Ref(rt.DefaultRoute.Target))
	}

	route := awsec2.NewCfnRoute(scope, jsii.String(rt.Name+"DefaultRoute"), props)
	if rt.DefaultRoute.TargetKind == cltopo.TargetInternetGateway {
		route.AddDependency(net.Attachment)
	}

	for _, assoc := range rt.Associations {
		res := awsec2.NewCfnSubnetRouteTableAssociation(scope, jsii.String(assoc.Name),
			&awsec2.CfnSubnetRouteTableAssociationProps{
				RouteTableId: table.Ref(),
				SubnetId:     jsii.String(net.Ref(assoc.SubnetID)),
			})
		net.add(assoc.ID, res, res.Ref())
	}
}

// withFlowLogs captures all traffic of the vpc into a log group.
func withFlowLogs(scope constructs.Construct, cfg Config, net *Network) {
	logs := awslogs.NewLogGroup(scope, jsii.String("FlowLogs"), &awslogs.LogGroupProps{
		Retention:     cfg.FlowLogRetention(),
		RemovalPolicy: awscdk.RemovalPolicy_DESTROY,
	})

	role := awsiam.NewRole(scope, jsii.String("FlowLogsRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("vpc-flow-logs.amazonaws.com"), nil),
	})
	logs.GrantWrite(role)

	awsec2.NewCfnFlowLog(scope, jsii.String("FlowLog"), &awsec2.CfnFlowLogProps{
		ResourceId:               net.VPC.Ref(),
		ResourceType:             jsii.String("VPC"),
		TrafficType:              jsii.String("ALL"),
		LogDestinationType:       jsii.String("cloud-watch-logs"),
		LogGroupName:             logs.LogGroupName(),
		DeliverLogsPermissionArn: role.RoleArn(),
	})
}
