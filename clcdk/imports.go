package clcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clpublish"
)

// NetworkImports are the network outputs as imported by the stack of another tier.
type NetworkImports interface {
	VPC() awsec2.IVpc
	VPCID() *string
	PrivateSubnetIDs() *[]*string
	DatabaseSubnetIDs() *[]*string
	SearchSubnetIDs() *[]*string
	ClientSecurityGroup() awsec2.ISecurityGroup
	ServerSecurityGroup() awsec2.ISecurityGroup
}

type imports struct {
	vpc                 awsec2.IVpc
	vpcID               *string
	privateSubnetIDs    *[]*string
	clientSecurityGroup awsec2.ISecurityGroup
	serverSecurityGroup awsec2.ISecurityGroup
}

// NewNetworkImports imports the network that was exported with importPrefix. The number of zones must
// be known up front since lists are split at synthesis time.
func NewNetworkImports(scope constructs.Construct, importPrefix string, zones int) NetworkImports {
	con := imports{}
	value := func(key string) *string { return awscdk.Fn_ImportValue(jsii.String(importPrefix + ":" + key)) }
	list := func(key string) *[]*string {
		return awscdk.Fn_Split(jsii.String(clpublish.ListSeparator), value(key), jsii.Number(float64(zones)))
	}

	con.vpcID = value(clpublish.KeyVPCID)
	con.privateSubnetIDs = list(clpublish.KeyPrivateSubnetIDs)

	con.vpc = awsec2.Vpc_FromVpcAttributes(scope, jsii.String("Vpc"), &awsec2.VpcAttributes{
		VpcId:                      con.vpcID,
		VpcCidrBlock:               value(clpublish.KeyVPCCIDR),
		AvailabilityZones:          list(clpublish.KeyAvailabilityZones),
		PublicSubnetIds:            list(clpublish.KeyPublicSubnetIDs),
		PublicSubnetRouteTableIds:  sameTable(value(clpublish.KeyPublicRouteTableID), zones),
		PrivateSubnetIds:           con.privateSubnetIDs,
		PrivateSubnetRouteTableIds: list(clpublish.KeyPrivateRouteTableIDs),
	})

	con.clientSecurityGroup = awsec2.SecurityGroup_FromSecurityGroupId(scope, jsii.String("ClientSg"),
		value(clpublish.KeyClientSecurityGroupID), nil)
	con.serverSecurityGroup = awsec2.SecurityGroup_FromSecurityGroupId(scope, jsii.String("ServerSg"),
		value(clpublish.KeyServerSecurityGroupID), nil)

	return con
}

// sameTable repeats the id of the single public route table for every zone.
func sameTable(id *string, zones int) *[]*string {
	ids := make([]*string, zones)
	for i := range ids {
		ids[i] = id
	}

	return &ids
}

func (c imports) VPC() awsec2.IVpc                           { return c.vpc }
func (c imports) VPCID() *string                             { return c.vpcID }
func (c imports) PrivateSubnetIDs() *[]*string               { return c.privateSubnetIDs }
func (c imports) DatabaseSubnetIDs() *[]*string              { return c.privateSubnetIDs }
func (c imports) ClientSecurityGroup() awsec2.ISecurityGroup { return c.clientSecurityGroup }
func (c imports) ServerSecurityGroup() awsec2.ISecurityGroup { return c.serverSecurityGroup }

func (c imports) SearchSubnetIDs() *[]*string {
	ids := (*c.privateSubnetIDs)[:min(clpublish.SearchSubnetCount, len(*c.privateSubnetIDs))]

	return &ids
}
