package clcdk_test

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clboundary"
	"github.com/crewlinker/clnet/clcdk"
	"github.com/crewlinker/clnet/clpublish"
	"github.com/samber/lo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("outputs", func() {
	var app awscdk.App
	var env *awscdk.Environment

	BeforeEach(func() {
		app = awscdk.NewApp(nil)
		env = &awscdk.Environment{Account: jsii.String("111111"), Region: jsii.String("eu-west-1")}
	})

	It("should export every key of the contract", func() {
		stack1 := awscdk.NewStack(app, jsii.String("Stack1"), nil)
		topo, sb := build(2, "")
		net := clcdk.WithNetwork(stack1, "Network", clcdk.NewStagingConfig(), topo)
		clcdk.WithSecurityBoundary(stack1, "Boundary", net, sb)

		exp, err := clcdk.WithOutputs(stack1, "Outputs", clcdk.NewStagingConfig(), "Net1", net, sb)
		Expect(err).ToNot(HaveOccurred())
		Expect(exp.Outputs.AvailabilityZones).To(Equal([]string{"az-0", "az-1"}))

		tmpl := assertions.Template_FromStack(stack1, nil)
		Expect((*tmpl.ToJSON())["Outputs"]).To(HaveLen(len(clpublish.Keys)))
		tmpl.ResourceCountIs(jsii.String("AWS::SSM::Parameter"), jsii.Number(0))

		tmpl.HasOutput(jsii.String("*"), map[string]any{
			"Value":  map[string]any{"Ref": logicalID(stack1, net, topo.VPC.ID)},
			"Export": map[string]any{"Name": "Net1:VpcId"},
		})

		tmpl.HasOutput(jsii.String("*"), map[string]any{
			"Value":  "10.0.10.0/24,10.0.20.0/24",
			"Export": map[string]any{"Name": "Net1:PrivateSubnetCidrs"},
		})

		out := string(lo.Must(json.Marshal(*tmpl.ToJSON())))
		Expect(out).To(ContainSubstring(`"Name":"Net1:PrivateSubnetIds"`))
		Expect(out).To(ContainSubstring(`"Name":"Net1:ClientSecurityGroupId"`))

		ref, ok := exp.Strong(clpublish.KeyPrivateSubnetIDs)
		Expect(ok).To(BeTrue())
		Expect(ref.ExportName()).To(Equal("Net1:PrivateSubnetIds"))

		_, ok = exp.Weak(clpublish.KeyPrivateSubnetIDs)
		Expect(ok).To(BeFalse())
	})

	It("should export the hosted zone when there is a domain", func() {
		stack1 := awscdk.NewStack(app, jsii.String("Stack1"), nil)
		topo, sb := build(2, "internal.example.com")
		net := clcdk.WithNetwork(stack1, "Network", clcdk.NewStagingConfig(), topo)
		clcdk.WithSecurityBoundary(stack1, "Boundary", net, sb)

		_, err := clcdk.WithOutputs(stack1, "Outputs", clcdk.NewStagingConfig(), "Net1", net, sb)
		Expect(err).ToNot(HaveOccurred())

		tmpl := assertions.Template_FromStack(stack1, nil)
		Expect((*tmpl.ToJSON())["Outputs"]).To(HaveLen(len(clpublish.Keys) + 1))
		tmpl.HasOutput(jsii.String("*"), map[string]any{"Export": map[string]any{"Name": "Net1:HostedZoneId"}})
	})

	It("should fail without the shared groups", func() {
		stack1 := awscdk.NewStack(app, jsii.String("Stack1"), nil)
		topo, sb := build(2, "")
		sb.Groups = lo.Filter(sb.Groups, func(g clboundary.SecurityGroup, _ int) bool {
			return g.Role != clboundary.RoleServer
		})

		net := clcdk.WithNetwork(stack1, "Network", clcdk.NewStagingConfig(), topo)
		_, err := clcdk.WithOutputs(stack1, "Outputs", clcdk.NewStagingConfig(), "Net1", net, sb)
		Expect(errors.Is(err, clpublish.ErrMissingGroup)).To(BeTrue())
	})

	It("strong export import", func() {
		By("exporting it from a stack")
		stack1 := awscdk.NewStack(app, jsii.String("Stack1"), nil)
		topo, sb := build(2, "")
		net := clcdk.WithNetwork(stack1, "Network", clcdk.NewStagingConfig(), topo)
		clcdk.WithSecurityBoundary(stack1, "Boundary", net, sb)
		exp := lo.Must(clcdk.WithOutputs(stack1, "Outputs", clcdk.NewStagingConfig(), "Net1", net, sb))

		By("importing it in another stack")
		stack2 := awscdk.NewStack(app, jsii.String("Stack2"), nil)
		ref, _ := exp.Strong(clpublish.KeyVPCID)
		stack2.ExportValue(ref.ImportValue(), &awscdk.ExportValueOptions{Name: jsii.String("ReExport1")})

		imps := clcdk.NewNetworkImports(stack2, "Net1", 3)
		awscdk.NewCfnOutput(stack2, jsii.String("SearchSubnets"), &awscdk.CfnOutputProps{
			Value: awscdk.Fn_Join(jsii.String(","), imps.SearchSubnetIDs()),
		})
		awscdk.NewCfnOutput(stack2, jsii.String("ClientGroup"), &awscdk.CfnOutputProps{
			Value: imps.ClientSecurityGroup().SecurityGroupId(),
		})
		Expect(*imps.DatabaseSubnetIDs()).To(HaveLen(3))
		Expect(*imps.SearchSubnetIDs()).To(HaveLen(2))

		json2 := string(lo.Must(json.Marshal(*assertions.Template_FromStack(stack2, nil).ToJSON())))
		Expect(json2).To(ContainSubstring(`"Fn::ImportValue":"Net1:VpcId"`))
		Expect(json2).To(ContainSubstring(`"Fn::ImportValue":"Net1:PrivateSubnetIds"`))
		Expect(json2).To(ContainSubstring(`"Fn::ImportValue":"Net1:ClientSecurityGroupId"`))
		Expect(strings.Count(json2, `"Fn::ImportValue":"Net1:PrivateSubnetIds"`)).To(Equal(2))
	})

	It("weak export lookup", func() {
		By("storing the outputs as parameters")
		stack1 := awscdk.NewStack(app, jsii.String("Stack1"), &awscdk.StackProps{Env: env})
		topo, sb := build(2, "")
		cfg := clcdk.NewStagingConfig().Copy(clcdk.WithParameterPath(jsii.String("/net/1")))
		net := clcdk.WithNetwork(stack1, "Network", cfg, topo)
		clcdk.WithSecurityBoundary(stack1, "Boundary", net, sb)
		exp := lo.Must(clcdk.WithOutputs(stack1, "Outputs", cfg, "Net1", net, sb))

		tmpl1 := assertions.Template_FromStack(stack1, nil)
		tmpl1.ResourceCountIs(jsii.String("AWS::SSM::Parameter"), jsii.Number(len(clpublish.Keys)))
		tmpl1.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]any{
			"Name":  "/net/1/VpcCidr",
			"Value": "10.0.0.0/16",
		})

		By("looking it up from another stack")
		stack2 := awscdk.NewStack(app, jsii.String("Stack2"), &awscdk.StackProps{Env: env})
		ref, ok := exp.Weak(clpublish.KeyVPCCIDR)
		Expect(ok).To(BeTrue())
		Expect(ref.ParameterName()).To(Equal("/net/1/VpcCidr"))
		Expect(*ref.LookupValue(stack2)).To(ContainSubstring("/net/1/VpcCidr"))
		Expect(*stack2.Dependencies()).To(HaveLen(1))
	})
})
