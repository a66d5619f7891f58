package clcdk_test

import (
	"context"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clcdk"
	"github.com/crewlinker/clnet/clpublish"
	"github.com/crewlinker/clnet/clsynth"
	"github.com/crewlinker/clnet/clzap"
	"go.uber.org/fx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("app", func() {
	var app awscdk.App
	var res *clsynth.Result

	BeforeEach(func(ctx context.Context) {
		var pipe *clsynth.Pipeline

		fxa := fx.New(clzap.Test(), clsynth.Test(), fx.Populate(&pipe))
		Expect(fxa.Start(ctx)).To(Succeed())
		DeferCleanup(fxa.Stop)

		var err error
		res, err = pipe.Run(ctx, clcdk.VersionedSpec(clsynth.ExampleSpec(), "v1.2.3"))
		Expect(err).ToNot(HaveOccurred())

		app = awscdk.NewApp(nil)
		app.Node().SetContext(jsii.String("instance"), jsii.String("3"))
	})

	It("should materialize the pipeline result", func() {
		conv := clcdk.NewConventions("ClNet", "eu-west-1")
		stack := clcdk.NewInstancedStack(app, conv, "111111")

		_, exp, err := clcdk.WithResult(stack, conv, clcdk.ConfigFromScope(app), res)
		Expect(err).ToNot(HaveOccurred())

		ref, ok := exp.Strong(clpublish.KeyVPCID)
		Expect(ok).To(BeTrue())
		Expect(ref.ExportName()).To(Equal("ClNet3:VpcId"))

		weak, ok := exp.Weak(clpublish.KeyVPCID)
		Expect(ok).To(BeTrue())
		Expect(weak.ParameterName()).To(Equal("/ClNet/3/VpcId"))

		tmpl := assertions.Template_FromStack(stack, nil)
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::NatGateway"), jsii.Number(2))
		versioned := map[string]any{"Tags": assertions.Match_ArrayWith(&[]any{map[string]any{
			"Key": clcdk.VersionTagKey, "Value": "v1.2.3",
		}})}
		for _, typ := range []string{
			"AWS::EC2::VPC", "AWS::EC2::InternetGateway", "AWS::EC2::Subnet", "AWS::EC2::EIP",
			"AWS::EC2::NatGateway", "AWS::EC2::RouteTable", "AWS::EC2::SecurityGroup",
		} {
			tmpl.AllResourcesProperties(jsii.String(typ), versioned)
		}
		tmpl.AllResources(jsii.String("AWS::EC2::EIP"), map[string]any{"DeletionPolicy": "Delete"})
	})

	It("should add the version without touching the input spec", func() {
		spec := clsynth.ExampleSpec()
		spec.Tags = map[string]string{"Project": "assistant"}

		versioned := clcdk.VersionedSpec(spec, "v1.2.3")
		Expect(versioned.Tags).To(Equal(map[string]string{"Project": "assistant", clcdk.VersionTagKey: "v1.2.3"}))
		Expect(spec.Tags).To(Equal(map[string]string{"Project": "assistant"}))
	})

	It("should pick the production config", func() {
		app.Node().SetContext(jsii.String("environment"), jsii.String("prod"))
		Expect(clcdk.ConfigFromScope(app).RemovalPolicy()).To(Equal(awscdk.RemovalPolicy_RETAIN))
	})
})
