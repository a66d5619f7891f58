package clcdk_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clcdk"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stack", func() {
	var app awscdk.App
	var conv clcdk.Conventions

	BeforeEach(func() {
		app = awscdk.NewApp(nil)
		conv = clcdk.NewConventions("ClNet", "eu-west-1")
	})

	It("should create an instanced stack with instance context", func() {
		app.Node().SetContext(jsii.String("instance"), jsii.String("1"))

		stack := clcdk.NewInstancedStack(app, conv, "111111")
		tmpl := assertions.Template_FromStack(stack, nil)
		data := *tmpl.ToJSON()

		Expect(*stack.Node().Id()).To(Equal(`ClNet1`))
		Expect(data["Description"]).To(Equal("ClNet network (instance: 1)"))
		Expect(*awscdk.Stack_Of(stack).Account()).To(Equal("111111"))
		Expect(*awscdk.Stack_Of(stack).Region()).To(Equal("eu-west-1"))
	})

	// bootstrapping never has an instance in the context.
	It("should not panic without instance context", func() {
		stack := clcdk.NewInstancedStack(app, conv, "111111")

		data := *assertions.Template_FromStack(stack, nil).ToJSON()
		Expect(data["Description"]).To(Equal("ClNet network (instance: 0)"))
	})

	It("should panic on a malformed instance", func() {
		app.Node().SetContext(jsii.String("instance"), jsii.String("one"))
		Expect(func() { clcdk.NewInstancedStack(app, conv, "111111") }).To(PanicWith(ContainSubstring("one")))
	})

	It("should derive names from the conventions", func() {
		Expect(conv.ExportPrefix(2)).To(Equal("ClNet2"))
		Expect(conv.ParameterPath(2)).To(Equal("/ClNet/2"))
		Expect(conv.Qualifier()).To(Equal("ClNet"))
	})
})
