package clcdk_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clcdk"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("config", Serial, func() {
	It("should copy without changing the original", func() {
		stag1 := clcdk.NewStagingConfig()
		stag2 := stag1.Copy(clcdk.WithParameterPath(jsii.String("/net/1")))

		Expect(stag1.ParameterPath()).To(BeNil()) // should not have changed
		Expect(*stag2.ParameterPath()).To(Equal("/net/1"))
		Expect(*stag2.EnableDNSSupport()).To(BeTrue()) // should not have changed
	})

	It("should retain addresses in production", func() {
		prod := clcdk.NewProductionConfig()
		Expect(prod.RemovalPolicy()).To(Equal(awscdk.RemovalPolicy_RETAIN))
		Expect(prod.FlowLogRetention()).To(Equal(awslogs.RetentionDays_THREE_MONTHS))
		Expect(*prod.EnableDNSHostnames()).To(BeTrue())
		Expect(clcdk.NewStagingConfig().RemovalPolicy()).To(Equal(awscdk.RemovalPolicy_DESTROY))
	})
})
