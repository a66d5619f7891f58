package clnetspec_test

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/crewlinker/clnet/clnetspec"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("decoding", func() {
	It("should read from the environment", func() {
		spec, err := clnetspec.FromEnv(env.Options{Environment: map[string]string{
			"CLNET_VPC_CIDR":      "10.0.0.0/16",
			"CLNET_AZ_LIST":       "az-a,az-b",
			"CLNET_PUBLIC_CIDRS":  "10.0.1.0/24,10.0.2.0/24",
			"CLNET_PRIVATE_CIDRS": "10.0.10.0/24,10.0.20.0/24",
			"CLNET_TAGS":          "Project:assistant,Env:dev",
		}})
		Expect(err).ToNot(HaveOccurred())
		Expect(spec.VPCCIDR).To(Equal("10.0.0.0/16"))
		Expect(spec.AZs).To(Equal([]string{"az-a", "az-b"}))
		Expect(spec.PrivateCIDRs).To(Equal([]string{"10.0.10.0/24", "10.0.20.0/24"}))
		Expect(spec.Tags).To(Equal(map[string]string{"Project": "assistant", "Env": "dev"}))
	})

	It("should read from a yaml file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "network.yml")
		Expect(os.WriteFile(path, []byte(`
vpc_cidr: 10.0.0.0/16
az_list: [az-a, az-b]
public_cidrs: [10.0.1.0/24, 10.0.2.0/24]
private_cidrs: [10.0.10.0/24, 10.0.20.0/24]
tags:
  Project: assistant
domain_name: assistant.example.com
`), 0o600)).To(Succeed())

		spec, err := clnetspec.LoadFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(spec).To(Equal(clnetspec.NetworkSpec{
			VPCCIDR:      "10.0.0.0/16",
			AZs:          []string{"az-a", "az-b"},
			PublicCIDRs:  []string{"10.0.1.0/24", "10.0.2.0/24"},
			PrivateCIDRs: []string{"10.0.10.0/24", "10.0.20.0/24"},
			Tags:         map[string]string{"Project": "assistant"},
			DomainName:   "assistant.example.com",
		}))
	})

	It("should reject unknown yaml fields", func() {
		path := filepath.Join(GinkgoT().TempDir(), "network.yml")
		Expect(os.WriteFile(path, []byte("vpc_cidr: 10.0.0.0/16\nnat_gateways: 1\n"), 0o600)).To(Succeed())

		_, err := clnetspec.LoadFile(path)
		Expect(err).To(MatchError(ContainSubstring("nat_gateways")))
	})

	It("should fail on a missing file", func() {
		_, err := clnetspec.LoadFile(filepath.Join(GinkgoT().TempDir(), "missing.yml"))
		Expect(err).To(MatchError(ContainSubstring("failed to open spec file")))
	})

	It("should decode cdk context values", func() {
		spec, err := clnetspec.FromContext(map[string]any{
			"vpc_cidr":      "10.0.0.0/16",
			"az_list":       []any{"az-a", "az-b"},
			"public_cidrs":  "10.0.1.0/24,10.0.2.0/24",
			"private_cidrs": []any{"10.0.10.0/24", "10.0.20.0/24"},
			"tags":          map[string]any{"Project": "assistant"},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(spec.AZs).To(Equal([]string{"az-a", "az-b"}))
		Expect(spec.PublicCIDRs).To(Equal([]string{"10.0.1.0/24", "10.0.2.0/24"}))
		Expect(spec.Tags).To(HaveKeyWithValue("Project", "assistant"))
	})

	It("should reject unknown context keys", func() {
		_, err := clnetspec.FromContext(map[string]any{"vpc_cidr": "10.0.0.0/16", "nats": 1})
		Expect(err).To(MatchError(ContainSubstring("nats")))
	})
})

var _ = Describe("tag set", func() {
	It("should order tags by key", func() {
		ts := clnetspec.NewTagSet(map[string]string{"b": "2", "a": "1"})
		Expect(ts.All()).To(Equal([]clnetspec.Tag{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}))
		Expect(ts.String()).To(Equal("a=1,b=2"))
		Expect(ts.Len()).To(Equal(2))
	})

	It("should not change when extended", func() {
		ts1 := clnetspec.NewTagSet(map[string]string{"a": "1"})
		ts2 := ts1.With("Name", "Vpc")

		Expect(ts1.Len()).To(Equal(1))
		Expect(ts2.Len()).To(Equal(2))

		v, ok := ts2.Get("Name")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("Vpc"))

		_, ok = ts1.Get("Name")
		Expect(ok).To(BeFalse())
	})

	It("should not share the returned slices", func() {
		ts := clnetspec.NewTagSet(map[string]string{"a": "1"})
		all := ts.All()
		all[0].Value = "x"

		Expect(ts.Map()).To(Equal(map[string]string{"a": "1"}))
	})
})
