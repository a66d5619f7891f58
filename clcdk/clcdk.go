// Package clcdk materializes a synthesized network as CloudFormation resources using the AWS CDK.
package clcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clnetspec"
	"github.com/samber/lo"
)

// ScopeName is the name of a scope.
type ScopeName string

// ChildScope returns a new scope named 'name'.
func (sn ScopeName) ChildScope(parent constructs.Construct) constructs.Construct {
	return constructs.NewConstruct(parent, jsii.String(sn.String()))
}

func (sn ScopeName) String() string {
	return string(sn)
}

// cfnTags turns a tag set into CloudFormation tags, in key order.
func cfnTags(ts clnetspec.TagSet) *[]*awscdk.CfnTag {
	tags := lo.Map(ts.All(), func(t clnetspec.Tag, _ int) *awscdk.CfnTag {
		return &awscdk.CfnTag{Key: jsii.String(t.Key), Value: jsii.String(t.Value)}
	})

	return &tags
}
