package clcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

type exportRef struct {
	name string
}

func (r exportRef) ImportValue() *string {
	return awscdk.Fn_ImportValue(jsii.String(r.name))
}

func (r exportRef) ExportName() string { return r.name }

// StrongRef represents a value that can be imported in another stack.
type StrongRef interface {
	// ImportValue will use the ref value through the use of Fn:ImportValue
	ImportValue() *string
	// ExportName is the name the value is exported under.
	ExportName() string
}

// WeakRef represents a reference to a value stored in the AWS SSM parameter store. It can be read
// by the receiving stack without a token being involved. It is a weak link though and when the value
// is changed the receiving stack doesn't automatically change with it. Prefer a StrongRef if
// possible and use this only in case this is not possible.
type WeakRef interface {
	LookupValue(scope constructs.Construct) *string
	ParameterName() string
}

type weakRef struct {
	src       awscdk.Stack
	paramName string
}

func (f weakRef) LookupValue(scope constructs.Construct) *string {
	if stack := awscdk.Stack_Of(scope); *stack.Node().Path() != *f.src.Node().Path() {
		stack.AddDependency(f.src, jsii.String("SSM Parameter: "+f.paramName))
	}

	return awsssm.StringParameter_ValueFromLookup(scope, jsii.String(f.paramName))
}

func (f weakRef) ParameterName() string { return f.paramName }

// WeakExport uses the SSM parameter store to make a value available. It creates a weak link as
// the parameter can be changed without the receiving stack being updated of the fact.
func WeakExport(scope constructs.Construct, id, paramName string, value *string) WeakRef {
	awsssm.NewStringParameter(scope, jsii.String(id), &awsssm.StringParameterProps{
		ParameterName: jsii.String(paramName),
		StringValue:   value,
	})

	return weakRef{src: awscdk.Stack_Of(scope), paramName: paramName}
}
