// Package main provides the CDK app that materializes the network.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clnet/clbuildinfo"
	"github.com/crewlinker/clnet/clcdk"
	"github.com/crewlinker/clnet/clnetspec"
	"github.com/crewlinker/clnet/clsynth"
	"github.com/crewlinker/clnet/clzap"
	"go.uber.org/fx"
)

// Version is set at build time.
var Version = "v0.0.0-dev"

func main() {
	defer jsii.Close()

	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var pipe *clsynth.Pipeline
	var info *clbuildinfo.Info
	var envSpec clnetspec.NetworkSpec

	fxa := fx.New(
		clzap.Fx(),
		clzap.Prod(),
		clbuildinfo.Prod(Version),
		clsynth.Prod(),
		fx.Populate(&pipe, &info, &envSpec))
	if err := fxa.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	defer fxa.Stop(ctx) //nolint:errcheck

	app := awscdk.NewApp(nil)

	// the spec in the "networkSpec" context takes precedence over the environment
	spec := envSpec
	if v := app.Node().TryGetContext(jsii.String("networkSpec")); v != nil {
		var err error
		if spec, err = clnetspec.FromContext(v); err != nil {
			return fmt.Errorf("failed to read spec from context: %w", err)
		}
	}

	// deployments pass the version of the checkout as context
	version := info.Version()
	if v, _ := app.Node().TryGetContext(jsii.String("version")).(string); v != "" {
		version = v
	}

	res, err := pipe.Run(ctx, clcdk.VersionedSpec(spec, version))
	if err != nil {
		return err
	}

	qual, _ := app.Node().TryGetContext(jsii.String("qualifier")).(string)
	if qual == "" {
		qual = "ClNet"
	}

	conv := clcdk.NewConventions(qual, os.Getenv("CDK_DEFAULT_REGION"))
	stack := clcdk.NewInstancedStack(app, conv, os.Getenv("CDK_DEFAULT_ACCOUNT"))

	if _, _, err := clcdk.WithResult(stack, conv, clcdk.ConfigFromScope(app), res); err != nil {
		return err
	}

	app.Synth(nil)

	return nil
}
