// Package main provides the clnet command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/crewlinker/clnet/clbuildinfo"
	"github.com/crewlinker/clnet/clcli"
	"github.com/crewlinker/clnet/clprovision"
	"github.com/crewlinker/clnet/clsynth"
	"github.com/crewlinker/clnet/clzap"
	"go.uber.org/fx"
)

// Version is set at build time.
var Version = "v0.0.0-dev"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var pipe *clsynth.Pipeline
	var drv *clprovision.Driver
	var info *clbuildinfo.Info

	app := fx.New(
		clzap.Fx(),
		clzap.Prod(),
		clbuildinfo.Prod(Version),
		clsynth.Prod(),
		clprovision.Prod(),
		fx.Populate(&pipe, &drv, &info))
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	defer app.Stop(ctx) //nolint:errcheck

	return clcli.NewRootCmd(pipe, drv, info).ExecuteContext(ctx)
}
