//go:build mage

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/crewlinker/clnet/clnetspec"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
)

// Infra groups commands for infrastructure deployment.
type Infra mg.Namespace

// specDir holds a network spec per environment, e.g: specs/staging.yaml.
const specDir = "specs"

// Check validates every spec file concurrently.
func (Infra) Check() error {
	files, err := filepath.Glob(filepath.Join(specDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to glob spec files: %w", err)
	}

	val := clnetspec.NewValidator(zap.NewNop())

	if err := errors.Join(iter.Map(files, func(it *string) error {
		spec, err := clnetspec.LoadFile(*it)
		if err != nil {
			return err
		}

		if _, err := val.Validate(spec); err != nil {
			return fmt.Errorf("%s: %w", *it, err)
		}

		return nil
	})...); err != nil {
		return fmt.Errorf("failed to check specs: %w", err)
	}

	fmt.Printf("checked %d spec(s)\n", len(files))

	return nil
}

// Synth synthesizes the network of the environment to CloudFormation.
func (Infra) Synth(env string, instance int) error {
	return runCdk(env, instance, "synth")
}

// Diff shows the changes that a deploy of the environment would make.
func (Infra) Diff(env string, instance int) error {
	return runCdk(env, instance, "diff")
}

// Deploy the network of the environment.
func (Infra) Deploy(env string, instance int) error {
	mg.Deps(Infra.Check)

	return runCdk(env, instance, "deploy", "--require-approval=never")
}

// Destroy the network of the environment.
func (Infra) Destroy(env string, instance int) error {
	return runCdk(env, instance, "destroy", "--force")
}

// runCdk runs a cdk command with the spec of the environment in the process environment.
func runCdk(env string, instance int, args ...string) error {
	spec, err := clnetspec.LoadFile(filepath.Join(specDir, env+".yaml"))
	if err != nil {
		return fmt.Errorf("failed to load spec: %w", err)
	}

	version, err := determineBuildVersion()
	if err != nil {
		return fmt.Errorf("failed to determine version: %w", err)
	}

	err = runIfNoErr(err, specEnv(spec), "cdk", append(args,
		"--context", "instance="+strconv.Itoa(instance),
		"--context", "environment="+env,
		"--context", "version="+version)...)

	return err
}

// specEnv encodes the spec as the environment that the cdk app reads it from.
func specEnv(spec clnetspec.NetworkSpec) map[string]string {
	tags := lo.MapToSlice(spec.Tags, func(k, v string) string { return k + ":" + v })
	sort.Strings(tags)

	return lo.OmitByValues(map[string]string{
		clnetspec.EnvPrefix + "VPC_CIDR":      spec.VPCCIDR,
		clnetspec.EnvPrefix + "AZ_LIST":       strings.Join(spec.AZs, ","),
		clnetspec.EnvPrefix + "PUBLIC_CIDRS":  strings.Join(spec.PublicCIDRs, ","),
		clnetspec.EnvPrefix + "PRIVATE_CIDRS": strings.Join(spec.PrivateCIDRs, ","),
		clnetspec.EnvPrefix + "TAGS":          strings.Join(tags, ","),
		clnetspec.EnvPrefix + "DOMAIN_NAME":   spec.DomainName,
	}, []string{""})
}

// determineBuildVersion provides the build version.
func determineBuildVersion() (string, error) {
	version := os.Getenv("BUILD_VERSION")
	if version != "" {
		return version, nil
	}

	sha, err := sh.Output("git", "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to run git: %w", err)
	}

	return fmt.Sprintf("v0.0.0-%s", sha[:7]), nil
}

// runIfNoErr will only run cmd with args if 'err' is nil, else it will return err. This allows us to
// make somewhat readable automation around scripts.
func runIfNoErr(err error, env map[string]string, cmd string, args ...string) error {
	if err != nil {
		return err
	}

	if err = sh.RunWith(env, cmd, args...); err != nil {
		return fmt.Errorf("failed to run: %w", err)
	}

	return nil
}
