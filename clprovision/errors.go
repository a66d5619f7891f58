// Package clprovision drives a hosting engine that materializes zone bundles: shared entities
// first, then every bundle concurrently with retries for transient failures.
package clprovision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/smithy-go"
)

// ProvisionError is returned when the hosting engine failed to materialize an entity.
type ProvisionError struct {
	Bundle    int
	Entity    string
	Transient bool
	Attempts  int
	Err       error
}

func (e ProvisionError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}

	return fmt.Sprintf("failed to provision %s of bundle %d after %d attempt(s) (%s): %v",
		e.Entity, e.Bundle, e.Attempts, kind, e.Err)
}

func (e ProvisionError) Unwrap() error { return e.Err }

// entityError attributes an engine error to an entity.
type entityError struct {
	entity string
	err    error
}

func (e entityError) Error() string { return e.entity + ": " + e.err.Error() }
func (e entityError) Unwrap() error { return e.err }

// Fail attributes err to the named entity, the driver reports it on the ProvisionError.
func Fail(entity string, err error) error {
	if err == nil {
		return nil
	}

	return entityError{entity: entity, err: err}
}

// consistencyCodes are returned while the engine's view of a just created entity is still
// catching up, or while a dependent is still being torn down.
var consistencyCodes = map[string]struct{}{
	"DependencyViolation":               {},
	"IncorrectState":                    {},
	"InvalidGatewayID.NotFound":         {},
	"InvalidNatGatewayID.NotFound":      {},
	"InvalidAllocationID.NotFound":      {},
	"InvalidRouteTableID.NotFound":      {},
	"InvalidSubnetID.NotFound":          {},
	"InvalidVpcID.NotFound":             {},
	"InvalidGroup.NotFound":             {},
	"InvalidVpcEndpointId.NotFound":     {},
	"InvalidInternetGatewayID.NotFound": {},
}

// Classify reports whether err is transient: throttling, retryable transport failures and
// eventual consistency errors. Everything else, including cancellation, is permanent.
func Classify(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case retry.IsErrorThrottles(retry.DefaultThrottles).IsErrorThrottle(err) == aws.TrueTernary:
		return true
	case retry.IsErrorRetryables(retry.DefaultRetryables).IsErrorRetryable(err) == aws.TrueTernary:
		return true
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	_, ok := consistencyCodes[apiErr.ErrorCode()]

	return ok
}
