package clprovision

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/crewlinker/clnet/clconfig"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the driver.
type Config struct {
	// MaxConcurrency limits the bundles that are applied at the same time, zero means no limit.
	MaxConcurrency int `env:"MAX_CONCURRENCY" envDefault:"0"`
	// InitialInterval is the first wait between attempts.
	InitialInterval time.Duration `env:"INITIAL_INTERVAL" envDefault:"1s"`
	// MaxInterval caps the wait between attempts.
	MaxInterval time.Duration `env:"MAX_INTERVAL" envDefault:"30s"`
	// MaxElapsedTime stops retrying an entity after this long.
	MaxElapsedTime time.Duration `env:"MAX_ELAPSED_TIME" envDefault:"5m"`
}

// Engine materializes entities on the hosting platform. Implementations should attribute errors to
// entities with [Fail].
type Engine interface {
	ApplyShared(ctx context.Context, topo *cltopo.Topology) error
	ApplyBundle(ctx context.Context, topo *cltopo.Topology, bundle cltopo.Bundle) error
}

// Report describes the outcome of applying the bundles.
type Report struct {
	Succeeded []int
	Failed    []ProvisionError
}

// Err joins the errors of the failed bundles, nil if all succeeded.
func (r *Report) Err() error {
	return errors.Join(lo.Map(r.Failed, func(e ProvisionError, _ int) error { return e })...)
}

// Driver applies topologies through an engine.
type Driver struct {
	cfg  Config
	logs *zap.Logger
}

// NewDriver inits the driver.
func NewDriver(cfg Config, logs *zap.Logger) *Driver {
	return &Driver{cfg: cfg, logs: logs}
}

// ApplyBundles applies the shared entities and then every bundle concurrently. A failing bundle
// doesn't roll back or stop its siblings. If the shared entities fail no bundle is attempted.
func (d *Driver) ApplyBundles(ctx context.Context, topo *cltopo.Topology, eng Engine) (*Report, error) {
	if err := d.attempt(ctx, cltopo.SharedIndex, func(ctx context.Context) error {
		return eng.ApplyShared(ctx, topo)
	}); err != nil {
		return nil, err
	}

	limit := d.cfg.MaxConcurrency
	if limit < 1 {
		limit = max(len(topo.Bundles), 1)
	}

	type result struct {
		index int
		err   error
	}

	results := pool.NewWithResults[result]().WithMaxGoroutines(limit)
	for _, bundle := range topo.Bundles {
		results.Go(func() result {
			return result{bundle.Index, d.attempt(ctx, bundle.Index, func(ctx context.Context) error {
				return eng.ApplyBundle(ctx, topo, bundle)
			})}
		})
	}

	outcome := results.Wait()
	slices.SortFunc(outcome, func(a, b result) int { return a.index - b.index })

	rep := &Report{}
	for _, res := range outcome {
		var perr ProvisionError
		if errors.As(res.err, &perr) {
			rep.Failed = append(rep.Failed, perr)

			continue
		}

		rep.Succeeded = append(rep.Succeeded, res.index)
	}

	d.logs.Info("applied bundles",
		zap.Ints("succeeded", rep.Succeeded),
		zap.Int("num_failed", len(rep.Failed)))

	return rep, nil
}

// attempt runs fn until it succeeds, fails permanently or the backoff gives up.
func (d *Driver) attempt(ctx context.Context, bundle int, fn func(ctx context.Context) error) error {
	bof := backoff.NewExponentialBackOff()
	bof.InitialInterval = d.cfg.InitialInterval
	bof.MaxInterval = d.cfg.MaxInterval
	bof.MaxElapsedTime = d.cfg.MaxElapsedTime

	var attempts int

	err := backoff.RetryNotify(func() error {
		attempts++

		err := fn(ctx)
		if err != nil && !Classify(err) {
			return backoff.Permanent(err)
		}

		return err
	}, backoff.WithContext(bof, ctx), func(err error, wait time.Duration) {
		d.logs.Info("transient failure, retrying",
			zap.Int("bundle", bundle), zap.Duration("wait", wait), zap.Error(err))
	})
	if err == nil {
		return nil
	}

	perr := ProvisionError{Bundle: bundle, Attempts: attempts, Transient: Classify(err), Err: err}

	var eerr entityError
	if errors.As(err, &eerr) {
		perr.Entity = eerr.entity
	} else {
		perr.Entity = lo.Ternary(bundle == cltopo.SharedIndex, "shared entities", fmt.Sprintf("bundle %d", bundle))
	}

	d.logs.Error("failed to provision", zap.Int("bundle", bundle), zap.String("entity", perr.Entity),
		zap.Int("attempts", attempts), zap.Error(err))

	return perr
}

// moduleName for naming conventions.
const moduleName = "clprovision"

// Prod configures the DI for providing the driver.
func Prod() fx.Option {
	return fx.Module(moduleName,
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		fx.Provide(NewDriver),
	)
}
