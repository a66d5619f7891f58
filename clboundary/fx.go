package clboundary

import (
	"strings"

	"github.com/crewlinker/clnet/clconfig"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// moduleName for naming conventions.
const moduleName = "clboundary"

// Prod configures the DI for building security boundaries.
func Prod() fx.Option {
	return fx.Module(moduleName,
		// provide the environment configuration
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		// the incoming logger will be named after the module
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		// provide the builder
		fx.Provide(NewBuilder),
	)
}
