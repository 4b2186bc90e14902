package config

import "go.uber.org/fx"

// Module provides Config; a Load error aborts application start-up.
var Module = fx.Module("config",
	fx.Provide(Load),
)
