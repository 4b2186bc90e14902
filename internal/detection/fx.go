package detection

import "go.uber.org/fx"

var Module = fx.Module("detection",
	fx.Provide(NewRegistry),
	fx.Provide(NewAggregator),
)
