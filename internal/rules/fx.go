package rules

import "go.uber.org/fx"

var Module = fx.Module("rules",
	fx.Provide(
		NewHolder,
		func(h *Holder) Source { return h },
	),
)
