package providers

import (
	"github.com/smallbiznis/opsalert/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	slack.Module,
)
