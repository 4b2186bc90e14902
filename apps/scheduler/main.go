package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsalert/internal/alert"
	"github.com/smallbiznis/opsalert/internal/cache"
	"github.com/smallbiznis/opsalert/internal/clock"
	"github.com/smallbiznis/opsalert/internal/config"
	"github.com/smallbiznis/opsalert/internal/detection"
	"github.com/smallbiznis/opsalert/internal/observability"
	"github.com/smallbiznis/opsalert/internal/operations"
	"github.com/smallbiznis/opsalert/internal/providers"
	"github.com/smallbiznis/opsalert/internal/rules"
	"github.com/smallbiznis/opsalert/internal/scheduler"
	"github.com/smallbiznis/opsalert/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		providers.Module,

		// Domain services required by scheduler
		rules.Module,
		operations.Module,
		alert.Module,
		detection.Module,
		scheduler.Module,

		// No server module!
		fx.Invoke(StartScheduler),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}

// StartScheduler runs the loop even when SCHEDULER_ENABLED is false; this
// binary exists only to run it.
func StartScheduler(lc fx.Lifecycle, cfg config.Config, s *scheduler.Scheduler) {
	if cfg.SchedulerEnabled {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
