package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsalert/internal/alert"
	"github.com/smallbiznis/opsalert/internal/cache"
	"github.com/smallbiznis/opsalert/internal/clock"
	"github.com/smallbiznis/opsalert/internal/config"
	"github.com/smallbiznis/opsalert/internal/detection"
	"github.com/smallbiznis/opsalert/internal/migration"
	"github.com/smallbiznis/opsalert/internal/observability"
	"github.com/smallbiznis/opsalert/internal/operations"
	"github.com/smallbiznis/opsalert/internal/providers"
	"github.com/smallbiznis/opsalert/internal/ratelimit"
	"github.com/smallbiznis/opsalert/internal/rules"
	"github.com/smallbiznis/opsalert/internal/scheduler"
	"github.com/smallbiznis/opsalert/internal/server"
	"github.com/smallbiznis/opsalert/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,
		providers.Module,

		// Functional Domains
		rules.Module,
		operations.Module,
		alert.Module,
		detection.Module,

		// Surfaces; SCHEDULER_ENABLED=false leaves only the HTTP trigger.
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
