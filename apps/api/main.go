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
	"github.com/smallbiznis/opsalert/internal/server"
	"github.com/smallbiznis/opsalert/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,
		providers.Module,

		rules.Module,
		operations.Module,
		alert.Module,
		detection.Module,

		// No scheduler: passes only run on POST /api/alerts/generate.
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
