package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/audit"
	"github.com/smallbiznis/codemart/internal/authorization"
	"github.com/smallbiznis/codemart/internal/catalog"
	"github.com/smallbiznis/codemart/internal/clock"
	"github.com/smallbiznis/codemart/internal/config"
	"github.com/smallbiznis/codemart/internal/events"
	"github.com/smallbiznis/codemart/internal/ledger"
	"github.com/smallbiznis/codemart/internal/lock"
	"github.com/smallbiznis/codemart/internal/migration"
	"github.com/smallbiznis/codemart/internal/observability"
	"github.com/smallbiznis/codemart/internal/order"
	"github.com/smallbiznis/codemart/internal/scheduler"
	"github.com/smallbiznis/codemart/internal/server"
	"github.com/smallbiznis/codemart/internal/stats"
	"github.com/smallbiznis/codemart/pkg/db"
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
		lock.Module,

		// Functional Domains
		authorization.Module,
		audit.Module,
		events.Module,
		catalog.Module,
		ledger.Module,
		order.Module,
		stats.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
