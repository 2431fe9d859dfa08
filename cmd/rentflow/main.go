package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rentflow/internal/billing"
	"github.com/smallbiznis/rentflow/internal/clock"
	"github.com/smallbiznis/rentflow/internal/config"
	"github.com/smallbiznis/rentflow/internal/lease"
	"github.com/smallbiznis/rentflow/internal/lock"
	"github.com/smallbiznis/rentflow/internal/migration"
	"github.com/smallbiznis/rentflow/internal/notification"
	"github.com/smallbiznis/rentflow/internal/observability"
	"github.com/smallbiznis/rentflow/internal/providers"
	"github.com/smallbiznis/rentflow/internal/scheduler"
	"github.com/smallbiznis/rentflow/internal/server"
	"github.com/smallbiznis/rentflow/internal/subscription"
	"github.com/smallbiznis/rentflow/pkg/db"
	"go.uber.org/fx"
)

// Monolith: HTTP, scheduler and migrations in one process.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		providers.Module,
		notification.Module,
		lease.Module,
		billing.Module,
		subscription.Module,

		lock.Module,
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
