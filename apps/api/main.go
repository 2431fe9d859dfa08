package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rentflow/internal/clock"
	"github.com/smallbiznis/rentflow/internal/config"
	"github.com/smallbiznis/rentflow/internal/lease"
	"github.com/smallbiznis/rentflow/internal/notification"
	"github.com/smallbiznis/rentflow/internal/observability"
	"github.com/smallbiznis/rentflow/internal/providers"
	"github.com/smallbiznis/rentflow/internal/server"
	"github.com/smallbiznis/rentflow/pkg/db"
	"go.uber.org/fx"
)

// API serves the lease signature webhook. Batch jobs run in apps/scheduler.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		providers.Module,
		notification.Module,
		lease.Module,

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
