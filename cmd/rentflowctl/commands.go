package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rentflow/internal/billing"
	"github.com/smallbiznis/rentflow/internal/clock"
	"github.com/smallbiznis/rentflow/internal/config"
	"github.com/smallbiznis/rentflow/internal/lock"
	"github.com/smallbiznis/rentflow/internal/migration"
	"github.com/smallbiznis/rentflow/internal/observability"
	"github.com/smallbiznis/rentflow/internal/providers"
	"github.com/smallbiznis/rentflow/internal/scheduler"
	"github.com/smallbiznis/rentflow/internal/subscription"
	"github.com/smallbiznis/rentflow/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const startTimeout = 30 * time.Second

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "run <job>",
		Short:     "Run one job immediately under the job lock",
		Args:      cobra.ExactArgs(1),
		ValidArgs: scheduler.JobNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sched *scheduler.Scheduler
			app := fx.New(
				fx.NopLogger,
				config.Module,
				observability.Module,
				fx.Provide(registerSnowflake),
				db.Module,
				clock.Module,
				providers.Module,
				billing.Module,
				subscription.Module,
				lock.Module,
				// The run loop is not started; only the job runner is needed.
				fx.Provide(scheduler.ProvideConfig, scheduler.New),
				fx.Populate(&sched),
			)
			ctx := cmd.Context()
			if err := start(ctx, app); err != nil {
				return err
			}
			defer stop(app)

			result, err := sched.RunJob(ctx, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func jobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List job names",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range scheduler.JobNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded schema migrations (postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var conn *gorm.DB
			app := fx.New(
				fx.NopLogger,
				config.Module,
				observability.Module,
				db.Module,
				fx.Populate(&conn),
			)
			if err := start(cmd.Context(), app); err != nil {
				return err
			}
			defer stop(app)

			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			version, dirty, err := migration.Version(sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}

func start(ctx context.Context, app *fx.App) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	return app.Start(startCtx)
}

func stop(app *fx.App) {
	stopCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintln(os.Stderr, "shutdown:", err)
	}
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(4)
	if err != nil {
		panic(err)
	}
	return node
}
