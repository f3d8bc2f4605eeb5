package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/numeratel/numera/internal/clock"
	"github.com/numeratel/numera/internal/config"
	"github.com/numeratel/numera/internal/migration"
	"github.com/numeratel/numera/internal/observability"
	"github.com/numeratel/numera/internal/ratelimit"
	"github.com/numeratel/numera/internal/server"
	"github.com/numeratel/numera/internal/tenantconfig"
	"github.com/numeratel/numera/internal/transaction"
	"github.com/numeratel/numera/internal/webhook"
	"github.com/numeratel/numera/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,

		tenantconfig.Module,
		transaction.Module,
		ratelimit.Module,
		webhook.Module,

		migration.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
