package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/upkyp/upkyp/internal/clock"
	"github.com/upkyp/upkyp/internal/config"
	"github.com/upkyp/upkyp/internal/migration"
	"github.com/upkyp/upkyp/internal/observability"
	"github.com/upkyp/upkyp/internal/server"
	"github.com/upkyp/upkyp/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
