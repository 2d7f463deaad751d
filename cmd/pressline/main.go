package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/client"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/config"
	"github.com/smallbiznis/pressline/internal/delivery"
	"github.com/smallbiznis/pressline/internal/migration"
	"github.com/smallbiznis/pressline/internal/observability"
	"github.com/smallbiznis/pressline/internal/operator"
	"github.com/smallbiznis/pressline/internal/payment"
	"github.com/smallbiznis/pressline/internal/publication"
	"github.com/smallbiznis/pressline/internal/reconciler"
	"github.com/smallbiznis/pressline/internal/seed"
	"github.com/smallbiznis/pressline/internal/server"
	"github.com/smallbiznis/pressline/internal/subscription"
	"github.com/smallbiznis/pressline/pkg/db"
	"go.uber.org/fx"
)

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
		publication.Module,
		client.Module,
		operator.Module,
		payment.Module,
		delivery.Module,
		subscription.Module,

		seed.Module,
		reconciler.Module,
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
