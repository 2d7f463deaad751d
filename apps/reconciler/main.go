package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/client"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/config"
	"github.com/smallbiznis/pressline/internal/delivery"
	"github.com/smallbiznis/pressline/internal/migration"
	"github.com/smallbiznis/pressline/internal/observability"
	"github.com/smallbiznis/pressline/internal/payment"
	"github.com/smallbiznis/pressline/internal/publication"
	"github.com/smallbiznis/pressline/internal/reconciler"
	"github.com/smallbiznis/pressline/internal/subscription"
	"github.com/smallbiznis/pressline/pkg/db"
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

		// Domain services required by the reconciler
		publication.Module,
		client.Module,
		payment.Module,
		delivery.Module,
		subscription.Module,

		// No server module!
		reconciler.Module,
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
