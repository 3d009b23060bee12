package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/audit"
	"github.com/smallbiznis/metrolab/internal/authorization"
	"github.com/smallbiznis/metrolab/internal/cache"
	"github.com/smallbiznis/metrolab/internal/calibration"
	"github.com/smallbiznis/metrolab/internal/clock"
	"github.com/smallbiznis/metrolab/internal/config"
	"github.com/smallbiznis/metrolab/internal/equipment"
	"github.com/smallbiznis/metrolab/internal/inspection"
	"github.com/smallbiznis/metrolab/internal/migration"
	"github.com/smallbiznis/metrolab/internal/observability"
	"github.com/smallbiznis/metrolab/internal/ratelimit"
	"github.com/smallbiznis/metrolab/internal/server"
	"github.com/smallbiznis/metrolab/internal/verification"
	"github.com/smallbiznis/metrolab/pkg/db"
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
		cache.Module,
		migration.Module,

		// Functional Domains
		equipment.Module,
		calibration.Module,
		inspection.Module,
		audit.Module,
		authorization.Module,
		ratelimit.Module,
		verification.Module,

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
