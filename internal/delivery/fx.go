package delivery

import (
	"github.com/smallbiznis/pressline/internal/delivery/repository"
	"github.com/smallbiznis/pressline/internal/delivery/schedule"
	"github.com/smallbiznis/pressline/internal/delivery/service"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery.service",
	fx.Provide(repository.Provide),
	fx.Provide(schedule.New),
	fx.Provide(service.New),
)
