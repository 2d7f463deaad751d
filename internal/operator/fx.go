package operator

import (
	"github.com/smallbiznis/pressline/internal/operator/repository"
	"github.com/smallbiznis/pressline/internal/operator/service"
	"go.uber.org/fx"
)

var Module = fx.Module("operator.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
