package publication

import (
	"github.com/smallbiznis/pressline/internal/publication/repository"
	"github.com/smallbiznis/pressline/internal/publication/service"
	"go.uber.org/fx"
)

var Module = fx.Module("publication.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
