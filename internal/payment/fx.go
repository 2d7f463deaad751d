package payment

import (
	"github.com/smallbiznis/pressline/internal/payment/repository"
	"go.uber.org/fx"
)

// Module provides payment persistence; payment workflows live in the subscription service.
var Module = fx.Module("payment.repository",
	fx.Provide(repository.Provide),
)
