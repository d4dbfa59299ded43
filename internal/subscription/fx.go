package subscription

import (
	"github.com/upkyp/upkyp/internal/subscription/repository"
	"github.com/upkyp/upkyp/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
