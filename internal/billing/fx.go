package billing

import (
	"github.com/upkyp/upkyp/internal/billing/repository"
	"github.com/upkyp/upkyp/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
