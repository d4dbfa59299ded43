package lease

import (
	"github.com/upkyp/upkyp/internal/lease/repository"
	"github.com/upkyp/upkyp/internal/lease/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lease.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
