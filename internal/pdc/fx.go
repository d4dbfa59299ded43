package pdc

import (
	"github.com/upkyp/upkyp/internal/pdc/repository"
	"github.com/upkyp/upkyp/internal/pdc/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pdc.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
