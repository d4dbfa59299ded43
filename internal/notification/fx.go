package notification

import (
	"context"

	"github.com/upkyp/upkyp/internal/config"
	notificationdomain "github.com/upkyp/upkyp/internal/notification/domain"
	"github.com/upkyp/upkyp/internal/notification/repository"
	"github.com/upkyp/upkyp/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(cfg config.Config) notificationdomain.Pusher {
		return service.NewHTTPPusher(cfg)
	}),
	fx.Provide(service.NewDispatcher),
	fx.Invoke(RunDispatcher),
)

func RunDispatcher(lc fx.Lifecycle, cfg config.Config, dispatcher *service.Dispatcher) {
	if cfg.DisableOutboxLoop {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go dispatcher.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
