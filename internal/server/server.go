package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upkyp/upkyp/internal/billing"
	billingdomain "github.com/upkyp/upkyp/internal/billing/domain"
	"github.com/upkyp/upkyp/internal/config"
	"github.com/upkyp/upkyp/internal/lease"
	leasedomain "github.com/upkyp/upkyp/internal/lease/domain"
	"github.com/upkyp/upkyp/internal/notification"
	notificationdomain "github.com/upkyp/upkyp/internal/notification/domain"
	"github.com/upkyp/upkyp/internal/observability"
	obsmiddleware "github.com/upkyp/upkyp/internal/observability/logger"
	obsmetrics "github.com/upkyp/upkyp/internal/observability/metrics"
	obstracing "github.com/upkyp/upkyp/internal/observability/tracing"
	"github.com/upkyp/upkyp/internal/pdc"
	pdcdomain "github.com/upkyp/upkyp/internal/pdc/domain"
	"github.com/upkyp/upkyp/internal/subscription"
	subscriptiondomain "github.com/upkyp/upkyp/internal/subscription/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	billing.Module,
	subscription.Module,
	pdc.Module,
	lease.Module,
	notification.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config

	billingSvc      billingdomain.Service
	subscriptionSvc subscriptiondomain.Service
	pdcSvc          pdcdomain.Service
	leaseSvc        leasedomain.Service
	notificationSvc notificationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	BillingSvc      billingdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	PDCSvc          pdcdomain.Service
	LeaseSvc        leasedomain.Service
	NotificationSvc notificationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,

		billingSvc:      p.BillingSvc,
		subscriptionSvc: p.SubscriptionSvc,
		pdcSvc:          p.PDCSvc,
		leaseSvc:        p.LeaseSvc,
		notificationSvc: p.NotificationSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Billings --------
	api.POST("/billings", s.UpsertBilling)
	api.GET("/billings", s.ListBillings)
	api.GET("/billings/:id", s.GetBillingByID)

	// -------- Subscriptions --------
	api.POST("/subscriptions/payment-status", s.RecordPaymentStatus)
	api.GET("/subscriptions", s.ListSubscriptions)
	api.GET("/subscriptions/active", s.GetActiveSubscription)

	// -------- Post-dated checks --------
	api.POST("/pdcs", s.CreatePDC)
	api.GET("/pdcs", s.ListPDCs)
	api.GET("/pdcs/:id", s.GetPDCByID)
	api.PUT("/pdcs/:id/status", s.UpdatePDCStatus)

	// -------- Leases / renewals --------
	api.GET("/leases/:id", s.GetLeaseByID)
	api.POST("/renewals", s.RequestRenewal)
	api.GET("/renewals", s.ListRenewals)
	api.PUT("/renewals/:id/status", s.UpdateRenewalStatus)

	// -------- Notifications --------
	api.POST("/push-subscriptions", s.RegisterPushSubscription)
	api.GET("/notifications", s.ListNotifications)
	api.PUT("/notifications/:id/read", s.MarkNotificationRead)
}
