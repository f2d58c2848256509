package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/codemart/internal/audit/domain"
	"github.com/smallbiznis/codemart/internal/authorization"
	"github.com/smallbiznis/codemart/internal/config"
	ledgerdomain "github.com/smallbiznis/codemart/internal/ledger/domain"
	"github.com/smallbiznis/codemart/internal/observability"
	obsmiddleware "github.com/smallbiznis/codemart/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/codemart/internal/observability/metrics"
	obstracing "github.com/smallbiznis/codemart/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/codemart/internal/order/domain"
	statsdomain "github.com/smallbiznis/codemart/internal/stats/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics, log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Log       *zap.Logger
	OrderSvc  orderdomain.Service
	LedgerSvc ledgerdomain.Service
	StatsSvc  statsdomain.Service
	AuthzSvc  authorization.Service `optional:"true"`
	AuditSvc  auditdomain.Service   `optional:"true"`
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	log       *zap.Logger
	orderSvc  orderdomain.Service
	ledgerSvc ledgerdomain.Service
	statsSvc  statsdomain.Service
	authzSvc  authorization.Service
	auditSvc  auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		log:       p.Log.Named("http.server"),
		orderSvc:  p.OrderSvc,
		ledgerSvc: p.LedgerSvc,
		statsSvc:  p.StatsSvc,
		authzSvc:  p.AuthzSvc,
		auditSvc:  p.AuditSvc,
	}
}

// RegisterRoutes mounts the marketplace API under /v1. Every route requires
// the trusted identity headers.
func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1", Identity())

	orders := v1.Group("/orders")
	orders.POST("", s.CreateOrder)
	orders.GET("", s.ListOrders)
	orders.GET("/:id", s.GetOrder)
	orders.POST("/:id/pay", s.PayOrder)
	orders.POST("/:id/cancel", s.CancelOrder)
	orders.POST("/:id/complete", s.CompleteOrder)
	orders.POST("/:id/refund", s.RefundOrder)

	me := v1.Group("/me")
	me.GET("/stats", s.MyStats)
	me.GET("/accounts", s.MyAccounts)
	me.GET("/transactions", s.MyTransactions)

	v1.GET("/projects/:id/downloads/stats", s.DownloadStats)

	admin := v1.Group("/admin", RequireSystem())
	admin.POST("/grants", s.GrantPoints)
	if s.auditSvc != nil {
		admin.GET("/audit-logs", s.ListAuditLogs)
	}
}
