package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/numeratel/numera/internal/config"
	"github.com/numeratel/numera/internal/observability"
	obsmiddleware "github.com/numeratel/numera/internal/observability/logger"
	obsmetrics "github.com/numeratel/numera/internal/observability/metrics"
	obstracing "github.com/numeratel/numera/internal/observability/tracing"
	tenantdomain "github.com/numeratel/numera/internal/tenantconfig/domain"
	txdomain "github.com/numeratel/numera/internal/transaction/domain"
	webhookdomain "github.com/numeratel/numera/internal/webhook/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
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
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	webhookSvc      webhookdomain.Service
	tenantConfigSvc tenantdomain.Service
	transactionSvc  txdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	WebhookSvc      webhookdomain.Service
	TenantConfigSvc tenantdomain.Service
	TransactionSvc  txdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		webhookSvc:      p.WebhookSvc,
		tenantConfigSvc: p.TenantConfigSvc,
		transactionSvc:  p.TransactionSvc,
	}
	s.registerAPIRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/razorpay")

	api.POST("/webhook/:tenantId", s.HandleWebhook)
	api.GET("/webhook-url/:resellerId", s.HandleWebhookURL)

	api.POST("/config", s.HandleUpsertConfig)
	api.GET("/config/:resellerId", s.HandleGetConfig)

	api.GET("/transactions", s.HandleListTransactions)
	api.GET("/transactions/stats", s.HandleTransactionStats)
}
