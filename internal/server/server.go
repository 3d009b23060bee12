package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/metrolab/internal/audit/domain"
	"github.com/smallbiznis/metrolab/internal/authorization"
	"github.com/smallbiznis/metrolab/internal/config"
	"github.com/smallbiznis/metrolab/internal/observability"
	obsmiddleware "github.com/smallbiznis/metrolab/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/metrolab/internal/observability/metrics"
	obstracing "github.com/smallbiznis/metrolab/internal/observability/tracing"
	verificationdomain "github.com/smallbiznis/metrolab/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
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
			log.Info("http server listening", zap.String("addr", addr))
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
	log             *zap.Logger
	verificationSvc verificationdomain.Service
	auditSvc        auditdomain.Service
	authzSvc        authorization.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	VerificationSvc verificationdomain.Service
	AuditSvc        auditdomain.Service
	AuthzSvc        authorization.Service `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		verificationSvc: p.VerificationSvc,
		auditSvc:        p.AuditSvc,
		authzSvc:        p.AuthzSvc,
	}

	svc.RegisterAPIRoutes()
	return svc
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.IdentityRequired())

	api.POST("/equipment/:id/verifications", s.CreateVerification)
	api.GET("/equipment/:id/verifications", s.ListVerifications)
	api.GET("/verifications/:id", s.GetVerification)
	api.PATCH("/verifications/:id", s.UpdateVerification)

	api.GET("/audit-logs", s.RequireRole(authorization.RoleSupervisor, authorization.RoleAuditor, authorization.RoleAdmin), s.authorizeCompanyAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
