package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	clientdomain "github.com/smallbiznis/pressline/internal/client/domain"
	"github.com/smallbiznis/pressline/internal/config"
	deliverydomain "github.com/smallbiznis/pressline/internal/delivery/domain"
	"github.com/smallbiznis/pressline/internal/observability"
	obslogger "github.com/smallbiznis/pressline/internal/observability/logger"
	obstracing "github.com/smallbiznis/pressline/internal/observability/tracing"
	operatordomain "github.com/smallbiznis/pressline/internal/operator/domain"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
	subscriptiondomain "github.com/smallbiznis/pressline/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	return NewEngine(obsCfg, log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

type Server struct {
	engine          *gin.Engine
	operatorSvc     operatordomain.Service
	publicationSvc  publicationdomain.Service
	clientSvc       clientdomain.Service
	subscriptionSvc subscriptiondomain.Service
	deliverySvc     deliverydomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	OperatorSvc     operatordomain.Service
	PublicationSvc  publicationdomain.Service
	ClientSvc       clientdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	DeliverySvc     deliverydomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		operatorSvc:     p.OperatorSvc,
		publicationSvc:  p.PublicationSvc,
		clientSvc:       p.ClientSvc,
		subscriptionSvc: p.SubscriptionSvc,
		deliverySvc:     p.DeliverySvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/v1/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.OperatorRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1", s.OperatorRequired())

	// -------- Catalog --------
	api.GET("/categories", s.ListCategories)
	api.POST("/categories", s.CreateCategory)
	api.GET("/publications", s.ListPublications)
	api.POST("/publications", s.CreatePublication)
	api.GET("/publications/:id", s.GetPublication)
	api.PATCH("/publications/:id/availability", s.SetPublicationAvailability)
	api.GET("/publications/:id/quote", s.QuotePublication)
	api.GET("/services", s.ListAdditionalServices)
	api.POST("/services", s.CreateAdditionalService)

	// -------- Clients --------
	api.GET("/clients", s.SearchClients)
	api.POST("/clients", s.RegisterClient)
	api.GET("/clients/:id", s.GetClient)

	// -------- Subscriptions --------
	api.GET("/subscriptions", s.ListSubscriptions)
	api.POST("/subscriptions", s.CreateSubscription)
	api.POST("/subscriptions/cancel-overdue", s.CancelOverduePayments)
	api.GET("/subscriptions/:id", s.GetSubscription)
	api.PATCH("/subscriptions/:id", s.UpdateSubscription)
	api.POST("/subscriptions/:id/activate", s.ActivateSubscription)
	api.GET("/subscriptions/:id/payments", s.ListPayments)
	api.POST("/subscriptions/:id/payments", s.RecordPayment)
	api.GET("/subscriptions/:id/deliveries", s.ListDeliveries)
	api.GET("/subscriptions/:id/services", s.ListSubscriptionServices)

	// -------- Payments --------
	api.POST("/payments/:id/confirm", s.ConfirmPayment)
	api.POST("/payments/:id/reject", s.RejectPayment)
	api.POST("/payments/:id/refund", s.RefundPayment)

	// -------- Deliveries --------
	api.PATCH("/deliveries/:id/status", s.UpdateDeliveryStatus)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
