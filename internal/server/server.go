package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/railzwaylabs/federation/internal/config"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	gatewaydomain "github.com/railzwaylabs/federation/internal/gateway/domain"
	notificationdomain "github.com/railzwaylabs/federation/internal/notification/domain"
	"github.com/railzwaylabs/federation/internal/observability"
	paymentdomain "github.com/railzwaylabs/federation/internal/payment/domain"
	"github.com/railzwaylabs/federation/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssetStore is the object storage surface used by the asset routes.
type AssetStore interface {
	UploadLogo(ctx context.Context, name string, r io.Reader, size int64, contentType string) (*storage.Object, error)
	PresignDocument(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	DB      *gorm.DB
	Redis   *redis.Client          `optional:"true"`
	Metrics *observability.Metrics `optional:"true"`

	Enrollment    enrollmentdomain.Service
	Gateways      gatewaydomain.Service
	Checkout      paymentdomain.CheckoutService
	Webhooks      paymentdomain.WebhookService
	Notifications notificationdomain.Service
	Storage       *storage.Service `optional:"true"`
}

type Server struct {
	log     *zap.Logger
	cfg     config.Config
	db      *gorm.DB
	redis   *redis.Client
	metrics *observability.Metrics

	enrollmentSvc   enrollmentdomain.Service
	gatewaySvc      gatewaydomain.Service
	checkoutSvc     paymentdomain.CheckoutService
	webhookSvc      paymentdomain.WebhookService
	notificationSvc notificationdomain.Service
	assets          AssetStore

	engine *gin.Engine
}

func New(p Params) *Server {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		log:             p.Log.Named("http"),
		cfg:             p.Cfg,
		db:              p.DB,
		redis:           p.Redis,
		metrics:         p.Metrics,
		enrollmentSvc:   p.Enrollment,
		gatewaySvc:      p.Gateways,
		checkoutSvc:     p.Checkout,
		webhookSvc:      p.Webhooks,
		notificationSvc: p.Notifications,
	}
	if p.Storage != nil {
		s.assets = p.Storage
	}
	s.engine = s.newEngine()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(s.RequestID(), s.Recovery(), s.AccessLog(), s.Instrument())
	r.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": errorBody{Type: ErrorTypeNotFound, Message: "route not found"}})
	})
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.Health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.POST("/webhooks/payment", s.HandlePaymentWebhook)
	api.POST("/checkout", s.CreateCheckout)
	api.GET("/charges/:id", s.GetCharge)
	api.POST("/memberships", s.CreateMembership)
	api.POST("/registrations/events", s.CreateEventRegistration)
	api.POST("/clubs", s.CreateClub)
	api.GET("/entities/:type/:id", s.GetEntity)

	admin := api.Group("/admin", s.AdminRequired())

	admin.GET("/gateways", s.ListGateways)
	admin.POST("/gateways", s.CreateGateway)
	admin.GET("/gateways/:id", s.GetGateway)
	admin.PATCH("/gateways/:id", s.UpdateGateway)
	admin.DELETE("/gateways/:id", s.DeleteGateway)
	admin.POST("/gateways/:id/toggle", s.ToggleGateway)

	admin.GET("/entities/:type", s.ListEntities)
	admin.POST("/entities/:type/:id/status", s.OverrideEntityStatus)

	admin.GET("/charges", s.ListCharges)
	admin.POST("/charges/:id/confirm", s.ConfirmCharge)

	admin.GET("/notifications/configs", s.ListNotificationConfigs)
	admin.GET("/notifications/configs/:channel", s.GetNotificationConfig)
	admin.PUT("/notifications/configs/:channel", s.UpsertNotificationConfig)
	admin.POST("/notifications/configs/:channel/test", s.SendTestNotification)
	admin.GET("/notifications/logs", s.ListNotificationLogs)

	admin.POST("/assets/logos", s.UploadLogo)
	admin.GET("/assets/documents/presign", s.PresignDocument)
}
