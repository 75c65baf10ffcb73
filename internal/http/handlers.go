package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"atelier/internal/auth"
	"atelier/internal/domain"
	"atelier/internal/logger"
	"atelier/internal/service"
)

// Deps зависимости HTTP-сервера
type Deps struct {
	Products      *service.ProductService
	Orders        *service.OrderService
	Notifications *service.NotificationService
	JWTSecret     string
	Logger        *slog.Logger
	// Health проверяет хранилище для /healthz; nil означает всегда ok
	Health func(ctx context.Context) error
}

type Server struct {
	engine        *gin.Engine
	products      *service.ProductService
	orders        *service.OrderService
	notifications *service.NotificationService
	secret        string
	logger        *slog.Logger
	health        func(ctx context.Context) error
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	r := gin.New()
	r.Use(logger.GinMiddleware(d.Logger), gin.Recovery())
	s := &Server{
		engine:        r,
		products:      d.Products,
		orders:        d.Orders,
		notifications: d.Notifications,
		secret:        d.JWTSecret,
		logger:        d.Logger,
		health:        d.Health,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", s.healthz)

	staff := auth.RequireStaff(s.secret)

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.GET("", s.listProducts)
		products.GET(":id", s.getProduct)
		products.POST("", staff, s.createProduct)
		products.PUT(":id", staff, s.updateProduct)
		products.DELETE(":id", staff, s.deleteProduct)

		orders := v1.Group("/orders")
		orders.POST("", s.createOrder)
		orders.GET("email/:email", s.listOrdersByEmail)
		orders.GET(":id", s.getOrder)
		orders.GET("", staff, s.listOrders)
		orders.PATCH(":id", staff, s.updateOrder)
		orders.DELETE(":id", auth.Authenticate(s.secret), s.deleteOrder)
		orders.POST("notify", staff, s.notify)
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrInvalidProgress),
		errors.Is(err, domain.ErrMalformedKey),
		errors.Is(err, domain.ErrInvalidKeyComponent):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrVariantNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrProductExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrDeliveryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
