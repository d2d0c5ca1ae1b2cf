package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/shinyyama/closet-market/internal/handler"
	appmw "github.com/shinyyama/closet-market/internal/middleware"
	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/payment"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/service"
)

// Store is the repository layer the server serves from. SetDB lets the
// process accept traffic before the database is reachable.
type Store interface {
	repository.Store
	SetDB(db *gorm.DB)
	Ready() bool
}

type Options struct {
	Store               Store
	Logger              *slog.Logger
	Events              service.EventPublisher
	Metrics             service.TransitionRecorder
	MetricsHandler      http.Handler
	Views               service.ViewDeduper
	Providers           map[model.PaymentMethod]payment.Provider
	Auth                *appmw.AuthMiddleware
	Users               handler.UserDirectory
	AllowedOriginSuffix string
	PlatformFeeRate     float64
	SwapTTL             time.Duration
	Location            *time.Location
	SHA                 string
	BuildTime           string
}

type Server struct {
	e     *echo.Echo
	store Store
	log   *slog.Logger
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Auth == nil {
		opts.Auth = appmw.NewAuthMiddleware(opts.Logger)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(echo.WrapMiddleware(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "api", otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(opts.AllowedOriginSuffix),
	}))

	notifications := service.NewNotificationService(opts.Store.Notifications(), opts.Logger)
	deps := service.Deps{
		Logger:   opts.Logger,
		Events:   opts.Events,
		Metrics:  opts.Metrics,
		Notifier: notifications,
	}
	orders := service.NewOrderService(opts.Store, deps, opts.PlatformFeeRate)
	swaps := service.NewSwapService(opts.Store, deps, opts.SwapTTL)

	orderHandler := handler.NewOrderHandler(orders, opts.Location)
	swapHandler := handler.NewSwapHandler(swaps)
	paymentHandler := handler.NewPaymentHandler(service.NewPaymentService(opts.Store, orders, opts.Providers, deps))
	listingHandler := handler.NewListingHandler(service.NewCatalogService(opts.Store, opts.Views, deps))
	addressHandler := handler.NewAddressHandler(service.NewAddressService(opts.Store))
	shippingHandler := handler.NewShippingHandler(service.NewShippingService(opts.Store))
	notificationHandler := handler.NewNotificationHandler(notifications)
	userHandler := handler.NewUserHandler(service.NewStatsService(opts.Store.Stats()), opts.Users)

	s := &Server{e: e, store: opts.Store, log: opts.Logger}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"db_ready":   boolString(s.store.Ready()),
			"git_sha":    opts.SHA,
			"build_time": opts.BuildTime,
		})
	})
	if opts.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(opts.MetricsHandler))
	}

	api := e.Group("/api", s.requireDB)
	auth := opts.Auth.RequireAuth

	api.GET("/listings", listingHandler.List)
	api.GET("/listings/:id", listingHandler.Get, opts.Auth.OptionalAuth)
	api.GET("/listings/:id/can-ship", shippingHandler.CanShip)
	api.GET("/listings/:id/shipping-quotes", shippingHandler.Quotes, auth)
	api.POST("/listings", listingHandler.Create, auth)
	api.POST("/listings/:id/favorite", listingHandler.ToggleFavorite, auth)
	api.POST("/listings/:id/boost", listingHandler.Boost, auth)
	api.PATCH("/listings/:id/active", listingHandler.SetActive, auth)

	api.GET("/addresses", addressHandler.List, auth)
	api.POST("/addresses", addressHandler.Create, auth)
	api.GET("/addresses/default", addressHandler.GetDefault, auth)
	api.GET("/addresses/:id", addressHandler.Get, auth)
	api.PUT("/addresses/:id/default", addressHandler.SetDefault, auth)

	api.POST("/orders", orderHandler.Create, auth)
	api.GET("/orders", orderHandler.List, auth)
	api.GET("/orders/stats", orderHandler.Stats, auth)
	api.GET("/orders/export", orderHandler.ExportSales, auth)
	api.GET("/orders/:id", orderHandler.Get, auth)
	api.GET("/orders/:id/history", orderHandler.History, auth)
	api.PATCH("/orders/:id/status", orderHandler.UpdateStatus, auth)
	api.PATCH("/orders/:id/payment", orderHandler.UpdatePayment, auth)
	api.POST("/orders/:id/cancel", orderHandler.Cancel, auth)
	api.POST("/orders/:id/rate", orderHandler.Rate, auth)
	api.POST("/orders/:id/payment-intent", paymentHandler.CreateIntent, auth)

	api.POST("/swaps", swapHandler.Propose, auth)
	api.GET("/swaps", swapHandler.List, auth)
	api.GET("/swaps/stats", swapHandler.Stats, auth)
	api.GET("/swaps/:id", swapHandler.Get, auth)
	api.GET("/swaps/:id/history", swapHandler.History, auth)
	api.POST("/swaps/:id/accept", swapHandler.Accept, auth)
	api.POST("/swaps/:id/reject", swapHandler.Reject, auth)
	api.POST("/swaps/:id/cancel", swapHandler.Cancel, auth)
	api.PATCH("/swaps/:id/shipping", swapHandler.UpdateShipping, auth)
	api.POST("/swaps/:id/delivered", swapHandler.MarkDelivered, auth)
	api.POST("/swaps/:id/rate", swapHandler.Rate, auth)

	api.GET("/notifications", notificationHandler.List, auth)
	api.POST("/notifications/read", notificationHandler.MarkAllRead, auth)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead, auth)

	api.GET("/users/:uid/public", userHandler.GetPublic)

	// Provider callbacks are authenticated by their signatures.
	api.GET("/payments/vnpay/return", paymentHandler.VNPayReturn)
	api.GET("/payments/vnpay/ipn", paymentHandler.VNPayIPN)
	api.GET("/payments/momo/return", paymentHandler.MoMoReturn)
	api.POST("/payments/momo/ipn", paymentHandler.MoMoIPN)

	return s
}

func allowOrigin(suffix string) func(origin string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		return suffix != "" && strings.HasSuffix(u.Hostname(), suffix), nil
	}
}

// requireDB answers 503 until SetDB has run.
func (s *Server) requireDB(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.store.Ready() {
			return c.JSON(http.StatusServiceUnavailable, handler.NewErrorResponse("unavailable", "database not ready"))
		}
		return next(c)
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) SetDB(db *gorm.DB) {
	s.store.SetDB(db)
	s.log.Info("database attached")
}
