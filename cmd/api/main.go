package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"github.com/shinyyama/closet-market/internal/cache"
	"github.com/shinyyama/closet-market/internal/config"
	"github.com/shinyyama/closet-market/internal/db"
	"github.com/shinyyama/closet-market/internal/events"
	"github.com/shinyyama/closet-market/internal/handler"
	appmw "github.com/shinyyama/closet-market/internal/middleware"
	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/payment"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/server"
	"github.com/shinyyama/closet-market/internal/service"
	"github.com/shinyyama/closet-market/internal/telemetry"
)

// Set at build time with -ldflags.
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceVersion)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()
	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceVersion)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownMeter(context.Background()) }()
	lifecycleMetrics, err := telemetry.NewLifecycleMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}

	var publisher service.EventPublisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrdersTopic, cfg.KafkaSwapsTopic)
		defer func() { _ = kp.Close() }()
		publisher = kp
	} else {
		logger.Info("KAFKA_BROKERS not set; lifecycle events are not published")
	}

	redisClient := cache.NewClient(cfg.RedisAddr)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	views := cache.NewViewDeduper(redisClient, cfg.ViewDedupTTL)

	verifiers := []appmw.Verifier{}
	var users handler.UserDirectory
	if cfg.FirebaseProjectID != "" {
		fv, err := appmw.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID)
		if err != nil {
			return err
		}
		verifiers = append(verifiers, fv)
		users = fv.Client()
	} else {
		logger.Warn("FIREBASE_PROJECT_ID not set; end-user tokens are rejected")
	}
	if cfg.ServiceJWTSecret != "" {
		verifiers = append(verifiers, appmw.NewServiceTokenVerifier(cfg.ServiceJWTSecret))
	}

	providers := map[model.PaymentMethod]payment.Provider{
		model.PaymentMethodVNPay: payment.NewVNPay(payment.VNPayConfig{
			TmnCode:    cfg.VNPayTmnCode,
			HashSecret: cfg.VNPayHashSecret,
			URL:        cfg.VNPayURL,
			ReturnURL:  cfg.VNPayReturnURL,
		}),
		model.PaymentMethodMoMo: payment.NewMoMo(payment.MoMoConfig{
			PartnerCode: cfg.MoMoPartnerCode,
			AccessKey:   cfg.MoMoAccessKey,
			SecretKey:   cfg.MoMoSecretKey,
			Endpoint:    cfg.MoMoEndpoint,
			RedirectURL: cfg.MoMoRedirectURL,
			IPNURL:      cfg.MoMoIPNURL,
		}, nil),
	}

	store := repository.NewStore(nil)
	srv := server.New(server.Options{
		Store:               store,
		Logger:              logger,
		Events:              publisher,
		Metrics:             lifecycleMetrics,
		MetricsHandler:      metricsHandler,
		Views:               views,
		Providers:           providers,
		Auth:                appmw.NewAuthMiddleware(logger, verifiers...),
		Users:               users,
		AllowedOriginSuffix: cfg.AllowedOriginSuffix,
		PlatformFeeRate:     cfg.PlatformFeeRate,
		SwapTTL:             cfg.SwapTTL,
		Location:            time.FixedZone("ICT", 7*60*60),
		SHA:                 gitSHA,
		BuildTime:           buildTime,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("starting server", "addr", addr)
		errCh <- srv.Start(addr)
	}()

	// The listener comes up first so health checks pass while the database
	// is still starting.
	go func() {
		conn, err := db.Connect(cfg)
		if err != nil {
			logger.Error("db connect failed", "error", err)
			return
		}
		if err := db.Migrate(conn); err != nil {
			logger.Error("auto migrate failed", "error", err)
			return
		}
		srv.SetDB(conn)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
