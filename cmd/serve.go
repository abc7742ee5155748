package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-contact/app/controller"
	grpcserver "github.com/vibast-solutions/ms-go-contact/app/grpc"
	"github.com/vibast-solutions/ms-go-contact/app/operatorlog"
	"github.com/vibast-solutions/ms-go-contact/app/provider"
	"github.com/vibast-solutions/ms-go-contact/app/ratelimit"
	"github.com/vibast-solutions/ms-go-contact/app/service"
	"github.com/vibast-solutions/ms-go-contact/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

const (
	generalRateLimitMessage = "Too many requests from this IP, please try again later."
	contactRateLimitMessage = "Too many contact requests from this IP, please try again later."
	bodyLimit               = "10M"
	developmentOrigin       = "http://localhost:3000"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the contact service.",
	Run:   runServe,
}

// init registers the serve command.
func init() {
	rootCmd.AddCommand(serveCmd)
}

// rateStores holds the general and contact limiters.
type rateStores struct {
	general echomiddleware.RateLimiterStore
	contact echomiddleware.RateLimiterStore
}

// runServe wires dependencies and starts HTTP and gRPC servers.
func runServe(_ *cobra.Command, _ []string) {
	cfg, logger := loadConfig()
	ctx := context.Background()

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	db, err := openMySQL(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	sinks, err := buildSinks(cfg, rdb, db)
	if err != nil {
		logger.Fatalf("Failed to build operator log sinks: %v", err)
	}
	recorder := operatorlog.New(logger, sinks...)
	defer recorder.Close()

	backends, err := buildBackends(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to build email backends: %v", err)
	}
	logBackends(logger, backends)

	stores, err := buildRateStores(cfg, rdb, logger)
	if err != nil {
		logger.Fatalf("Failed to build rate limiters: %v", err)
	}

	recipient := provider.Recipient{Email: cfg.RecipientEmail, Name: cfg.RecipientName}
	policy := service.RetryPolicy{MaxAttempts: cfg.MaxAttempts, BackoffStep: cfg.BackoffStep}
	deliveryService := service.NewDeliveryService(backends, recipient, policy, recorder, logger)
	reporter := service.NewReporter(cfg.DiagnosticMode, logger)

	contactController := controller.NewContactController(deliveryService, reporter)
	grpcContactServer := grpcserver.NewServer(deliveryService, reporter)

	e := setupHTTPServer(cfg, contactController, stores)
	grpcServer, lis := setupGRPCServer(cfg, grpcContactServer, stores, logger)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
		logger.Infof("Starting HTTP server on %s", httpAddr)
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	go func() {
		logger.Infof("Starting gRPC server on %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatalf("gRPC server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}
	grpcServer.GracefulStop()

	logger.Info("Server stopped")
}

// buildRateStores uses Redis counters when Redis is available so limits
// hold across replicas, and per-process counters otherwise.
func buildRateStores(cfg *config.Config, rdb *redis.Client, logger logrus.FieldLogger) (rateStores, error) {
	if rdb == nil {
		general, err := ratelimit.NewMemoryStore(cfg.GeneralRateLimit, cfg.RateLimitWindow)
		if err != nil {
			return rateStores{}, err
		}
		contact, err := ratelimit.NewMemoryStore(cfg.ContactRateLimit, cfg.RateLimitWindow)
		if err != nil {
			return rateStores{}, err
		}
		return rateStores{general: general, contact: contact}, nil
	}

	general, err := ratelimit.NewRedisStore(rdb, "api", cfg.GeneralRateLimit, cfg.RateLimitWindow, logger)
	if err != nil {
		return rateStores{}, err
	}
	contact, err := ratelimit.NewRedisStore(rdb, "contact", cfg.ContactRateLimit, cfg.RateLimitWindow, logger)
	if err != nil {
		return rateStores{}, err
	}
	return rateStores{general: general, contact: contact}, nil
}

// corsOrigins returns the allowed origins; nil means no cross-origin access.
func corsOrigins(cfg *config.Config) []string {
	if len(cfg.FrontendURLs) > 0 {
		return cfg.FrontendURLs
	}
	if strings.EqualFold(cfg.Environment, "production") {
		return nil
	}
	return []string{developmentOrigin}
}

// setupHTTPServer configures the Echo HTTP server and routes.
func setupHTTPServer(cfg *config.Config, contactController *controller.ContactController, stores rateStores) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.Secure())
	if origins := corsOrigins(cfg); len(origins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowCredentials: true,
		}))
	}
	e.Use(echomiddleware.BodyLimit(bodyLimit))

	api := e.Group("/api", ratelimit.Middleware(stores.general, generalRateLimitMessage, nil))
	api.GET("/health", controller.Health)
	api.POST("/contact", contactController.Submit, ratelimit.Middleware(stores.contact, contactRateLimitMessage, nil))

	return e
}

// setupGRPCServer builds the gRPC server and listener.
func setupGRPCServer(cfg *config.Config, contactServer *grpcserver.Server, stores rateStores, logger logrus.FieldLogger) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPCHost, cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Fatalf("Failed to listen on gRPC port: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(ratelimit.UnaryServerInterceptor(stores.contact, contactRateLimitMessage)),
	)
	grpcserver.Register(grpcServer, contactServer)

	return grpcServer, lis
}

func logBackends(logger logrus.FieldLogger, backends []provider.EmailBackend) {
	if len(backends) == 0 {
		logger.Warn("No email backend configured, submissions will only be recorded in the operator log")
		return
	}
	for i, b := range backends {
		logger.WithFields(logrus.Fields{"priority": i + 1, "backend": b.Kind().String(), "name": b.Name()}).Info("Email backend enabled")
	}
}
