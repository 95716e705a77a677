// Package app wires the storefront service together: configuration,
// database, domain services, payment gateway, HTTP server, and
// graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/shopkart/storefront/internal/domain/cart"
	"github.com/shopkart/storefront/internal/domain/coupon"
	"github.com/shopkart/storefront/internal/domain/order"
	"github.com/shopkart/storefront/internal/handler"
	"github.com/shopkart/storefront/internal/payment"
	"github.com/shopkart/storefront/internal/payment/razorpay"
	"github.com/shopkart/storefront/internal/storage/postgres"
	"github.com/shopkart/storefront/pkg/health"
	"github.com/shopkart/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles
// graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health probes.
	healthSvc := health.New()
	healthSvc.Register(health.ProbeReady, "postgres", 5*time.Second, health.DatabaseCheck(pool))
	healthSvc.Register(health.ProbeLive, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	addressRepo := postgres.NewAddressRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	paymentLogRepo := postgres.NewPaymentLogRepository(pool)

	// Domain services.
	cartService := cart.NewService(cartRepo)
	couponValidator := coupon.NewRepoValidator(couponRepo)
	orderService := order.NewService(cartService, couponValidator, addressRepo, orderRepo)

	// Payment gateway. Missing credentials leave the client nil; the
	// adapter fails closed on the online-payment paths and COD keeps
	// working.
	var gateway *razorpay.Client
	if cfg.Razorpay.KeyID != "" && cfg.Razorpay.KeySecret != "" {
		gateway, err = razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
		if err != nil {
			return errors.Wrap(err, "create gateway client")
		}
	} else {
		lg.Warn("Razorpay credentials absent, online payments disabled")
	}
	paymentAdapter := payment.NewAdapter(
		cfg.gatewayConfig(), gateway, orderService, orderRepo, paymentLogRepo, cartService)

	// HTTP surface.
	h := handler.NewHandler(productRepo, cartService, couponValidator, orderService, orderRepo, paymentAdapter)
	authn := handler.APIKeyAuth(apikeyRepo, []byte(cfg.APIKeyPepper))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.Handler(health.ProbeLive))
	mux.HandleFunc("/readyz", healthSvc.Handler(health.ProbeReady))
	h.Routes(mux, authn)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(otelhttp.NewHandler(mux, "api"),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-API-Key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: flip readiness, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
