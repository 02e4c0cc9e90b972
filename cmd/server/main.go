package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	jwttoken "guardian/internal/jwt_token"
	"guardian/internal/notify"
	"guardian/internal/platform/config"
	"guardian/internal/platform/httpserver"
	"guardian/internal/platform/logger"
	"guardian/internal/platform/metrics"
	"guardian/internal/ratelimit"
	httptransport "guardian/internal/transport/http"
	"guardian/internal/workflow"
	"guardian/internal/workflow/handler"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "guardian: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("guardian exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := metrics.NewRegistry()

	stores, err := buildStores(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer stores.close()

	sender, closeSender, err := buildSender(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSender()

	dispatcher := notify.NewDispatcher(sender, log,
		notify.WithAttempts(cfg.Notify.Attempts),
		notify.WithBaseDelay(cfg.Notify.BaseDelay),
		notify.WithCircuitBreaker(notify.NewCircuitBreaker(cfg.Notify.BreakerThreshold, cfg.Notify.BreakerCooldown)),
		notify.WithMetrics(notify.NewMetrics(reg)),
	)

	engineOpts := []workflow.Option{
		workflow.WithLogger(log),
		workflow.WithMetrics(workflow.NewMetrics(reg)),
		workflow.WithRecipients(cfg.Notify.ITSupportEmail, cfg.Notify.HROnboardingEmail),
		workflow.WithNotifyTimeout(cfg.Notify.Timeout),
	}
	if stores.locker != nil {
		engineOpts = append(engineOpts, workflow.WithLocker(stores.locker))
	}
	engine := workflow.New(stores.directory, stores.policies, stores.ledger, dispatcher, engineOpts...)

	var limiter *ratelimit.Limiter
	if cfg.Limit.Requests > 0 {
		limiter = ratelimit.NewLimiter(stores.rateStore, cfg.Limit.Requests, cfg.Limit.Window,
			ratelimit.WithMetrics(ratelimit.NewMetrics(reg)))
	}

	tokens := jwttoken.NewJWTService(cfg.Server.SigningKey, cfg.Server.TokenIssuer, cfg.Server.TokenAudience)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Gatherer:  reg,
		HTTP:      metrics.NewHTTP(reg),
		Validator: jwttoken.NewMiddlewareValidator(tokens),
		Limiter:   limiter,
		Handlers:  []httptransport.RouteRegistrar{handler.New(engine, stores.ledger, log)},
		Checks:    stores.checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router, httpserver.WithMinWriteTimeout(cfg.Notify.Timeout+shutdownTimeout))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting guardian",
			"addr", cfg.Server.Addr,
			"store_driver", cfg.Store.Driver,
			"notify_driver", cfg.Notify.Driver,
			"distributed_lock", stores.locker != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
