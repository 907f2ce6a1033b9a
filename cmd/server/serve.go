package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tenant-booking-api/internal/cache"
	"tenant-booking-api/internal/feed"
	"tenant-booking-api/internal/handler"
	"tenant-booking-api/internal/middleware"
	"tenant-booking-api/internal/ops"
	"tenant-booking-api/internal/scheduler"
	"tenant-booking-api/internal/telemetry"
	"tenant-booking-api/internal/trigger"
)

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, ops gRPC port, change feed consumers and reminder scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configFile)
		},
	}
}

func serve(ctx context.Context, configFile string) error {
	a, err := newApp(ctx, configFile)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, log := a.cfg, a.log

	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, cfg.OTLPEndpoint, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	tenants, err := cache.NewTenants(a.store, cfg.TenantCacheSize, cfg.TenantCacheTTL)
	if err != nil {
		return err
	}
	defer tenants.Close()

	rl := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	defer rl.Stop()

	h := handler.New(a.workflow(), tenants, a.identity, log)
	httpSrv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           h.Routes(rl, telemetry.HTTPMiddleware(serviceName)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	checks := map[string]ops.Check{"database": a.store.Ping}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.NATSURL != "" {
		q, err := feed.Connect(ctx, cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer q.Close()
		checks["nats"] = func(context.Context) error {
			if !q.Healthy() {
				return errors.New("nats disconnected")
			}
			return nil
		}

		router := trigger.NewRouter(a.store, a.engine, a.dispatcher, log)
		stopConsume, err := q.Subscribe(ctx, "tenantd-triggers", feed.AllSubjects, router.Handle)
		if err != nil {
			return err
		}
		defer stopConsume()

		relay := feed.NewRelay(a.store, q, cfg.RelayInterval, cfg.RelayBatch, log)
		g.Go(func() error { return relay.Run(gctx) })
	} else {
		log.Warn("nats_url not configured, change feed triggers are disabled")
	}

	var lease scheduler.Lease
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		lease = scheduler.NewRedisLease(rdb, "tenantd:lease:reminder-sweep")
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	sched := scheduler.New(a.dispatcher, lease, cfg.SweepInterval, log)
	g.Go(func() error { return sched.Run(gctx) })

	opsSrv := ops.New(checks, 10*time.Second, rl, log)
	g.Go(func() error { return opsSrv.Serve(gctx, net.JoinHostPort("", cfg.OpsPort)) })

	g.Go(func() error {
		log.Info("http listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	return g.Wait()
}
