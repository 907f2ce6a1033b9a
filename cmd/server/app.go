package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tenant-booking-api/internal/auth"
	"tenant-booking-api/internal/billing"
	"tenant-booking-api/internal/config"
	"tenant-booking-api/internal/logger"
	"tenant-booking-api/internal/mailer"
	"tenant-booking-api/internal/notify"
	"tenant-booking-api/internal/provision"
	"tenant-booking-api/internal/reconcile"
	"tenant-booking-api/internal/store"
)

const serviceName = "tenantd"

// app holds the components shared by every command.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	pool       *pgxpool.Pool
	store      *store.Store
	identity   *auth.Identity
	engine     *reconcile.Engine
	dispatcher *notify.Dispatcher
}

func newApp(ctx context.Context, configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	log.Info("connected to postgres")
	st := store.New(pool)

	var sender notify.Sender = mailer.NewLogSender(log)
	if cfg.SendGridAPIKey != "" {
		sender = mailer.NewSendGrid(cfg.SendGridURL, cfg.SendGridAPIKey, log)
	} else {
		log.Warn("sendgrid_api_key not configured, emails are only logged")
	}

	dispatcher := notify.New(st, sender, notify.Options{
		From:   cfg.MailFrom,
		Locale: cfg.Locale,
		Zone:   cfg.Zone(),
		Window: cfg.ReminderWindow,
	}, log)

	return &app{
		cfg:        cfg,
		log:        log,
		pool:       pool,
		store:      st,
		identity:   auth.NewIdentity(st, cfg.JWTSecret, cfg.TokenTTL),
		engine:     reconcile.New(st, log),
		dispatcher: dispatcher,
	}, nil
}

func (a *app) workflow() *provision.Workflow {
	// a nil *billing.Client must not reach the interface
	var b provision.Billing
	if a.cfg.MercadoPagoToken != "" {
		b = billing.New(a.cfg.MercadoPagoURL, a.cfg.MercadoPagoToken, a.log)
	} else {
		a.log.Warn("mercadopago_token not configured, billing customers are skipped")
	}
	return provision.New(a.store, a.identity, b, a.cfg.SuperAdminEmail, a.log)
}

func (a *app) close() {
	a.pool.Close()
	_ = a.log.Sync()
}
