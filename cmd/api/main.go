package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credhealth/internal/adapter/broker/rabbitmq"
	httpadp "credhealth/internal/adapter/http"
	"credhealth/internal/adapter/repository/gormrepo"
	"credhealth/internal/auth"
	"credhealth/internal/config"
	"credhealth/internal/infrastructure/cache"
	"credhealth/internal/infrastructure/db"
	"credhealth/internal/infrastructure/logger"
	"credhealth/internal/infrastructure/metrics"
	"credhealth/internal/jobs"
	"credhealth/internal/relay"
	"credhealth/internal/settlement"
	ucHospital "credhealth/internal/usecase/hospital"
	ucLoan "credhealth/internal/usecase/loan"
	ucUser "credhealth/internal/usecase/user"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), lg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	if cfg.AutoMigrate {
		if err := gormrepo.AutoMigrate(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb, err := cache.OpenRedis(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		return err
	}

	m := metrics.New()
	events := relay.New()
	events.OnChange = m.SetSubscribers

	var settler ucLoan.Settler = settlement.Offline{}
	if cfg.SettlementURL != "" {
		settler = settlement.NewClient(cfg.SettlementURL, cfg.SettlementTimeout, lg.Named("settlement"))
	} else {
		lg.Warn("SETTLEMENT_URL not set; disbursements and repayments settle offline")
	}

	loans := gormrepo.NewLoanRepository(gdb)
	hospitals := gormrepo.NewHospitalRepository(gdb)
	users := gormrepo.NewUserRepository(gdb)

	loanUC := ucLoan.NewUsecase(loans, hospitals, gormrepo.NewGormUoW(gdb),
		ucLoan.WithSettler(settler),
		ucLoan.WithPublisher(events),
		ucLoan.WithObserver(m),
		ucLoan.WithLogger(lg.Named("loan")),
	)
	hospitalUC := ucHospital.NewUsecase(hospitals, lg.Named("hospital"))
	userUC := ucUser.NewUsecase(users, lg.Named("user"))

	// broker forwarding
	var pub rabbitmq.Publisher = rabbitmq.Fallback{Logger: lg}
	if cfg.AMQPURL != "" {
		p, err := rabbitmq.NewProducer(cfg.AMQPURL, lg.Named("rabbitmq"))
		if err != nil {
			lg.Warn("rabbitmq producer unavailable; using fallback", zap.Error(err))
		} else {
			pub = p
		}
	}
	defer pub.Close()
	fwdDone := make(chan struct{})
	go func() {
		defer close(fwdDone)
		rabbitmq.NewForwarder(events, pub, cfg.AMQPExchange, lg.Named("forwarder")).Run(ctx)
	}()

	sched := jobs.NewScheduler(lg)
	if cfg.SweeperEnabled() {
		sweep := jobs.NewDefaultSweep(loanUC, cfg.RepaymentTerm, lg.Named("sweeper"))
		if err := sched.Add("default-sweep", cfg.DefaultSweepSchedule, sweep.Sweep); err != nil {
			return err
		}
	}
	sched.Start()

	e := httpadp.NewRouter(httpadp.RouterConfig{
		Health: httpadp.NewHandler(map[string]httpadp.Pinger{
			"db":    sqlDB.PingContext,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		Loans:          httpadp.NewLoanHandler(loanUC, lg),
		Hospitals:      httpadp.NewHospitalHandler(hospitalUC, lg),
		Users:          httpadp.NewUserHandler(userUC, lg),
		Stream:         httpadp.NewStreamHandler(events, 15*time.Second, lg),
		Tokens:         tokens,
		Redis:          rdb,
		IdempotencyTTL: cfg.IdempotencyTTL(),
		Metrics:        m,
		Logger:         lg.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           e,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// event streams stay open, so no WriteTimeout; they end with BaseContext
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	lg.Info("shutting down")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		lg.Warn("cron jobs still running at shutdown")
	}
	<-fwdDone
	lg.Info("stopped")
	return nil
}
