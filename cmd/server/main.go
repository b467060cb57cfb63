package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/leemont-hostel/internal/config"
	"github.com/iliyamo/leemont-hostel/internal/database"
	"github.com/iliyamo/leemont-hostel/internal/handler"
	"github.com/iliyamo/leemont-hostel/internal/middleware"
	"github.com/iliyamo/leemont-hostel/internal/notify"
	"github.com/iliyamo/leemont-hostel/internal/payment"
	"github.com/iliyamo/leemont-hostel/internal/queue"
	"github.com/iliyamo/leemont-hostel/internal/repository"
	"github.com/iliyamo/leemont-hostel/internal/router"
	"github.com/iliyamo/leemont-hostel/internal/seed"
	"github.com/iliyamo/leemont-hostel/internal/service"
	"github.com/iliyamo/leemont-hostel/internal/worker"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins

	cfg := config.Load()
	log := cfg.NewLogger()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, log)
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("db migrate failed")
	}

	// repositories
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	roomRepo := repository.NewRoomRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	hostelRepo := repository.NewHostelRepo(db)
	settlement := repository.NewSettlementRepo(db, bookingRepo, roomRepo)

	if err := seed.Run(ctx, seed.Stores{Users: userRepo, Rooms: roomRepo, Hostel: hostelRepo},
		seed.Options{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword, BcryptCost: cfg.BcryptCost},
		log); err != nil {
		log.WithError(err).Fatal("seed failed")
	}

	// Redis backs the response cache and the rate limiter; nil disables both.
	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	gateway := payment.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.Timeout, log)
	publisher := queue.NewPublisher(cfg.RabbitURL, log)

	bookings := service.NewBookingService(roomRepo, bookingRepo, settlement, gateway, publisher, userRepo,
		service.BookingConfig{CallbackURL: cfg.CallbackURL(), Location: cfg.BookingTZ, Log: log})

	consumer := &queue.Consumer{URL: cfg.RabbitURL, LogDir: cfg.EventLogDir, Log: log}
	if cfg.Mail.Enabled() {
		m := cfg.Mail
		consumer.Mailer = notify.NewMailer(m.Host, m.Port, m.Username, m.Password, m.From,
			seed.DefaultHostel().Name, cfg.AppURL)
	}
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("event consumer stopped")
		}
	}()

	sched, err := worker.NewScheduler(log)
	if err != nil {
		log.WithError(err).Fatal("scheduler setup failed")
	}
	if cfg.Reconcile.Enabled {
		rec := service.NewReconciler(bookingRepo, bookings, cfg.Reconcile.StaleAfter, cfg.Reconcile.Batch, log)
		if err := sched.AddSweep(rec, cfg.Reconcile.Interval, cfg.Reconcile.Interval); err != nil {
			log.WithError(err).Fatal("schedule reconciliation")
		}
	}
	err = sched.Every("purge-expired-refresh-tokens", 6*time.Hour, time.Minute, func(ctx context.Context) error {
		n, err := tokenRepo.DeleteExpired(ctx, time.Now())
		if err == nil && n > 0 {
			log.WithField("deleted", n).Info("expired refresh tokens purged")
		}
		return err
	})
	if err != nil {
		log.WithError(err).Fatal("schedule token cleanup")
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.WithError(err).Warn("scheduler stop")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo, tokenRepo), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(roomRepo, hostelRepo), middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterBooking(e, handler.NewBookingHandler(bookings, userRepo, log), cfg.JWTSecret,
		middleware.NewTokenBucket(rateCfg, rdb, log))
	router.RegisterAdmin(e, handler.NewAdminHandler(roomRepo, hostelRepo,
		middleware.NewCachePurger(cacheCfg, rdb), log), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
}
