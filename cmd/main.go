package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atelier/internal/config"
	httpapi "atelier/internal/http"
	"atelier/internal/logger"
	"atelier/internal/mail"
	"atelier/internal/repository"
	"atelier/internal/service"

	_ "atelier/docs"
)

// @title Atelier API
// @version 1.0
// @description Boutique orders with per-variant tailoring progress and customer notifications.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	rollback := flag.Bool("rollback", false, "revert the last applied migration and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	lc := logger.DefaultConfig()
	lc.Level = logger.LogLevel(cfg.Log.Level)
	lc.Format = cfg.Log.Format
	log := logger.New(lc)
	log.Info("starting", "config", cfg.String(), "sqlite_driver", repository.DriverName, "build", repository.BuildMode)

	db, err := repository.Open(cfg.Database.Path)
	if err != nil {
		log.Error("open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *rollback {
		if err := repository.RollbackLast(db); err != nil {
			log.Error("rollback failed", "error", err)
			os.Exit(1)
		}
		log.Info("last migration reverted")
		return
	}

	store := repository.NewSQLiteStore(db)
	ordersRepo := repository.NewSQLiteOrders(store)
	tx := repository.NewSQLiteTx(store)

	var sender mail.Sender
	if cfg.Mail.Host == "" {
		log.Warn("SMTP_HOST is empty, notifications are logged only")
		sender = mail.NewLogSender(logger.WithComponent(log, "mail"))
	} else {
		sender, err = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		if err != nil {
			log.Error("smtp config", "error", err)
			os.Exit(1)
		}
	}

	productsSvc := service.NewProductService(store)
	ordersSvc := service.NewOrderService(productsSvc, ordersRepo, tx, logger.WithComponent(log, "orders"))
	notifySvc := service.NewNotificationService(ordersRepo, productsSvc, sender, cfg.Mail.BrandName, logger.WithComponent(log, "notify"))

	srv := httpapi.NewServer(httpapi.Deps{
		Products:      productsSvc,
		Orders:        ordersSvc,
		Notifications: notifySvc,
		JWTSecret:     cfg.Auth.JWTSecret,
		Logger:        logger.WithComponent(log, "http"),
		Health:        db.PingContext,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
