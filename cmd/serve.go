package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"localevents/config"
	"localevents/db"
	"localevents/geocode"
	"localevents/logger"
	"localevents/metrics"
	"localevents/models"
	"localevents/notify"
	"localevents/routes"
	"localevents/services"
	"localevents/utils"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on start")
}

func serve(cfg *config.Config) error {
	ctx := context.Background()

	// Postgres
	sqldb, err := db.OpenPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer sqldb.Close()
	if !skipMigrations {
		if err := db.RunMigrations(cfg.Database.DSN); err != nil {
			return err
		}
	}

	// Mongo
	mg, err := db.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() { _ = mg.Disconnect(context.Background()) }()
	deliveries := notify.NewMongoDeliveryLog(mg.Database(cfg.Mongo.Database).Collection("notifications"))

	// Redis
	rdb := db.NewRedis(cfg.Redis)
	defer rdb.Close()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	// Outside services
	geocoder := geocode.NewClient(&http.Client{}, cfg.Geocode.Endpoint, cfg.Geocode.APIKey, cfg.Geocode.Timeout, rec)
	sender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	dispatcher := notify.NewDispatcher(sender, deliveries, notify.DispatcherConfig{
		QueueSize:   cfg.Mail.QueueSize,
		Workers:     cfg.Mail.Workers,
		SendTimeout: cfg.Mail.SendTimeout,
	}, rec)

	// Repositories and services
	users := models.NewSQLUserRepository(sqldb)
	events := models.NewSQLEventRepository(sqldb)
	reports := models.NewSQLReportRepository(sqldb)
	comments := models.NewSQLCommentRepository(sqldb)
	resolver := services.NewEntityResolver(models.NewSQLLabelRepository(sqldb))
	tokens := utils.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	resetTokens := services.NewResetTokenStore(users, cfg.Auth.ResetTokenTTL)
	cascade := models.CascadePolicy{Reports: true, Comments: true}

	gin.SetMode(cfg.Server.Mode)
	server := gin.New()
	server.Use(gin.Recovery())
	stopLimiters := routes.RegisterRoutes(server, routes.Options{
		Accounts:   services.NewAccountService(users, tokens, dispatcher),
		Events:     services.NewEventService(users, events, resolver, geocoder, cascade),
		Moderation: services.NewModerationService(events, reports, users, dispatcher, cfg.Moderation.ReportThreshold, rec),
		Resets:     services.NewPasswordResetService(users, resetTokens, dispatcher, cfg.Auth.ResetLinkBase, cfg.Auth.RevealUnknownEmail),
		Comments:   services.NewCommentService(events, comments),
		Deliveries: deliveries,
		Tokens:     tokens,
		Redis:      rdb,
		RateLimit:  cfg.RateLimit,
		CacheTTL:   cfg.Cache.TTL,
		Metrics:    rec,
		Gatherer:   reg,
		Health: func(ctx context.Context) error {
			return errors.Join(sqldb.PingContext(ctx), rdb.Ping(ctx).Err(), mg.Ping(ctx, nil))
		},
	})
	defer stopLimiters()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	// Handlers are done; mail still queued gets until the deadline.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", logger.Fields{"error": err.Error()})
	}
	logger.Info("server stopped", nil)
	return nil
}
