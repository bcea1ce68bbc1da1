package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"saintchat/controller"
	"saintchat/model"
	"saintchat/platform"
	"saintchat/service"
)

func main() {
	cfg, err := platform.LoadConfig(".env")
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger := platform.NewLogger(cfg.LogPath, "saintchat", cfg.LogLevel)
	logger.Infof("Server starting...")
	gin.SetMode(cfg.GinMode)

	//init database
	db, err := platform.OpenDB(cfg.DB, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	if err := model.InstallDB(db); err != nil {
		logger.Fatalf("failed to migrate database: %v", err)
	}
	store := model.NewStore(db)

	if cfg.LLMAPIKey == "" {
		logger.Warnf("LLM_API_KEY is not set, chat messages will fail until it is configured")
	}
	llmClient := platform.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey)

	entitlements := service.NewEntitlementResolver(logger,
		service.CustomerEntitlementSource{
			Customers:     store,
			ProductID:     cfg.PremiumProductID,
			EntitlementID: cfg.PremiumEntitlementID,
		},
		service.UserFlagSource{Users: store},
	)
	quota := service.NewQuotaEnforcer(store, logger)
	generator := service.NewLLMGenerator(llmClient, cfg.LLMModel, cfg.LLMAPIKey, logger)
	chatService := service.NewChatService(entitlements, quota, store, generator, logger)
	historyService := service.NewHistoryService(store, logger)

	r := controller.NewRouter(controller.RouterConfig{
		CORSOrigin: cfg.CORSOrigin,
		Auth:       controller.NewAuthController(service.NewTokenService(cfg.AccessSecret), logger),
		Chat:       controller.NewChatController(chatService, historyService, logger),
		Log:        logger,
	})

	report := service.NewUsageReportService(store, platform.NewMailer(cfg.Mail), logger)
	c := cron.New()
	if _, err := c.AddFunc(cfg.Mail.Schedule, func() {
		_ = report.Run(context.Background())
	}); err != nil {
		logger.Fatalf("invalid REPORT_CRON %q: %v", cfg.Mail.Schedule, err)
	}
	c.Start()
	defer c.Stop()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
}
