package main

import (
	"log"
	"net/http"
	"os"

	"mm-mentions-bot/internal/config"
	"mm-mentions-bot/internal/dedup"
	"mm-mentions-bot/internal/handlers"
	"mm-mentions-bot/internal/httpserver"
	"mm-mentions-bot/internal/observability"
	"mm-mentions-bot/internal/product"
	"mm-mentions-bot/internal/twitter"
	"mm-mentions-bot/internal/workflows"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	apiBase := getEnv("X_BASE", "https://api.twitter.com/2")
	uploadBase := getEnv("X_UPLOAD_BASE", "https://upload.twitter.com/1.1")

	read := twitter.NewReadClient(apiBase, cfg.BearerToken, cfg.OutboundTimeout)
	write := twitter.NewWriteClient(apiBase, uploadBase, twitter.Credentials{
		APIKey:       cfg.APIKey,
		APISecret:    cfg.APISecret,
		AccessToken:  cfg.AccessToken,
		AccessSecret: cfg.AccessSecret,
	}, cfg.OutboundTimeout, logger)

	resolver := twitter.NewResolver(read, cfg.AccountHandle, logger)
	productClient := product.NewClient(cfg.ProductServiceURL, cfg.ProductServiceAPIKey, cfg.OutboundTimeout, logger)

	enqueue := workflows.NewEnqueueWorkflow(resolver, productClient, cfg.CallbackPath, logger)
	callback := workflows.NewCallbackWorkflow(write, cfg.ReplyTemplate, dedup.NewLedger(cfg.DedupTTL), logger)

	srv := httpserver.NewServer(cfg.Port, cfg.CallbackPath,
		handlers.RunHandler{Run: enqueue.Run, Logger: logger},
		handlers.CallbackHandler{Callback: callback.Handle, Logger: logger},
	)

	logger.Info("mm-mentions-bot listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
