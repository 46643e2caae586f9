// triage-ui serves the TB diagnostic delay prediction form and its JSON API.
//
// Usage:
//
//	triage-ui [--artifact model_pipeline.json] [--port 8501] [--config file.yaml]
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tbdelay/platform/pkg/common/config"
	"github.com/tbdelay/platform/pkg/common/database"
	"github.com/tbdelay/platform/pkg/common/logger"
	"github.com/tbdelay/platform/pkg/common/middleware"
	"github.com/tbdelay/platform/pkg/serving"
	"github.com/tbdelay/platform/pkg/serving/predictor"
)

const cachePingTimeout = 2 * time.Second

var serveFlags struct {
	config   string
	artifact string
	port     string
}

var rootCmd = &cobra.Command{
	Use:          "triage-ui",
	Short:        "Serve the diagnostic delay risk form",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&serveFlags.config, "config", "", "YAML configuration file")
	f.StringVar(&serveFlags.artifact, "artifact", "", "Model artifact path (default from configuration)")
	f.StringVar(&serveFlags.port, "port", "", "Listen port (default from configuration)")
}

// dependencies are the optional backends; any of them may be nil.
type dependencies struct {
	cache         serving.Cache
	predictionLog serving.PredictionLogger
	history       serving.PredictionHistory
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(serveFlags.config)
	if err != nil {
		return nil, err
	}
	if serveFlags.artifact != "" {
		cfg.ArtifactPath = serveFlags.artifact
	}
	if serveFlags.port != "" {
		cfg.ServerPort = serveFlags.port
	}
	return cfg, nil
}

// newCache returns a Redis-backed prediction cache, or nil when caching is
// off or Redis does not answer.
func newCache(ctx context.Context, client redis.Cmdable, ttl time.Duration) serving.Cache {
	if ttl <= 0 || client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, cachePingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.WithError(err).Warn("Prediction cache disabled")
		return nil
	}
	return serving.NewRedisCache(client, ttl)
}

func newRouter(cfg *config.Config, deps dependencies) *mux.Router {
	models := predictor.NewPredictor(cfg.ArtifactPath)
	if !models.Available() {
		logger.Log.WithField("artifact", cfg.ArtifactPath).Warn("Model artifact not found; run the trainer first")
	}
	service := serving.NewService(models, cfg.RiskThreshold, deps.cache, deps.predictionLog)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	handler := serving.NewHTTPHandler(service, models)
	if deps.history != nil {
		handler.WithHistory(deps.history)
	}
	handler.Register(router)
	return router
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var deps dependencies
	if cfg.PredictionCacheTTL > 0 {
		deps.cache = newCache(cmd.Context(), database.GetRedis(cfg), cfg.PredictionCacheTTL)
		defer database.CloseRedis()
	}

	if cfg.PredictionLogEnabled {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			return fmt.Errorf("connect prediction log: %w", err)
		}
		defer database.ClosePostgres()
		repo := serving.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate prediction log: %w", err)
		}
		deps.predictionLog = repo
		deps.history = repo
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      newRouter(cfg, deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.WithFields(logrus.Fields{
			"host":           cfg.ServerHost,
			"port":           cfg.ServerPort,
			"artifact":       cfg.ArtifactPath,
			"threshold":      cfg.RiskThreshold,
			"cache":          deps.cache != nil,
			"prediction_log": deps.predictionLog != nil,
		}).Info("Triage UI started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("start server: %w", err)
	case <-quit:
	}

	logger.Log.Info("Shutting down Triage UI...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Triage UI stopped")
	return nil
}

func main() {
	logger.Init()
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("triage-ui failed")
		os.Exit(1)
	}
}
