package server

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sngm3741/store-catalog/api/internal/catalog/application"
	"github.com/sngm3741/store-catalog/api/internal/config"
	"github.com/sngm3741/store-catalog/api/internal/infrastructure/cache"
	mongodoc "github.com/sngm3741/store-catalog/api/internal/infrastructure/mongo"
	publichttp "github.com/sngm3741/store-catalog/api/internal/interfaces/http/public"
	"github.com/sngm3741/store-catalog/api/internal/metrics"
)

// Server は HTTP サーバーのライフサイクルを管理し、カタログサービスをハンドラへ注入するコンポジションルート。
type Server struct {
	logger         *slog.Logger
	client         *mongo.Client
	database       *mongo.Database
	redis          *redis.Client
	registry       *prometheus.Registry
	catalog        application.CatalogService
	auth           tokenVerifier
	checks         map[string]healthCheck
	addr           string
	allowedOrigins []string
	requestTimeout time.Duration
	storeColl      string
	reviewColl     string
}

// New は Config と Mongo クライアントからリポジトリ、キャッシュ、メトリクス、サービスを組み立てる。
// REDIS_ADDR が空ならランキングキャッシュなしで動く。
func New(cfg *config.Config, client *mongo.Client, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		logger:         logger,
		client:         client,
		database:       client.Database(cfg.Mongo.Database),
		registry:       prometheus.NewRegistry(),
		auth:           newTokenVerifier(cfg.Auth),
		addr:           cfg.HTTP.Addr,
		allowedOrigins: cfg.HTTP.Origins(),
		requestTimeout: cfg.HTTP.RequestTimeout,
		storeColl:      cfg.Mongo.StoreCollection,
		reviewColl:     cfg.Mongo.ReviewCollection,
	}
	srv.checks = map[string]healthCheck{
		"mongo": func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}

	catalogMetrics := metrics.New()
	if err := catalogMetrics.Register(srv.registry); err != nil {
		return nil, fmt.Errorf("register catalog metrics: %w", err)
	}
	srv.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := application.Dependencies{
		Stores:    mongodoc.NewStoreRepository(srv.database, cfg.Mongo.StoreCollection),
		Reviews:   mongodoc.NewReviewRepository(srv.database, cfg.Mongo.ReviewCollection, cfg.Mongo.StoreCollection),
		Favorites: mongodoc.NewFavoriteRepository(srv.database, cfg.Mongo.FavoriteCollection),
		Metrics:   catalogMetrics,
		Logger:    logger,
	}
	if cfg.Redis.CacheEnabled() {
		srv.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deps.Cache = cache.NewRankingCache(srv.redis, cfg.Redis.CacheTTL)
		srv.checks["redis"] = func(ctx context.Context) error { return srv.redis.Ping(ctx).Err() }
	}

	srv.catalog = application.NewCatalogService(deps, application.Options{
		PageSize:        cfg.Catalog.PageSize,
		SlugMaxAttempts: cfg.Catalog.SlugMaxAttempts,
	})
	return srv, nil
}

// Run はインデックスを用意してから HTTP サーバーを起動し、シグナルで停止する。
func (s *Server) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := mongodoc.EnsureIndexes(ctx, s.database, s.storeColl, s.reviewColl)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP サーバー起動", slog.String("addr", s.addr))
		errChan <- httpServer.ListenAndServe()
	}()

	return s.waitForShutdown(httpServer, errChan)
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(s.logger))
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.allowedOrigins))

	router.Get("/healthz", s.healthHandler())
	router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	publichttp.NewHandler(publichttp.Config{
		Logger:         s.logger,
		Catalog:        s.catalog,
		RequestTimeout: s.requestTimeout,
	}).Register(router, s.authMiddleware)

	return router
}

// requestLogger は chi の middleware.Logger 相当を slog で出力する。
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			defer func() {
				logger.Info("http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(started)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// shutdown は外部接続をタイムアウト付きで閉じる。
func (s *Server) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("Redis 切断時にエラー", slog.Any("error", err))
		}
	}
	if err := s.client.Disconnect(shutdownCtx); err != nil {
		s.logger.Warn("MongoDB 切断時にエラー", slog.Any("error", err))
	}
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を行う。
func (s *Server) waitForShutdown(httpServer *http.Server, errChan <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigChan:
		s.logger.Info("シグナルを受信。サーバー停止処理を開始します", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("サーバー停止時にエラー", slog.Any("error", err))
		}
	}

	s.shutdown(context.Background())
	return runErr
}
