package main

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

	"github.com/doxguard/doxguard/automod/bot"
	"github.com/doxguard/doxguard/automod/cachestore"
	"github.com/doxguard/doxguard/automod/countstore"
	"github.com/doxguard/doxguard/automod/engine"
	"github.com/doxguard/doxguard/automod/flagstore"
	"github.com/doxguard/doxguard/automod/incidentstore"
	"github.com/doxguard/doxguard/automod/modqueue"
	"github.com/doxguard/doxguard/automod/oracle"
	"github.com/doxguard/doxguard/automod/reputation"
	"github.com/doxguard/doxguard/automod/setstore"
	"github.com/doxguard/doxguard/chatbridge"
	"github.com/doxguard/doxguard/util"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Server struct {
	logger *slog.Logger
	engine *engine.Engine
	bot    *bot.Bot
	echo   *echo.Echo
	rdb    *redis.Client
}

type Config struct {
	Logger            *slog.Logger
	BridgeHost        string
	BridgeToken       string
	OracleHost        string
	OracleToken       string
	OracleRateLimit   float64
	RedisURL          string
	SlackWebhookURL   string
	SetsFileJSON      string
	ReviewSecret      string
	BotUserID         string
	MonitoredChannel  string
	ModChannel        string
	RestrictReviewers bool
	Engine            engine.Config
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	sets := setstore.NewMemSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		} else {
			logger.Info("loaded set config from JSON", "path", config.SetsFileJSON)
		}
	}

	incidents, err := incidentstore.NewGormIncidentStore(db)
	if err != nil {
		return nil, fmt.Errorf("initializing incident store: %v", err)
	}

	var queue modqueue.Queue
	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var flags flagstore.FlagStore
	var rdb *redis.Client
	if config.RedisURL != "" {
		// generic client, for health checks
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		_, err = rdb.Ping(context.TODO()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		q, err := modqueue.NewRedisQueue(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis queue: %v", err)
		}
		queue = q

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, 7*24*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh

		flg, err := flagstore.NewRedisFlagStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis flagstore: %v", err)
		}
		flags = flg
	} else {
		queue = modqueue.NewMemQueue()
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(10_000, 7*24*time.Hour)
		flags = flagstore.NewMemFlagStore()
	}

	var notifiers []engine.Notifier
	if config.SlackWebhookURL != "" {
		notifiers = append(notifiers, &engine.SlackNotifier{
			SlackWebhookURL: config.SlackWebhookURL,
			Client:          util.RobustHTTPClient(logger),
		})
	}

	eng := &engine.Engine{
		Logger:     logger,
		Platform:   chatbridge.NewClient(config.BridgeHost, config.BridgeToken, logger),
		Oracle:     oracle.NewClient(config.OracleHost, config.OracleToken, config.OracleRateLimit, logger),
		Queue:      queue,
		Incidents:  incidents,
		Rationales: incidents,
		Scorer:     reputation.NewScorer(incidents, logger),
		Flags:      flags,
		Counters:   counters,
		Cache:      cache,
		Sets:       sets,
		Notifiers:  notifiers,
		Config:     config.Engine,
	}

	b := bot.NewBot(eng, bot.Config{
		ReviewSecret:      config.ReviewSecret,
		BotUserID:         config.BotUserID,
		MonitoredChannel:  config.MonitoredChannel,
		ModChannel:        config.ModChannel,
		RestrictReviewers: config.RestrictReviewers,
	})

	s := &Server{
		logger: logger,
		engine: eng,
		bot:    b,
		rdb:    rdb,
	}
	s.echo = s.newEcho(prometheus.DefaultRegisterer)
	return s, nil
}

// HTTP request metrics are registered with reg, which must not already hold them.
func (s *Server) newEcho(reg prometheus.Registerer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "doxguard",
		Registerer: reg,
	}))
	e.Use(middleware.BodyLimit("4M"))

	e.GET("/_health", s.HandleHealthCheck)
	e.POST("/v1/events", s.HandleEvent)
	return e
}

// Serves the event ingress and metrics listeners until an OS exit signal arrives or one of them fails.
func (s *Server) Run(ctx context.Context, bind, metricsListen string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpd := &http.Server{
		Handler:        s.echo,
		Addr:           bind,
		WriteTimeout:   time.Minute,
		ReadTimeout:    time.Minute,
		MaxHeaderBytes: 1 << 20,
	}
	metricsd := &http.Server{
		Handler: metricsHandler(),
		Addr:    metricsListen,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.logger.Info("starting server", "bind", bind)
		if err := httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server shutting down unexpectedly: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		s.logger.Info("starting metrics endpoint", "bind", metricsListen)
		if err := metricsd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start metrics endpoint: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(httpd.Shutdown(shutdownCtx), metricsd.Shutdown(shutdownCtx))
	})

	err := eg.Wait()
	if s.rdb != nil {
		s.rdb.Close()
	}
	s.logger.Info("graceful shutdown complete")
	return err
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
