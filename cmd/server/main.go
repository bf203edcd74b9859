package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/Felicien407/car-rental-system/internal/booking"
	"github.com/Felicien407/car-rental-system/internal/config"
	"github.com/Felicien407/car-rental-system/internal/database"
	"github.com/Felicien407/car-rental-system/internal/handler"
	"github.com/Felicien407/car-rental-system/internal/locker"
	"github.com/Felicien407/car-rental-system/internal/metrics"
	"github.com/Felicien407/car-rental-system/internal/middleware"
	"github.com/Felicien407/car-rental-system/internal/queue"
	"github.com/Felicien407/car-rental-system/internal/repository"
	"github.com/Felicien407/car-rental-system/internal/router"
)

func logLevel(s string) log.Lvl {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return log.DEBUG
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	}
	return log.INFO
}

func main() {
	cfg := config.Load()
	log.SetLevel(logLevel(cfg.LogLevel))
	log.SetHeader(`${time_rfc3339} ${level} ${short_file}:${line}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("database: %v", err)
		}
	}

	// Redis is optional: without it locks are process-local and caching and
	// rate limiting are off.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; using in-process car locks, cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	local := locker.NewLocal(cfg.Lock.Wait)
	var locks booking.Locker = local
	if rdb != nil {
		locks = locker.NewRedis(rdb, cfg.Lock, local)
	}

	cacheCfg := config.LoadCacheConfig()
	invalidator := middleware.NewCacheInvalidator(cacheCfg, rdb)
	events := booking.Publishers{metrics.Events{}}
	if invalidator != nil {
		events = append(events, invalidator)
	}
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL)
		defer pub.Close()
		events = append(events, pub)
		if cfg.AuditLog {
			go queue.StartAuditConsumer(ctx, cfg.RabbitURL, queue.NewAuditLog(cfg.AuditLogPath))
		}
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	cars := repository.NewCarRepo(db)
	bookings := repository.NewBookingRepo(db)
	allocator := booking.NewAllocator(repository.NewStore(db, cars, bookings), locks, events)

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				log.Errorf("%s %s %d %s id=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
				return nil
			}
			log.Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: true,
	}))
	e.Use(metrics.Middleware)

	ready := map[string]handler.Pinger{"mysql": db}
	if rdb != nil {
		ready["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	router.RegisterRoutes(e, handler.Ready(ready))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterCars(e, handler.NewCarHandler(cars, allocator, invalidator), cfg.JWTSecret,
		middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterBookings(e, handler.NewBookingHandler(allocator, bookings), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
