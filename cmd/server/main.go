package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/turnosmed/api-turnos/internal/booking"
	"github.com/turnosmed/api-turnos/internal/client"
	"github.com/turnosmed/api-turnos/internal/config"
	"github.com/turnosmed/api-turnos/internal/database"
	"github.com/turnosmed/api-turnos/internal/handler"
	"github.com/turnosmed/api-turnos/internal/middleware"
	"github.com/turnosmed/api-turnos/internal/notify"
	"github.com/turnosmed/api-turnos/internal/queue"
	"github.com/turnosmed/api-turnos/internal/repository"
	"github.com/turnosmed/api-turnos/internal/router"
	"github.com/turnosmed/api-turnos/internal/stream"
)

func main() {
	// A missing .env is fine; containers inject variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 15*time.Second)
	if err := database.EnsureSchema(schemaCtx, db); err != nil {
		cancelSchema()
		log.Fatalf("schema: %v", err)
	}
	cancelSchema()

	// Redis backs the live event channel and the rate limiter.  Both
	// degrade gracefully when it is unreachable.
	rdb := config.NewRedisClient()

	emitters := notify.Multi{}
	if rdb != nil {
		emitters = append(emitters, notify.NewRedisEmitter(rdb, cfg.StreamChannel))
	}
	if cfg.RabbitURL != "" {
		emitters = append(emitters, notify.NewAMQPEmitter(cfg.RabbitURL, queue.QueueName))
	}
	var emitter notify.Emitter = emitters
	if len(emitters) == 0 {
		log.Printf("notify: no backends configured, events disabled")
		emitter = notify.Noop{}
	}

	catalog := client.NewCatalogClient(cfg.ServiciosAPIURL, cfg.UpstreamTimeout)
	users := client.NewUserClient(cfg.UsuariosAPIURL, cfg.UpstreamTimeout)
	turnos := repository.NewTurnoRepo(db)
	svc := booking.NewService(turnos, catalog, users, emitter)

	hub := stream.NewHub()
	runCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	if rdb != nil {
		go hub.Run(runCtx, rdb, cfg.StreamChannel)
	}

	// Durable consumer appending the audit trail to logs/booking.log.
	if cfg.RabbitURL != "" {
		go func() {
			if err := queue.StartConsumer(cfg.RabbitURL); err != nil {
				log.Printf("turnos-consumer: stopped: %v", err)
			}
		}()
	}

	var limiter, availCache echo.MiddlewareFunc
	if rlCfg := config.LoadRateLimitConfig(); rlCfg.Enabled && rdb != nil {
		limiter = middleware.NewTokenBucket(rlCfg, rdb)
	}
	if cCfg := config.LoadCacheConfig(); cCfg.Enabled && rdb != nil {
		availCache = middleware.NewAvailabilityCache(cCfg, rdb)
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterTurnos(e,
		handler.NewTurnoHandler(svc),
		handler.NewStreamHandler(hub),
		cfg.JWTSecret,
		limiter,
		availCache,
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
