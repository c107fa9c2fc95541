package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"court-booking-service/internal/app"
	"court-booking-service/internal/availability"
	"court-booking-service/internal/catalog"
	"court-booking-service/internal/config"
	"court-booking-service/internal/events"
	"court-booking-service/internal/ledger"
	"court-booking-service/internal/obs"
	"court-booking-service/internal/server"
	"court-booking-service/internal/timeslot"
	_ "court-booking-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	obs.SetupGlobalHandler(cfg.ServiceName, cfg.Level())

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrations(cfg.DatabaseURL)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("%v", err)
	}
	clock := timeslot.SystemClock{Location: loc}

	var (
		catalogStore catalog.Store
		ledgerStore  ledger.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to db: %v", err)
		}
		defer pool.Close()
		catalogStore = catalog.NewPostgresStore(pool)
		ledgerStore = ledger.NewPostgresStore(pool)
	} else {
		log.Println("DATABASE_URL not set, keeping academies and bookings in memory")
		catalogStore = catalog.NewMemoryStore()
		ledgerStore = ledger.NewMemoryStore()
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis unreachable, catalog reads fall through to storage: %v", err)
		}
		catalogStore = catalog.NewCachedStore(catalogStore, rdb, cfg.CacheTTL)
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.RabbitURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	catalogSvc := catalog.NewService(catalogStore)
	bookingLedger := ledger.New(ledgerStore, catalogSvc, clock, publisher)
	appInstance := &app.App{
		Catalog:      catalogSvc,
		Availability: availability.NewCalculator(catalogSvc, bookingLedger, clock),
		Ledger:       bookingLedger,
		Calendar:     app.NewCalendarExporter(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, loc),
		Clock:        clock,
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(cfg.ServiceName), obs.PrometheusMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	appInstance.Register(router, app.AuthMiddleware(app.AuthConfig{
		JWTSecret:    cfg.JWTSecret,
		StaticTokens: cfg.StaticTokens,
	}))

	if err := server.Run(ctx, cfg.Addr(), router); err != nil {
		log.Fatalf("http server: %v", err)
	}
}

func runMigrations(dbURL string) {
	if dbURL == "" {
		log.Fatal("DATABASE_URL required for migrate")
	}
	log.Println("Running database migrations...")

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("failed to connect to database for migration: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set goose dialect: %v", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatalf("goose: failed to run migrations: %v", err)
	}
	log.Println("Migrations applied successfully!")
}
