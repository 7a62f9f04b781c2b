package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/cache"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/checkout"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/history"
	h "github.com/meowkun/JBCH-Retreat-Store-sub000/internal/http"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/publisher"
	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/repository"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	PostgresHost   string
	PostgresPort   int
	PostgresUser   string
	PostgresPass   string
	PostgresDB     string
	MigrationsPath string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
}

func loadConfig() *Config {
	port, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid POSTGRES_PORT: %v", err)
	}

	var brokers []string
	if raw := getEnv("KAFKA_BROKERS", ""); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		PostgresHost:   getEnv("POSTGRES_HOST", ""),
		PostgresPort:   port,
		PostgresUser:   getEnv("POSTGRES_USER", "pos"),
		PostgresPass:   getEnv("POSTGRES_PASSWORD", "pos"),
		PostgresDB:     getEnv("POSTGRES_DB", "posdb"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDBName: getEnv("MONGO_DB_NAME", "posdb"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers: brokers,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	memory := repository.NewMemoryStore()

	// Receipt history and catalog live in Postgres when configured,
	// otherwise in memory (demo/kiosk mode).
	var receipts repository.ReceiptStore = memory
	var catalog repository.CatalogStore = memory
	if cfg.PostgresHost != "" {
		cred := &repository.Credentials{
			Host:              cfg.PostgresHost,
			Port:              cfg.PostgresPort,
			User:              cfg.PostgresUser,
			Password:          cfg.PostgresPass,
			DBName:            cfg.PostgresDB,
			MigrationsDirPath: cfg.MigrationsPath,
		}
		pg, err := repository.NewPostgresStore(cred)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer pg.Close()
		if err := pg.RunMigrations(cred); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Printf("Connected to postgres at %s:%d", cfg.PostgresHost, cfg.PostgresPort)
		receipts = pg
		catalog = pg
	}

	// The working cart survives restarts in MongoDB when configured.
	var carts repository.CartStore = memory
	if cfg.MongoURI != "" {
		mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongoDB.Client().Disconnect(ctx)

		cartStore := repository.NewMongoCartStore(mongoDB)
		if err := cartStore.CreateIndexes(ctx); err != nil {
			log.Fatalf("Failed to create cart indexes: %v", err)
		}
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)
		carts = cartStore
	}

	var receiptCache cache.ReceiptCache = cache.NewMemoryCache()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		log.Printf("Redis ping succeeded")
		receiptCache = cache.NewRedisCache(redisClient)
	}

	processor := checkout.NewProcessor(receipts, receiptCache)
	historyService := history.NewService(receipts, receiptCache)

	if len(cfg.KafkaBrokers) > 0 {
		receiptPublisher := publisher.NewReceiptPublisher(cfg.KafkaBrokers...)
		defer receiptPublisher.Close()
		go receiptPublisher.Run(ctx, receipts.WatchReceipts(ctx))
		log.Printf("Publishing receipt events to %v", cfg.KafkaBrokers)
	}

	cartHandler := h.NewCartHandler(carts, catalog, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(processor, carts, cfg.RequestTimeout)
	historyHandler := h.NewHistoryHandler(historyService, cfg.RequestTimeout)
	exportHandler := h.NewExportHandler(historyService, cfg.RequestTimeout)
	catalogHandler := h.NewCatalogHandler(catalog, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.RegisterMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/lines", cartHandler.AddLine)
			r.Put("/lines/{line_id}", cartHandler.UpdateQuantity)
			r.Delete("/lines/{line_id}", cartHandler.RemoveLine)
			r.Put("/buyer", cartHandler.SetBuyer)
		})
		r.Post("/checkout", checkoutHandler.Checkout)
		r.Post("/checkout/save-for-later", checkoutHandler.SaveForLater)
		r.Route("/receipts", func(r chi.Router) {
			r.Get("/", historyHandler.ListReceipts)
			r.Get("/stats", historyHandler.Stats)
			r.Delete("/{receipt_id}", historyHandler.RemoveReceipt)
		})
		r.Get("/export", exportHandler.Export)
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", catalogHandler.ListItems)
			r.Put("/", catalogHandler.ReplaceItems)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("POS server starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
