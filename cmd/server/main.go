package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/config"
	"github.com/triplink/triplink-backend/internal/database"
	"github.com/triplink/triplink-backend/internal/events"
	"github.com/triplink/triplink-backend/internal/handlers"
	"github.com/triplink/triplink-backend/internal/middleware"
	"github.com/triplink/triplink-backend/internal/services"
	"github.com/triplink/triplink-backend/pkg/assistant"
	"github.com/triplink/triplink-backend/pkg/geo"
	"github.com/triplink/triplink-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting TripLink backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Storage
	var (
		db      database.DB
		ledger  database.LedgerStore
		reviews database.ReviewStore
	)
	if cfg.Database.URL != "" {
		logger.Info("Connecting to database...")
		pg, err := database.NewConnection(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Info("Database connection established")
		db = pg
		ledger = database.NewLedgerRepository(pg.DB)
		reviews = database.NewReviewRepository(pg.DB)
	} else {
		logger.Warn("DATABASE_URL not set, using the in-memory store; data is lost on restart")
		memory := database.NewMemoryStore()
		db = database.NoopDB()
		ledger = memory
		reviews = memory
	}
	defer db.Close()

	// Booking events
	var publisher events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.WithField("topic", cfg.Kafka.Topic).Info("Publishing booking events to Kafka")
	} else {
		publisher = events.NewLogPublisher(logger)
	}
	defer publisher.Close()

	// Shared coordinate cache
	var shared services.CoordinateStore
	if cfg.Redis.Addr != "" {
		redisStore := geo.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.GeoKey)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			logger.WithError(err).Warn("Redis unreachable, coordinates are cached per instance only")
			redisStore.Close()
		} else {
			shared = redisStore
			defer redisStore.Close()
			logger.Info("Sharing geocoded coordinates through Redis")
		}
		cancel()
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Services
	logger.Info("Initializing services...")
	bookingService := services.NewBookingService(ledger, publisher, logger)
	reviewService := services.NewReviewService(ledger, reviews, logger)

	locationService := services.NewLocationService(
		geo.NewCityDirectory(cfg.Cities.DirectoryURL, cfg.Cities.RequestTimeout),
		geo.NewGeocoder(cfg.Cities.GeocoderURL, cfg.Cities.GeocoderAgent, cfg.Cities.RequestTimeout),
		shared,
		services.LocationConfig{
			DefaultCountry:  cfg.Cities.DefaultCountry,
			Countries:       cfg.Cities.Countries,
			ReadyWait:       cfg.Cities.ReadyWaitTimeout,
			PrefetchTimeout: cfg.Cities.ReadyWaitTimeout,
			Fallback:        geo.Point{Lat: cfg.Cities.FallbackLat, Lon: cfg.Cities.FallbackLon},
		},
		logger,
	)
	locationService.Prefetch(cfg.Cities.DefaultCountry)

	var generator services.TextGenerator
	if cfg.Chat.GeneratorURL != "" {
		generator = assistant.NewGenerator(cfg.Chat.GeneratorURL, assistant.DefaultParameters(), cfg.Chat.RequestTimeout)
	} else {
		logger.Warn("CHAT_GENERATOR_URL not set, chat replies that need the language model will fail")
	}

	var extractor services.EntityExtractor
	if cfg.Chat.NERURL != "" {
		extractor = assistant.NewEntityClient(cfg.Chat.NERURL, cfg.Chat.RequestTimeout)
	} else {
		extractor = assistant.NewGazetteer(locationService.CitySource(cfg.Cities.DefaultCountry))
	}

	chatService := services.NewChatService(generator, extractor, locationService, services.ChatConfig{
		Country:      cfg.Cities.DefaultCountry,
		CostPerKm:    cfg.Chat.CostPerKm,
		ServiceFee:   cfg.Chat.ServiceFee,
		ReadyTimeout: cfg.Chat.ReadyTimeout,
	}, logger)

	var cronService *services.CronService
	if cfg.Jobs.RideExpirySchedule != "" {
		cronService = services.NewCronService(ledger, logger)
		if err := cronService.Start(cfg.Jobs.RideExpirySchedule); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	}

	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	chatService.Start(backgroundCtx)

	logger.Info("Services initialized")

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", handlers.HealthCheck(db, chatService.Ready(), version))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterRoutes(router.Group("/api/v1"), handlers.Handlers{
		Rides:    handlers.NewRideHandler(bookingService, logger),
		Bookings: handlers.NewBookingHandler(bookingService, logger),
		Reviews:  handlers.NewReviewHandler(reviewService, logger),
		Cities:   handlers.NewCityHandler(locationService, logger),
		Chat:     handlers.NewChatHandler(chatService, logger),
	}, jwtService, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Chat.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopBackground()
	if cronService != nil {
		cronService.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// cors rejects credentials together with a wildcard origin
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
