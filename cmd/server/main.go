package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/hobbyloop/class-attendance/internal/checkin"    // Check-in domain logic
	"github.com/hobbyloop/class-attendance/internal/config"     // Internal config loader
	"github.com/hobbyloop/class-attendance/internal/database"   // MySQL connection helper
	"github.com/hobbyloop/class-attendance/internal/handler"    // HTTP handlers
	"github.com/hobbyloop/class-attendance/internal/middleware" // Rate limiting and caching
	"github.com/hobbyloop/class-attendance/internal/queue"      // Background event consumers
	"github.com/hobbyloop/class-attendance/internal/repository" // Data access layer
	"github.com/hobbyloop/class-attendance/internal/router"     // Route registration
)

func main() {
	// Load variables from a local .env when present; real deployments
	// set environment variables directly, so a missing file is fine.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: when unavailable, rate limiting, response
	// caching and the QR replay guard degrade gracefully.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting, caching and qr replay guard disabled")
	}

	chk := config.LoadCheckInConfig()
	qrSecret := chk.QRSecret
	if qrSecret == "" {
		qrSecret = cfg.JWTSecret
	}

	store := repository.NewCheckInStore(db)
	orch := checkin.NewOrchestrator(store, checkin.Config{
		Quality: checkin.QualityConfig{
			MaxAccuracyMeters: chk.MaxAccuracyMeters,
			MaxSampleAge:      chk.MaxSampleAge,
		},
		Fraud: checkin.FraudConfig{
			MaxTravelSpeedMPS:       chk.MaxTravelSpeedMPS,
			SuspicionThreshold:      chk.FraudThreshold,
			ImpossibleTravelWeight:  chk.ImpossibleTravelWeight,
			CompromisedDeviceWeight: chk.CompromisedDeviceWeight,
			RepeatCoordinateWeight:  chk.RepeatCoordinateWeight,
			RepeatToleranceMeters:   chk.RepeatToleranceMeters,
		},
		RedactDecimals: chk.RedactDecimals,
		HistoryLimit:   chk.HistoryLimit,
	}, nil)
	codec := checkin.NewQRTokenCodec(qrSecret, chk.QRTokenTTL)

	authH := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	checkinH := handler.NewCheckInHandler(store, orch, codec, rdb, chk.QRTokenTTL)
	classH := handler.NewClassHandler(store.Classes())

	e := echo.New() // Create Echo instance

	var cacheMW echo.MiddlewareFunc
	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	router.RegisterRoutes(e)                          // Health check
	router.RegisterAuth(e, authH, cfg.JWTSecret)      // Auth endpoints
	router.RegisterClasses(e, classH, cacheMW)        // Public class browsing
	router.RegisterCheckIn(e, checkinH, cfg.JWTSecret) // Attendance check-in

	// Background consumers append completed check-ins and bypass
	// alerts to log files; both run reconnect loops forever.
	go func() {
		if err := queue.StartCheckInConsumer(); err != nil {
			log.Printf("checkin consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartAlertConsumer(); err != nil {
			log.Printf("alert consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
