package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tapin/server/internal/config"
	"github.com/tapin/server/internal/engine"
	"github.com/tapin/server/internal/handlers"
	custommw "github.com/tapin/server/internal/middleware"
	"github.com/tapin/server/internal/observability"
	"github.com/tapin/server/internal/repository"
	"github.com/tapin/server/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize telemetry
	ctx := context.Background()
	telemetry, err := observability.Initialize(ctx, observability.NewConfig("tapin-server", "1.0.0"))
	if err != nil {
		log.Printf("Telemetry disabled: %v", err)
	}
	defer func() {
		if telemetry != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			telemetry.Shutdown(shutdownCtx)
		}
	}()

	// Initialize database
	db := openDatabase(cfg)
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	stateRepo := repository.NewStateRepository(db)

	// Initialize the round and posting lifecycle engine
	eng := engine.New(stateRepo, cfg.Blitz.RoundDuration())
	if err := eng.Load(ctx); err != nil {
		log.Fatalf("Failed to load engine state: %v", err)
	}

	// Initialize metrics
	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		log.Printf("HTTP metrics unavailable: %v", err)
	}
	businessMetrics, err := observability.NewBusinessMetrics()
	if err != nil {
		log.Printf("Business metrics unavailable: %v", err)
	}
	eng.SetMetrics(businessMetrics)

	// Initialize services
	storageService, err := services.NewPhotoStorageService(
		cfg.PhotoStorage.BasePath,
		cfg.PhotoStorage.AllowedExtensions,
		cfg.PhotoStorage.MaxFileSizeMB,
	)
	if err != nil {
		log.Fatalf("Failed to initialize storage service: %v", err)
	}
	thumbnailService := services.NewThumbnailService(cfg.PhotoStorage.BasePath)
	exifService := services.NewEXIFService()

	var fcmService *services.FCMService
	if cfg.Push.Enabled {
		fcmService, err = services.NewFCMService(cfg.Push.CredentialsFile)
		if err != nil {
			log.Printf("Push notifications disabled: %v", err)
			fcmService = nil
		}
	}

	hub := services.NewWebSocketHub()
	go hub.Run()

	authService := services.NewAuthService(userRepo, businessMetrics)
	groupService := services.NewGroupService(groupRepo, inviteRepo, userRepo, eng)
	postingService := services.NewPostingService(
		eng, storageService, thumbnailService, exifService,
		hub, fcmService, groupRepo, deviceRepo, businessMetrics,
	)

	// Start the round expiry sweeper
	sweeperCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	sweeper := services.NewRoundSweeper(eng, hub, businessMetrics, cfg.Blitz.SweepInterval())
	go sweeper.Run(sweeperCtx)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService)
	groupHandler := handlers.NewGroupHandler(groupService)
	inviteHandler := handlers.NewInviteHandler(groupService)
	deviceHandler := handlers.NewDeviceHandler(deviceRepo)
	photoHandler := handlers.NewPhotoHandler(postingService, storageService, cfg.PhotoStorage.MaxFileSizeMB)
	roundHandler := handlers.NewRoundHandler(postingService)
	wsHandler := handlers.NewWebSocketHandler(hub, userRepo, groupRepo)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware("tapin-server"))
	if httpMetrics != nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	}
	r.Use(custommw.UserAPIKeyAuth(userRepo, "X-API-Key", []string{
		"/api/auth/*",
		"/api/health",
	}))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Get("/ws", wsHandler.HandleWebSocket)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	r.Get("/api/me", authHandler.Me)
	r.Post("/api/devices", deviceHandler.RegisterDevice)
	r.Post("/api/invites/join", inviteHandler.Join)

	r.Route("/api/groups", func(r chi.Router) {
		r.Post("/", groupHandler.CreateGroup)
		r.Get("/", groupHandler.ListGroups)
		r.Get("/{id}", groupHandler.GetGroup)
		r.Post("/{id}/members", groupHandler.AddMember)
		r.Delete("/{id}/members/{userId}", groupHandler.RemoveMember)

		r.Post("/{id}/invites", inviteHandler.CreateInvite)
		r.Get("/{id}/requests", inviteHandler.ListJoinRequests)
		r.Post("/{id}/requests/{userId}/respond", inviteHandler.RespondJoinRequest)

		r.Get("/{id}/today", photoHandler.TodayFeed)
		r.Post("/{id}/today", photoHandler.PostToday)
		r.Get("/{id}/recap", photoHandler.Recap)

		r.Get("/{id}/blitz", roundHandler.BlitzFeed)
		r.Post("/{id}/blitz", photoHandler.PostBlitz)
		r.Get("/{id}/round", roundHandler.GetRound)
		r.Post("/{id}/round/end", roundHandler.EndRound)
		r.Post("/{id}/round/lock", roundHandler.LockRound)
	})

	r.Route("/api/photos", func(r chi.Router) {
		r.Patch("/{id}/position", photoHandler.UpdatePosition)
		r.Get("/file/*", photoHandler.ServeFile)
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Longer for uploads
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("TapIn Server starting on %s", cfg.ServerAddress)
		log.Printf("Photo storage path: %s", cfg.PhotoStorage.BasePath)
		log.Printf("Blitz round duration: %s", cfg.Blitz.RoundDuration())

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Persist any dirty canvas and round state before exit
	if err := eng.Flush(shutdownCtx); err != nil {
		log.Printf("Failed to flush engine state: %v", err)
	}

	log.Println("Server stopped")
}

func openDatabase(cfg *config.Config) *sql.DB {
	if cfg.UsePostgres() {
		log.Println("Using PostgreSQL database")
		db, err := repository.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
		return db
	}

	log.Println("Using SQLite database")
	db, err := repository.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize SQLite database: %v", err)
	}
	return db
}
