package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/roomrent/backend/docs"
	"github.com/roomrent/backend/internal/config"
	"github.com/roomrent/backend/internal/database"
	"github.com/roomrent/backend/internal/handlers"
	mW "github.com/roomrent/backend/internal/middleware"
	"github.com/roomrent/backend/internal/models"
	"github.com/roomrent/backend/internal/realtime"
	"github.com/roomrent/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Room Rent Backend API
// @version 1.0
// @description Room booking, account standing and secure messaging API
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("commission.seeker_rate", "COMMISSION_SEEKER_RATE")
	viper.BindEnv("commission.provider_rate", "COMMISSION_PROVIDER_RATE")
	viper.BindEnv("ledger.overdue_days", "LEDGER_OVERDUE_DAYS")
	viper.BindEnv("ledger.penalty_rate", "LEDGER_PENALTY_RATE")
	viper.BindEnv("messaging.owner_account_id", "OWNER_ACCOUNT_ID")
	viper.BindEnv("messaging.autoreply_delay", "AUTOREPLY_DELAY")
	viper.BindEnv("owner.email", "OWNER_EMAIL")
	viper.BindEnv("owner.password", "OWNER_PASSWORD")
	viper.BindEnv("owner.full_name", "OWNER_FULL_NAME")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Room Rent Backend API"
	docs.SwaggerInfo.Description = "Room booking, account standing and secure messaging API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db := database.InitDatabase(ctx)
	defer db.Close()

	redisClient := database.InitRedis(ctx)
	if redisClient != nil {
		defer redisClient.Close()
	}

	engineCfg := config.LoadEngineConfig()
	clk := clockwork.NewRealClock()

	authService := services.NewAuthService(db, redisClient)
	if email := viper.GetString("owner.email"); email != "" {
		ownerID, err := authService.EnsureOwner(ctx, email, viper.GetString("owner.password"), viper.GetString("owner.full_name"))
		if err != nil {
			log.Fatalf("Failed to prepare owner account: %v", err)
		}
		engineCfg.OwnerAccountID = ownerID
	}
	if engineCfg.OwnerAccountID == "" {
		log.Printf("Warning: no owner account configured; support threads are unavailable")
	}

	// Realtime fan-out goes through Redis when available so every
	// instance's subscribers see every write
	hub := realtime.NewHub(engineCfg.RealtimeBufferSize)
	defer hub.Close()
	var publisher realtime.Publisher = hub
	if redisClient != nil {
		relay := realtime.NewRedisRelay(redisClient, hub)
		publisher = relay
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[REALTIME] Relay stopped: %v", err)
			}
		}()
	}

	ledgerService := services.NewLedgerService(db, engineCfg, clk, publisher)
	bookingService := services.NewBookingService(db, ledgerService, engineCfg, clk, publisher)
	messagingService := services.NewMessagingService(db, engineCfg, clk, publisher)
	autoResponder := services.NewAutoResponder(messagingService, redisClient, clk, engineCfg.OwnerAccountID, engineCfg.AutoReplyDelay)
	messagingService.SetAutoResponder(autoResponder)
	defer autoResponder.Close()
	quoteService := services.NewDuesQuoteService(ledgerService, redisClient, clk, engineCfg.DuesQuoteTTL)
	accessGate := services.NewAccessGate(ledgerService)

	bookingHandler := handlers.NewBookingHandler(bookingService, hub)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, quoteService)
	adminHandler := handlers.NewAdminHandler(ledgerService)
	messageHandler := handlers.NewMessageHandler(messagingService, autoResponder, hub)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	authenticate := mW.InitAuthMiddleware(authService)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Event streams are long-lived and skip the request timeout
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(mW.RequireAccess(accessGate))

			r.Get("/threads/{threadKey}/events", messageHandler.ThreadEvents)
			r.Get("/inbox/events", messageHandler.InboxEvents)
			r.Get("/bookings/events", bookingHandler.BookingEvents)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Public endpoints (no auth required)
			r.Post("/auth/register", authService.Register)
			r.Post("/auth/login", authService.Login)
			r.Post("/auth/logout", authService.Logout)

			// Session only: deactivated accounts must still reach their dues
			r.Group(func(r chi.Router) {
				r.Use(authenticate)

				r.Get("/auth/account", authService.GetUserAccount)
				r.Get("/ledger/dues", ledgerHandler.GetDues)
				r.Post("/ledger/dues/clear", ledgerHandler.ClearDues)
			})

			// Gated endpoints
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(mW.RequireAccess(accessGate))

				r.Get("/bookings", bookingHandler.ListBookings)
				r.Get("/bookings/{bookingId}", bookingHandler.GetBooking)
				r.Put("/bookings/{bookingId}/status", bookingHandler.UpdateStatus)
				r.With(mW.RequireAccess(accessGate, models.RoleSeeker)).Post("/bookings", bookingHandler.CreateBooking)

				r.Get("/threads", messageHandler.ListThreads)
				r.Get("/threads/{threadKey}/messages", messageHandler.FetchThread)
				r.Post("/threads/{threadKey}/messages", messageHandler.SendMessage)
				r.Put("/threads/{threadKey}/read", messageHandler.MarkRead)
				r.Get("/threads/{threadKey}/typing", messageHandler.Typing)
			})

			// Owner endpoints
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(mW.RequireAccess(accessGate, models.RoleOwner))

				r.Post("/admin/accounts/{accountId}/penalty", adminHandler.AssessPenalty)
				r.Put("/admin/accounts/{accountId}/active", adminHandler.SetActive)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server. No WriteTimeout: event streams stay open.
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
