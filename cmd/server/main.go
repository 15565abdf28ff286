package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"consult-ai-backend/internal/agent"
	"consult-ai-backend/internal/config"
	"consult-ai-backend/internal/consultation"
	"consult-ai-backend/internal/report"
)

func main() {
	// 1. Configuration
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is.")
	}
	cfg := config.Load()

	// 2. Session store: postgres when configured, then redis, then in-memory
	// demo mode.
	store := newStore(cfg)
	defer store.Close()

	// 3. Clients and services
	gateway := agent.NewDeepSeekGateway(cfg.ReasonerAPIKey, cfg.ChatAPIKey, cfg.ModelBaseURL)
	if cfg.ReasonerAPIKey == "" && cfg.ChatAPIKey == "" {
		log.Println("Warning: no model API keys configured. Running in demo mode with canned responses.")
	}
	aiClient := agent.NewClient(gateway)

	reportSvc := report.NewService()
	consultationSvc := consultation.NewService(store, aiClient)
	consultationHandler := consultation.NewHandler(consultationSvc, reportSvc)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		consultation.RegisterRoutes(r, consultationHandler)
	})

	fmt.Printf("Server starting on port %s...\n", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}

func newStore(cfg config.Config) consultation.Store {
	if cfg.DatabaseURL != "" {
		var db *sql.DB
		var err error
		for i := 0; i < 10; i++ {
			db, err = sql.Open("postgres", cfg.DatabaseURL)
			if err == nil {
				err = db.Ping()
			}
			if err == nil {
				break
			}
			fmt.Printf("Waiting for DB... (%d/10)\n", i+1)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			log.Printf("Could not connect to DB: %v. Falling back to in-memory store.", err)
		} else {
			log.Println("Connected to Database.")
			runMigrations(cfg)
			return consultation.NewPostgresStore(db)
		}
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Printf("Using Redis session store at %s.", cfg.RedisAddr)
		return consultation.NewRedisStore(client, cfg.RedisTTL)
	}

	log.Println("Using in-memory session store. Sessions will not survive a restart.")
	return consultation.NewMemoryStore()
}

func runMigrations(cfg config.Config) {
	m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		log.Printf("Migration init failed: %v", err)
		return
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Printf("Migration up failed: %v", err)
		return
	}
	log.Println("Migrations applied successfully!")
}
