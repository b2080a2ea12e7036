package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/bhavay2002/Crisis-Connect-sub000/internal/domain"
	"github.com/bhavay2002/Crisis-Connect-sub000/internal/eventbus"
	"github.com/bhavay2002/Crisis-Connect-sub000/internal/events"
	"github.com/bhavay2002/Crisis-Connect-sub000/internal/matching"
	"github.com/bhavay2002/Crisis-Connect-sub000/internal/scoring"
	"github.com/bhavay2002/Crisis-Connect-sub000/internal/store"
)

// ReportStore is the report persistence surface the handlers use
type ReportStore interface {
	CreateReport(ctx context.Context, report *domain.Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*domain.Report, error)
	AddVote(ctx context.Context, reportID uuid.UUID, voterUserID string, upvote bool) error
	AddVerification(ctx context.Context, reportID uuid.UUID, verifierUserID string) (int, error)
	SetConfirmedBy(ctx context.Context, reportID uuid.UUID, responderID *string) error
	SetFlag(ctx context.Context, reportID uuid.UUID, flag *domain.FlagType) error
	SetAIValidationScore(ctx context.Context, reportID uuid.UUID, score int) error
	ListPrioritized(ctx context.Context, limit int) ([]domain.Report, error)
}

// ReputationStore is the reputation persistence surface the handlers use
type ReputationStore interface {
	GetUserReputation(ctx context.Context, userID string) (*domain.UserReputation, error)
	IncrementCounter(ctx context.Context, userID string, counter domain.ReputationCounter, delta int) error
}

// EventBus is the messaging surface the service uses
type EventBus interface {
	Publish(ctx context.Context, event *events.Event) error
	Consume(ctx context.Context, consumerGroup, consumerName string, handler func(*events.Event) error) error
	GetPendingCount(ctx context.Context, consumerGroup string) (int64, error)
}

// App holds the application dependencies
type App struct {
	DB         *sql.DB
	EventBus   EventBus
	Router     *mux.Router
	InstanceID string

	Reports    ReportStore
	Reputation ReputationStore
	Allocation *store.AllocationRepo

	Scoring *scoring.Service
	Engine  *matching.Engine
}

func main() {
	log.Println("Starting Coordination Service (Credibility & Allocation)...")

	// Load config from environment
	cfg := loadConfig()

	// Connect to database
	db, err := connectDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to Coordination Database")

	if err := store.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	// Connect to Redis
	eventBus, err := eventbus.NewRedisEventBus(cfg.RedisHost, cfg.RedisPort)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer eventBus.Close()
	log.Println("Connected to Redis Event Bus")

	// Create app
	reports := store.NewReportRepo(db)
	reputation := store.NewReputationRepo(db)
	allocation := store.NewAllocationRepo(db)

	app := &App{
		DB:         db,
		EventBus:   eventBus,
		Router:     mux.NewRouter(),
		InstanceID: cfg.InstanceID,
		Reports:    reports,
		Reputation: reputation,
		Allocation: allocation,
		Scoring:    scoring.NewService(reports, reputation),
		Engine:     matching.NewEngine(allocation, eventBus),
	}

	// Setup routes
	setupRoutes(app)

	// Start event consumer in background
	go startConsumer(app)

	// Start allocation sweep worker
	if cfg.SweepSeconds > 0 {
		SetSweepInterval(time.Duration(cfg.SweepSeconds) * time.Second)
	}
	go startSweepWorker(app)

	// Create and start server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      app.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Coordination Service [%s] listening on port %s", cfg.InstanceID, cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	log.Println("Server exited")
}

// Config holds application configuration
type Config struct {
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	RedisHost    string
	RedisPort    string
	ServerPort   string
	InstanceID   string
	SweepSeconds int
}

func loadConfig() Config {
	return Config{
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBName:       getEnv("DB_NAME", "coordination_db"),
		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnv("REDIS_PORT", "6379"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		InstanceID:   getEnv("INSTANCE_ID", "coordination-1"),
		SweepSeconds: getEnvInt("ALLOCATION_SWEEP_SECONDS", 0),
	}
}

func connectDB(cfg Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	var db *sql.DB
	var err error

	for i := 0; i < 30; i++ {
		db, err = sql.Open("postgres", connStr)
		if err == nil {
			err = db.Ping()
			if err == nil {
				return db, nil
			}
		}
		log.Printf("Waiting for database... attempt %d/30", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, err
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err == nil {
			return n
		}
		log.Printf("Invalid value for %s: %s, using default %d", key, value, defaultValue)
	}
	return defaultValue
}
