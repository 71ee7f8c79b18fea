package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/Dan9191/gigfin-service/internal/config"
	"github.com/Dan9191/gigfin-service/internal/handler"
	"github.com/Dan9191/gigfin-service/internal/integrations/textgen"
	"github.com/Dan9191/gigfin-service/internal/middleware"
	"github.com/Dan9191/gigfin-service/internal/repository"
	"github.com/Dan9191/gigfin-service/internal/scheduler"
	"github.com/Dan9191/gigfin-service/internal/service"
	"github.com/Dan9191/gigfin-service/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	svc := service.NewService(repo, logger, cfg)
	tg := textgen.NewClient(cfg, logger)
	h := handler.NewHandler(svc, tg, logger)
	sender := email.NewSender(cfg, logger)

	// Start the daily risk sweep
	sweep := scheduler.NewScheduler(svc, sender, cfg, logger)
	if err := sweep.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sweep.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/onboarding/buckets", h.CreateDefaultBuckets).Methods("POST")
	authRouter.HandleFunc("/state", h.GetState).Methods("GET")
	authRouter.HandleFunc("/income", h.AllocateIncome).Methods("POST")
	authRouter.HandleFunc("/income/import", h.ImportStatement).Methods("POST")
	authRouter.HandleFunc("/expenses", h.RecordExpense).Methods("POST")
	authRouter.HandleFunc("/forecast", h.GetForecast).Methods("GET")
	authRouter.HandleFunc("/risk", h.GetRisk).Methods("GET")
	authRouter.HandleFunc("/advances/eligibility", h.AdvanceEligibility).Methods("GET")
	authRouter.HandleFunc("/advances", h.RequestAdvance).Methods("POST")
	authRouter.HandleFunc("/advances", h.ListAdvances).Methods("GET")
	authRouter.HandleFunc("/advances/{id}/repay", h.RepayAdvance).Methods("POST")
	authRouter.HandleFunc("/obligations", h.CreateObligation).Methods("POST")
	authRouter.HandleFunc("/obligations", h.ListObligations).Methods("GET")
	authRouter.HandleFunc("/obligations/{id}", h.DeleteObligation).Methods("DELETE")
	authRouter.HandleFunc("/obligations/{id}/paid", h.MarkObligationPaid).Methods("POST")
	authRouter.HandleFunc("/goals", h.CreateGoal).Methods("POST")
	authRouter.HandleFunc("/goals", h.ListGoals).Methods("GET")
	authRouter.HandleFunc("/goals/{id}", h.GetGoal).Methods("GET")
	authRouter.HandleFunc("/goals/{id}", h.UpdateGoal).Methods("PUT")
	authRouter.HandleFunc("/goals/{id}", h.DeleteGoal).Methods("DELETE")
	authRouter.HandleFunc("/goals/{id}/contribute", h.ContributeToGoal).Methods("POST")
	authRouter.HandleFunc("/goals/{id}/scenarios", h.SimulateGoal).Methods("POST")
	authRouter.HandleFunc("/insights", h.GetInsights).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
