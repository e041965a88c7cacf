package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/api"
	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/auth"
	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/config"
	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/domain"
	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/outbox"
	persistence "github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/persistence/postgres"
	httptransport "github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/transport/http"
)

func main() {
	cfg := config.Load()

	log.SetTimeFormat(time.Stamp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to connect to postgres", "err", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)

	producer := outbox.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	records := domain.NewService(repo)
	dashboard := domain.NewDashboardService(repo)

	handler := api.NewHandler(records, dashboard)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	requestLogger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			switch r.URL.Path {
			case "/healthz", "/metrics":
				return true
			case "/v1/dashboard":
				// An absent token is a valid no-session dashboard view.
				return r.Header.Get("Authorization") == ""
			}
			return false
		},
	)

	// CORS must sit outside auth so preflight requests, which carry no
	// Authorization header, are answered instead of rejected with 401.
	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, corsMiddleware.Handler(requestLogger(authMiddleware.Wrap(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("fitness tracker listening", "address", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", "err", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	dispatcher.Wait()
}
