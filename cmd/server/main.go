package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rpattn/ontograph/internal/config"
	"github.com/rpattn/ontograph/internal/db"
	"github.com/rpattn/ontograph/internal/export"
	"github.com/rpattn/ontograph/internal/graphloader"
	"github.com/rpattn/ontograph/internal/middleware"
	"github.com/rpattn/ontograph/internal/repository"
	"github.com/rpattn/ontograph/internal/versioning"
	"github.com/rpattn/ontograph/migrations"

	"github.com/rs/cors"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(migrations.FS, cfg.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	ontologyRepo := repository.NewOntologyRepository(conn.Pool)
	conceptRepo := repository.NewConceptRepository(conn.Pool)
	relationshipRepo := repository.NewRelationshipRepository(conn.Pool)
	individualRepo := repository.NewIndividualRepository(conn.Pool)
	activityRepo := repository.NewActivityRepository(conn.Pool)
	snapshotRepo := repository.NewSnapshotRepository(conn.Pool)
	graphRepo := repository.NewGraphRepository(conn)

	// Create versioning services
	loaders := graphloader.New(conceptRepo, relationshipRepo, individualRepo)
	builder := versioning.NewSnapshotBuilder(conceptRepo, relationshipRepo, individualRepo, snapshotRepo)
	detector := versioning.NewChangeDetector(conceptRepo, relationshipRepo, individualRepo)
	conflicts := versioning.NewConflictDetector(loaders, conceptRepo, relationshipRepo, individualRepo)
	reverter := versioning.NewRevertEngine(activityRepo, graphRepo, conceptRepo, relationshipRepo, individualRepo)
	query := versioning.NewVersionQuery(activityRepo)

	versioningHandler := versioning.NewHTTPHandler(snapshotRepo, builder, detector, conflicts, reverter, query)

	exportService := export.NewService(activityRepo, ontologyRepo, snapshotRepo, detector, conflicts)
	exportHandler := export.NewHTTPHandler(exportService, snapshotRepo)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	wrap := func(h http.Handler) http.Handler {
		return corsHandler.Handler(middleware.LoggingMiddleware(middleware.ActorMiddleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/ontologies/", wrap(dispatch(exportHandler, versioningHandler)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting ontology versioning server on %s", cfg.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// dispatch routes export downloads to the export handler and everything else
// under the ontology prefix to the versioning API.
func dispatch(exports, api http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/export/") {
			exports.ServeHTTP(w, r)
			return
		}
		api.ServeHTTP(w, r)
	})
}
