package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openshelf/openshelf/internal/broadcast"
	"github.com/openshelf/openshelf/internal/catalog"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/imports"
	"github.com/openshelf/openshelf/internal/database/reviews"
	"github.com/openshelf/openshelf/internal/database/shelves"
	http_controllers "github.com/openshelf/openshelf/internal/http"
	"github.com/openshelf/openshelf/internal/services"
	"github.com/openshelf/openshelf/internal/tasks"
)

// Run assembles the import pipeline and serves the HTTP API until
// interrupted.
func Run(cfg *config.Config, version string) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	taskClient, err := tasks.NewClient(cfg.Database.Path, tasks.Config{
		Workers:           cfg.Tasks.Workers,
		ReleaseAfter:      cfg.Tasks.ReleaseAfter,
		CleanupInterval:   cfg.Tasks.CleanupInterval,
		RetentionDuration: cfg.Tasks.RetentionDuration,
	})
	if err != nil {
		log.Fatalf("Failed to initialize task queue: %v", err)
	}
	defer taskClient.Close()

	var broadcaster services.Broadcaster = broadcast.Noop{}
	if cfg.Broadcast.Endpoint != "" {
		broadcaster = broadcast.NewHTTPBroadcaster(cfg.Broadcast.Endpoint)
	}

	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.UserAgent, cfg.Catalog.RateInterval)

	importRepo := imports.NewRepository(db.DB)
	service := services.NewImportService(
		importRepo,
		books.NewRepository(db.DB),
		shelves.NewRepository(db.DB),
		reviews.NewRepository(db.DB),
		catalogClient,
		taskClient,
		broadcaster,
	)

	taskClient.Register(
		tasks.NewImportJobQueue(service),
		tasks.NewImportItemQueue(service),
	)

	taskCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()
	go taskClient.Start(taskCtx)

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Imports: http_controllers.NewImportsController(service, importRepo, db),
		Health:  http_controllers.NewHealthController(db, version),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
	defer stopCancel()
	taskClient.Stop(stopCtx)

	log.Println("Server exited")
}
