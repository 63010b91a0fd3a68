package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"

	"github.com/mattleonard16/taxhelper-sub000/cmd/config"
	"github.com/mattleonard16/taxhelper-sub000/internal/utils"
	"github.com/mattleonard16/taxhelper-sub000/internal/utils/storage"
	"github.com/mattleonard16/taxhelper-sub000/pkg/receiptjob"
)

// Standalone worker binary: drains queued receipt jobs on a ticker. Safe to
// run alongside the API server and alongside other worker instances.
func main() {
	utils.LoadConfig()

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	repo := receiptjob.NewRepository(db)
	worker := receiptjob.NewWorker(repo, storage.NewAwsS3(), config.NewExtractor(), config.PipelineConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("receipt worker started")
	worker.Run(ctx, config.WorkerInterval())
	log.Info("receipt worker stopped")
}
