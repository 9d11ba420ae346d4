package main

import (
	"context"
	"log"
	"os"

	"stylistapi/dbhelper"
	"stylistapi/services"
	"stylistapi/tasks"

	"github.com/hibiken/asynq"
)

func main() {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")},
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			"generate": 7,
		}},
	)
	awsService := &services.AWSService{}
	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("[Queue] Failed to initialize AWS provider: S3")
	}

	analyzer := services.NewGoogleStylistAnalyzer()
	vtoService := services.NewVTOService(analyzer)
	// engine warmup ahead of the first task
	vtoService.Preload()

	mux := asynq.NewServeMux()
	db := dbhelper.SetupDB()
	mux.HandleFunc("generate:tryon", func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleTryOnGenerationTask(ctx, t, db, vtoService, awsService)
	})

	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
