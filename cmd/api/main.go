package main

import (
	"log"
	"os"
	"time"

	"stylistapi/controllers"
	"stylistapi/dbhelper"
	"stylistapi/services"
	"stylistapi/tasks"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		Environment:      services.GetEnv("ENV", "local"),
		Release:          "stylistapi@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	db := dbhelper.SetupDB()

	asynqClient, err := tasks.NewClient()
	if err != nil {
		log.Fatalf("Failed to initialize task client: %v", err)
	}
	asynqInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: services.GetEnv("ASYNC_BROKER_ADDRESS", "localhost:6379")})
	bucketName := services.GetEnv("R2_BUCKET_NAME", "")
	awsService := &services.AWSService{}
	urlCache, err := services.NewURLCacheService(awsService, bucketName)
	if err != nil {
		log.Fatal("Failed to initialize URL cache service")
	}

	analyzer := services.NewGoogleStylistAnalyzer()
	searchService, err := services.NewSearchService(services.NewTavilyClient())
	if err != nil {
		log.Fatalf("Failed to initialize search service: %v", err)
	}
	vtoService := services.NewVTOService(analyzer)
	stylist := services.NewStylistService(analyzer, searchService, vtoService)

	e := controllers.SetupServer(
		db, awsService, urlCache,
		asynqClient, asynqInspector, stylist,
	)
	e.Debug = true
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(3)))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Logger.Fatal(e.Start(":8083"))
}
