package config

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"github.com/mattleonard16/taxhelper-sub000/internal/api/handlers"
	"github.com/mattleonard16/taxhelper-sub000/internal/api/routes"
	"github.com/mattleonard16/taxhelper-sub000/internal/middleware"
	"github.com/mattleonard16/taxhelper-sub000/internal/utils"
	"github.com/mattleonard16/taxhelper-sub000/internal/utils/mailing"
	"github.com/mattleonard16/taxhelper-sub000/internal/utils/storage"
	"github.com/mattleonard16/taxhelper-sub000/pkg/extraction"
	"github.com/mattleonard16/taxhelper-sub000/pkg/insight"
	"github.com/mattleonard16/taxhelper-sub000/pkg/jwt"
	"github.com/mattleonard16/taxhelper-sub000/pkg/receiptjob"
	"github.com/mattleonard16/taxhelper-sub000/pkg/transaction"
)

func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
		BodyLimit:         20 * 1024 * 1024,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3 := storage.NewAwsS3()
	mailer := mailing.NewDigestMailer()

	// Repository
	receiptJobRepository := receiptjob.NewRepository(db)
	transactionRepository := transaction.NewTransactionRepository(db)
	insightRepository := insight.NewInsightRepository(db)

	// Service
	jwtService := jwt.NewJWTService()
	pipelineCfg := PipelineConfig()
	worker := receiptjob.NewWorker(receiptJobRepository, s3, NewExtractor(), pipelineCfg)
	receiptJobService := receiptjob.NewService(receiptJobRepository, s3, worker, pipelineCfg)
	transactionService := transaction.NewTransactionService(transactionRepository)
	insightService := insight.NewInsightService(insightRepository, transactionRepository, mailer, InsightTTL())

	// Handler
	receiptJobHandler := handlers.NewReceiptJobHandler(receiptJobService, worker, validator)
	transactionHandler := handlers.NewTransactionHandler(transactionService, validator)
	insightHandler := handlers.NewInsightHandler(insightService, jwtService, validator)

	// routes
	routesConfig := routes.Config{
		App:                app,
		ReceiptJobHandler:  receiptJobHandler,
		TransactionHandler: transactionHandler,
		InsightHandler:     insightHandler,
		Middleware:         middlewares,
		JWTService:         jwtService,
	}
	routesConfig.Setup()
	return app, nil
}

// PipelineConfig builds the receipt pipeline policy from config keys,
// leaving zero values where the key is unset so package defaults apply.
func PipelineConfig() receiptjob.Config {
	return receiptjob.Config{
		ConfidenceThreshold:   configFloat("CONFIDENCE_THRESHOLD"),
		StaleProcessingWindow: configDuration("STALE_PROCESSING_MINUTES", time.Minute),
		StaleConfirmedWindow:  configDuration("STALE_CONFIRMED_MINUTES", time.Minute),
		DefaultBatchSize:      configInt("WORKER_BATCH_SIZE"),
	}
}

// NewExtractor wires the deterministic parser with the Gemini fallback.
// Without an API key the adapter runs parser-only.
func NewExtractor() *extraction.Adapter {
	gemini := extraction.NewGeminiClient(
		utils.GetConfig("GEMINI_API_KEY"),
		utils.GetConfig("GEMINI_MODEL"),
	)
	return extraction.NewAdapter(extraction.NewTextParser(), gemini, configFloat("CONFIDENCE_THRESHOLD"))
}

// InsightTTL is 6h in production and 1h elsewhere unless
// INSIGHT_TTL_HOURS overrides it.
func InsightTTL() time.Duration {
	if ttl := configDuration("INSIGHT_TTL_HOURS", time.Hour); ttl > 0 {
		return ttl
	}
	if utils.GetConfig("APP_ENV") == "production" {
		return 6 * time.Hour
	}
	return time.Hour
}

func WorkerInterval() time.Duration {
	return configDuration("WORKER_INTERVAL_SECONDS", time.Second)
}

func configFloat(key string) float64 {
	v, err := strconv.ParseFloat(utils.GetConfig(key), 64)
	if err != nil {
		return 0
	}
	return v
}

func configInt(key string) int {
	v, err := strconv.Atoi(utils.GetConfig(key))
	if err != nil {
		return 0
	}
	return v
}

func configDuration(key string, unit time.Duration) time.Duration {
	return time.Duration(configInt(key)) * unit
}
